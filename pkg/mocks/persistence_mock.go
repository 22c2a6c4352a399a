package mocks

import (
	"context"

	"github.com/dukex/blockflow/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) Documents(ctx context.Context) ([]*models.WorkflowDocument, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.WorkflowDocument), args.Error(1)
}

func (m *MockPersistence) DocumentByID(ctx context.Context, id string) (*models.WorkflowDocument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowDocument), args.Error(1)
}

func (m *MockPersistence) SaveDocument(ctx context.Context, doc *models.WorkflowDocument) error {
	args := m.Called(ctx, doc)

	return args.Error(0)
}

func (m *MockPersistence) DeleteDocument(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

// MockCompiler is a mock implementation of services.Compiler interface.
type MockCompiler struct {
	mock.Mock
}

func (m *MockCompiler) GenerateCode(ctx context.Context, doc *models.WorkflowDocument) (string, error) {
	args := m.Called(ctx, doc)

	return args.String(0), args.Error(1)
}

func (m *MockCompiler) ImportWorkflow(ctx context.Context, source string) (*models.WorkflowDocument, error) {
	args := m.Called(ctx, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowDocument), args.Error(1)
}
