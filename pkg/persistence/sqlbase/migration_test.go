package sqlbase

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrationManager_LatestVersion(t *testing.T) {
	assert.Equal(t, 0, NewMigrationManager(slog.Default(), nil, nil).LatestVersion())

	manager := NewMigrationManager(slog.Default(), nil, map[int]string{
		3: "SELECT 3",
		1: "SELECT 1",
		2: "SELECT 2",
	})
	assert.Equal(t, 3, manager.LatestVersion())
}

func TestMigrationManager_Pending(t *testing.T) {
	manager := NewMigrationManager(slog.Default(), nil, map[int]string{
		5: "SELECT 5",
		1: "SELECT 1",
		2: "SELECT 2",
	})

	assert.Equal(t, []int{1, 2, 5}, manager.Pending(0))
	assert.Equal(t, []int{5}, manager.Pending(2))
	assert.Equal(t, []int{5}, manager.Pending(3))
	assert.Empty(t, manager.Pending(5))
	assert.Empty(t, NewMigrationManager(slog.Default(), nil, nil).Pending(0))
}
