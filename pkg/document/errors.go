package document

import (
	"errors"
	"fmt"
)

// Precondition errors returned by the editing operations. They are deterministic logic
// errors; retrying with the same document and arguments fails the same way.
var (
	ErrParentNotFound       = errors.New("parent block not found")
	ErrSlotNotFound         = errors.New("slot not found")
	ErrBlockNotFound        = errors.New("block not found")
	ErrInvalidIndex         = errors.New("invalid index")
	ErrCannotRemoveRoot     = errors.New("cannot remove root block")
	ErrUnsupportedBlockKind = errors.New("unsupported block kind")

	ErrInvalidBlock       = errors.New("invalid block")
	ErrDuplicateBlockID   = errors.New("block id already exists")
	ErrBlockNotAttached   = errors.New("block is not attached")
	ErrBlockAttached      = errors.New("block is already attached")
	ErrCyclicMove         = errors.New("cannot move a block into its own subtree")
	ErrUnknownField       = errors.New("unknown field")
	ErrInvalidFieldValue  = errors.New("invalid field value")
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrInvalidDocument is wrapped by every violation reported by CheckInvariants.
	ErrInvalidDocument = errors.New("invalid document")
)

// EditError wraps a precondition failure with the operation and block it concerns.
type EditError struct {
	Op      string // Operation name, e.g. "AttachBlock"
	BlockID string // Block the failure refers to, if any
	Detail  string // Additional context
	Err     error  // Underlying sentinel
}

func (e *EditError) Error() string {
	target := ""
	if e.BlockID != "" {
		target = " for block " + e.BlockID
	}

	if e.Detail != "" {
		return fmt.Sprintf("%s failed%s: %v: %s", e.Op, target, e.Err, e.Detail)
	}

	return fmt.Sprintf("%s failed%s: %v", e.Op, target, e.Err)
}

func (e *EditError) Unwrap() error {
	return e.Err
}

func (e *EditError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func newEditError(op, blockID string, err error, detail string) *EditError {
	return &EditError{
		Op:      op,
		BlockID: blockID,
		Detail:  detail,
		Err:     err,
	}
}

// IsNotFound reports whether err refers to a block, slot, kind or connection that does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrParentNotFound) ||
		errors.Is(err, ErrSlotNotFound) ||
		errors.Is(err, ErrBlockNotFound) ||
		errors.Is(err, ErrUnsupportedBlockKind) ||
		errors.Is(err, ErrConnectionNotFound)
}

// IsPreconditionError reports whether err is any of the editing precondition errors.
func IsPreconditionError(err error) bool {
	return IsNotFound(err) ||
		errors.Is(err, ErrInvalidIndex) ||
		errors.Is(err, ErrCannotRemoveRoot) ||
		errors.Is(err, ErrInvalidBlock) ||
		errors.Is(err, ErrDuplicateBlockID) ||
		errors.Is(err, ErrBlockNotAttached) ||
		errors.Is(err, ErrBlockAttached) ||
		errors.Is(err, ErrCyclicMove) ||
		errors.Is(err, ErrUnknownField) ||
		errors.Is(err, ErrInvalidFieldValue) ||
		errors.Is(err, ErrInvalidDocument)
}
