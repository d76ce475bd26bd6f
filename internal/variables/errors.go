package variables

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes pass errors.
type ErrorCode string

const (
	// ErrCodeDescriptorMissing indicates a descriptor lacks a required
	// property child. Only the affected record is skipped.
	ErrCodeDescriptorMissing ErrorCode = "DESCRIPTOR_MISSING"

	// ErrCodeMutationRejected indicates the editor refused a mutation. The
	// pass aborts without rollback.
	ErrCodeMutationRejected ErrorCode = "MUTATION_REJECTED"
)

// PassError is an error raised while running a pass.
type PassError struct {
	Code       ErrorCode
	Message    string
	SequenceID string
	// Node describes the element involved, if any.
	Node string
	Err  error
}

// Error implements the error interface.
func (e *PassError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Node != "" {
		msg += fmt.Sprintf(" (node=%s)", e.Node)
	}
	if e.SequenceID != "" {
		msg += fmt.Sprintf(" (sequence=%s)", e.SequenceID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PassError) Unwrap() error {
	return e.Err
}

// IsDescriptorMissing reports whether err is a descriptor fault.
func IsDescriptorMissing(err error) bool {
	var pe *PassError
	if errors.As(err, &pe) {
		return pe.Code == ErrCodeDescriptorMissing
	}
	return false
}

// IsMutationRejected reports whether err is a refused mutation.
func IsMutationRejected(err error) bool {
	var pe *PassError
	if errors.As(err, &pe) {
		return pe.Code == ErrCodeMutationRejected
	}
	return false
}

func newDescriptorMissing(sequenceID, node, property string) *PassError {
	return &PassError{
		Code:       ErrCodeDescriptorMissing,
		Message:    fmt.Sprintf("descriptor has no %s property", property),
		SequenceID: sequenceID,
		Node:       node,
	}
}

func newMutationRejected(sequenceID, node, op string, err error) *PassError {
	return &PassError{
		Code:       ErrCodeMutationRejected,
		Message:    op + " refused by editor",
		SequenceID: sequenceID,
		Node:       node,
		Err:        err,
	}
}
