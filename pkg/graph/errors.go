package graph

import (
	"errors"
	"fmt"
)

var (
	ErrNodeNotFound  = errors.New("node not found")
	ErrDuplicateNode = errors.New("node already exists")
	ErrUnknownKind   = errors.New("unknown node kind")
	ErrSelfParent    = errors.New("node cannot be its own parent group")
)

// OpError describes a failed store operation.
type OpError struct {
	Op     string // e.g. "UpdateNode", "Connect"
	NodeID NodeID
	Cause  error
}

func (e *OpError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("%s node %s: %v", e.Op, e.NodeID, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *OpError) Unwrap() error {
	return e.Cause
}

// Is matches a target OpError by Op, and by NodeID when the target sets
// one; any other target is compared against the cause.
func (e *OpError) Is(target error) bool {
	if target == nil {
		return false
	}
	if t, ok := target.(*OpError); ok {
		return t.Op == e.Op && (t.NodeID == "" || t.NodeID == e.NodeID)
	}
	return errors.Is(e.Cause, target)
}

func opErr(op string, id NodeID, cause error) error {
	return &OpError{Op: op, NodeID: id, Cause: cause}
}
