package sqlguard

import (
	"errors"
	"fmt"
)

type Reason string

const (
	ReasonNotSelect          Reason = "not a SELECT"
	ReasonForbiddenOperation Reason = "forbidden operation"
	ReasonCommentNotAllowed  Reason = "comment not allowed"
	ReasonUnauthorizedTable  Reason = "unauthorized table"
	ReasonUnauthorizedColumn Reason = "unauthorized column"
	ReasonUnsupportedShape   Reason = "unsupported statement shape"
)

// ErrRejected matches every RejectedError through errors.Is.
var ErrRejected = errors.New("statement rejected")

// RejectedError reports why a candidate statement was refused. Identifier names
// the offending table, column or keyword when there is one; it is meant for
// operators and must not be echoed to end users verbatim.
type RejectedError struct {
	Reason     Reason
	Identifier string
}

func (e *RejectedError) Error() string {
	if e.Identifier == "" {
		return fmt.Sprintf("statement rejected: %s", e.Reason)
	}
	return fmt.Sprintf("statement rejected: %s (%s)", e.Reason, e.Identifier)
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}

func reject(reason Reason, identifier string) error {
	return &RejectedError{Reason: reason, Identifier: identifier}
}

// ReasonOf returns the rejection reason carried by err, if any.
func ReasonOf(err error) (Reason, bool) {
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return rejected.Reason, true
	}
	return "", false
}
