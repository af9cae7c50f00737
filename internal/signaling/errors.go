package signaling

import (
	"errors"
	"fmt"

	"github.com/thesujaljaiswal/Voice-Chat-Application/internal/protocol"
)

var (
	// ErrValidation marks a join rejected for a missing or malformed field.
	ErrValidation = errors.New("invalid join request")

	// ErrRoleConflict marks a join for a role already held by a
	// different connection.
	ErrRoleConflict = errors.New("role already taken")
)

// JoinRejectedError is returned by Registry.Join. Message is the
// user-visible text delivered to the requesting connection; Err is the
// taxonomy sentinel for errors.Is checks. A rejected join never mutates
// registry state.
type JoinRejectedError struct {
	Err     error
	Message string
}

func (e *JoinRejectedError) Error() string { return e.Message }

func (e *JoinRejectedError) Unwrap() error { return e.Err }

func validationError(message string) error {
	return &JoinRejectedError{Err: ErrValidation, Message: message}
}

func roleConflictError(role protocol.Role) error {
	return &JoinRejectedError{Err: ErrRoleConflict, Message: fmt.Sprintf("%s already in room", role)}
}
