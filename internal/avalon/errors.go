package avalon

import "fmt"

// ErrorKind classifies why an operation was rejected. Surfaced to the
// caller only (never broadcast) per spec §7.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindNotFound      ErrorKind = "not_found"
	KindWrongPhase    ErrorKind = "wrong_phase"
	KindUnauthorized  ErrorKind = "unauthorized"
	KindDoubleAction  ErrorKind = "double_action"
	KindRuleViolation ErrorKind = "rule_violation"
	KindCapacity      ErrorKind = "capacity"
)

// GameError is the typed error every Engine operation returns on
// failure. A failed operation never partially mutates state.
type GameError struct {
	Kind ErrorKind
	Msg  string
}

func (e *GameError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func newErr(kind ErrorKind, format string, args ...interface{}) *GameError {
	return &GameError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
