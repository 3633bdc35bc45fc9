package events

import "fmt"

// ErrorCode is the machine-readable refusal code carried by Error payloads.
type ErrorCode string

const (
	CodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	CodeNotYourTurn       ErrorCode = "NOT_YOUR_TURN"
	CodePlayerUnavailable ErrorCode = "PLAYER_UNAVAILABLE"
	CodeInvalidState      ErrorCode = "INVALID_STATE"
	CodeTradeNotFound     ErrorCode = "TRADE_NOT_FOUND"
	CodeTradeExpired      ErrorCode = "TRADE_EXPIRED"
	CodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	CodeStorageError      ErrorCode = "STORAGE_ERROR"
	CodeConnError         ErrorCode = "CONN_ERROR"
)

// Fault is a user-visible refusal. Faults are unicast to the requester and
// never broadcast; anything that isn't a Fault is logged and reported as
// STORAGE_ERROR.
type Fault struct {
	Code    ErrorCode
	Message string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

// Faultf builds a Fault with a formatted message.
func Faultf(code ErrorCode, format string, args ...any) *Fault {
	return &Fault{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrorPayload is the wire shape of the Error event.
type ErrorPayload struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}
