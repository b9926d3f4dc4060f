package protocol

import (
	"errors"
	"fmt"
)

const (
	// Configuration: missing/malformed datasets, missing roles, empty selection.
	ErrConfig = "E_CONFIG"

	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoBadAction  = "E_PROTO_BAD_ACTION"

	// Remote call layer.
	ErrTransport = "E_TRANSPORT"

	ErrBadRequest = "E_BAD_REQUEST"
	ErrInternal   = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrConfig:          {},
	ErrProtoBadRequest: {},
	ErrProtoBadAction:  {},
	ErrTransport:       {},
	ErrBadRequest:      {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// Error is a coded error carried across the eval socket and up the run.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func E(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the error code, or E_INTERNAL for uncoded errors.
func CodeOf(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ErrInternal
}
