package rcon

import (
	"errors"

	"go.uber.org/zap"
)

// ErrorKind is the closed set of failures surfaced by the client.
type ErrorKind int

const (
	None ErrorKind = iota
	Disconnected
	SocketError
	AuthFailed    // server did not send the expected login prompt
	AuthIncorrect // login credentials were rejected
	GeneralError
	InvalidCommand
	ResponseTimeout

	errorKindCount
)

var kindNames = [...]string{
	None:            "NONE",
	Disconnected:    "DISCONNECTED",
	SocketError:     "SOCKET_ERROR",
	AuthFailed:      "AUTH_FAILED",
	AuthIncorrect:   "AUTH_INCORRECT",
	GeneralError:    "GENERAL_ERROR",
	InvalidCommand:  "INVALID_COMMAND",
	ResponseTimeout: "RESPONSE_TIMEOUT",
}

// String returns the symbolic label, or "" for values outside the set.
func (k ErrorKind) String() string {
	if k < None || k >= errorKindCount {
		return ""
	}
	return kindNames[k]
}

func (k ErrorKind) Error() string {
	return "rcon: " + k.String()
}

// IsKind reports whether err carries one of the client's error kinds.
func IsKind(err error) bool {
	var k ErrorKind
	if !errors.As(err, &k) {
		return false
	}
	return k > None && k < errorKindCount
}

// KindOf returns the error kind carried by err. nil maps to None and any
// error outside the taxonomy maps to GeneralError.
func KindOf(err error) ErrorKind {
	if err == nil {
		return None
	}
	var k ErrorKind
	if errors.As(err, &k) && k > None && k < errorKindCount {
		return k
	}
	return GeneralError
}

// normalize coerces err into the taxonomy, logging anything unrecognized.
func normalize(log *zap.Logger, err error) error {
	if err == nil {
		return nil
	}
	if IsKind(err) {
		return KindOf(err)
	}
	log.Error("GENERAL_ERROR", zap.Error(err))
	return GeneralError
}
