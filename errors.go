package libmysql

import (
	"errors"
	"fmt"
)

// ErrExhausted signals that a result set has no more rows.
var ErrExhausted = errors.New("result set exhausted")

// ProtocolError carries a server or client library diagnostic.
type ProtocolError struct {
	Errno    int
	SQLState string
	Msg      string
}

func (e *ProtocolError) Error() string {
	if e.SQLState != "" {
		return fmt.Sprintf("mysql error %d (%s): %s", e.Errno, e.SQLState, e.Msg)
	}
	return fmt.Sprintf("mysql error %d: %s", e.Errno, e.Msg)
}

// Is reports whether target is a ProtocolError with the same errno.
func (e *ProtocolError) Is(target error) bool {
	t, ok := target.(*ProtocolError)
	if !ok {
		return false
	}
	return t.Errno == e.Errno
}

// Common client-side error numbers (errmsg.h).
const (
	ErrUnknown           = 2000 // CR_UNKNOWN_ERROR
	ErrConnHostError     = 2003 // CR_CONN_HOST_ERROR
	ErrServerGone        = 2006 // CR_SERVER_GONE_ERROR
	ErrServerLost        = 2013 // CR_SERVER_LOST
	ErrCommandsOutOfSync = 2014 // CR_COMMANDS_OUT_OF_SYNC
)

// IsConnectionError checks if the error indicates a lost or unreachable server.
func IsConnectionError(err error) bool {
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		return false
	}
	switch pe.Errno {
	case ErrConnHostError, ErrServerGone, ErrServerLost:
		return true
	}
	// 08xxx SQLSTATE class covers connection exceptions
	return len(pe.SQLState) == 5 && pe.SQLState[:2] == "08"
}

// sessionError builds a ProtocolError from the session diagnostics. When the
// client library reports no error, fallback is used as the message with the
// unknown-error number.
func sessionError(mysql uintptr, fallback string) *ProtocolError {
	errno := int(mysqlErrno(mysql))
	if errno == 0 {
		return &ProtocolError{Errno: ErrUnknown, SQLState: "HY000", Msg: fallback}
	}
	return &ProtocolError{
		Errno:    errno,
		SQLState: mysqlSqlstate(mysql),
		Msg:      mysqlError(mysql),
	}
}

// stmtError builds a ProtocolError from prepared statement diagnostics.
func stmtError(stmt uintptr, fallback string) *ProtocolError {
	errno := int(mysqlStmtErrno(stmt))
	if errno == 0 {
		return &ProtocolError{Errno: ErrUnknown, SQLState: "HY000", Msg: fallback}
	}
	return &ProtocolError{
		Errno:    errno,
		SQLState: mysqlStmtSqlstate(stmt),
		Msg:      mysqlStmtError(stmt),
	}
}

// ConversionError reports a host value that cannot be converted to or from
// a MySQL representation.
type ConversionError struct {
	Value interface{}
	Type  FieldType
	Msg   string
}

func (e *ConversionError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("conversion failed: %s", e.Msg)
	}
	return fmt.Sprintf("cannot convert value of type %T to MySQL", e.Value)
}

func newConversionError(value interface{}) *ConversionError {
	return &ConversionError{Value: value}
}

// MalformedDataError reports server data that does not match the expected
// wire grammar for its column type.
type MalformedDataError struct {
	Type FieldType
	Data []byte
}

func (e *MalformedDataError) Error() string {
	return fmt.Sprintf("malformed %s value %q", TypeName(e.Type), e.Data)
}

// UsageError reports API misuse, such as fetching from a closed result.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string {
	return e.Msg
}

var (
	errNotConnected = &UsageError{Msg: "not connected to a MySQL server"}
	errNoResult     = &UsageError{Msg: "no result set available"}
	errStmtClosed   = &UsageError{Msg: "statement has been closed"}
)
