package libmysql

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestProtocolErrorFormat(t *testing.T) {
	err := &ProtocolError{Errno: 1045, SQLState: "28000", Msg: "Access denied"}
	got := err.Error()
	if !strings.Contains(got, "1045") || !strings.Contains(got, "28000") || !strings.Contains(got, "Access denied") {
		t.Errorf("unexpected message: %q", got)
	}

	noState := &ProtocolError{Errno: 2006, Msg: "gone"}
	if strings.Contains(noState.Error(), "()") {
		t.Errorf("empty sqlstate should be omitted: %q", noState.Error())
	}
}

func TestProtocolErrorIs(t *testing.T) {
	err := fmt.Errorf("query failed: %w", &ProtocolError{Errno: 1062, SQLState: "23000", Msg: "dup"})
	if !errors.Is(err, &ProtocolError{Errno: 1062}) {
		t.Error("errors.Is should match on errno")
	}
	if errors.Is(err, &ProtocolError{Errno: 1063}) {
		t.Error("errors.Is should not match a different errno")
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&ProtocolError{Errno: ErrServerGone, Msg: "gone"}, true},
		{&ProtocolError{Errno: ErrServerLost, Msg: "lost"}, true},
		{&ProtocolError{Errno: ErrConnHostError, Msg: "unreachable"}, true},
		{&ProtocolError{Errno: 1064, SQLState: "42000", Msg: "syntax"}, false},
		{&ProtocolError{Errno: 1053, SQLState: "08S01", Msg: "shutdown"}, true},
		{errors.New("plain"), false},
		{&ConversionError{Value: 1}, false},
	}

	for _, tt := range tests {
		if got := IsConnectionError(tt.err); got != tt.want {
			t.Errorf("IsConnectionError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestConversionErrorMessage(t *testing.T) {
	err := newConversionError(struct{}{})
	if !strings.Contains(err.Error(), "struct {}") {
		t.Errorf("message should name the offending type: %q", err.Error())
	}
}

func TestMalformedDataError(t *testing.T) {
	err := &MalformedDataError{Type: TypeDate, Data: []byte("junk")}
	if !strings.Contains(err.Error(), "DATE") || !strings.Contains(err.Error(), "junk") {
		t.Errorf("message should name type and data: %q", err.Error())
	}
}
