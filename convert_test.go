package libmysql

import (
	"bytes"
	"errors"
	"testing"
	"time"
	"unsafe"

	"github.com/shopspring/decimal"
)

// doubleQuotes stands in for the library escape function in tests.
func doubleQuotes(raw []byte) []byte {
	return bytes.ReplaceAll(raw, []byte("'"), []byte("''"))
}

func TestConvertLiteral(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  string
	}{
		{"nil", nil, "NULL"},
		{"true", true, "1"},
		{"false", false, "0"},
		{"int", -42, "-42"},
		{"int64", int64(1 << 40), "1099511627776"},
		{"uint64", uint64(18446744073709551615), "18446744073709551615"},
		{"float", 3.25, "3.25"},
		{"string", "it's", "'it''s'"},
		{"bytes", []byte("a'b"), "'a''b'"},
		{"time", time.Date(2024, 3, 5, 14, 30, 45, 0, time.UTC), "'2024-03-05 14:30:45'"},
		{"date", Date{2024, time.March, 5}, "'2024-03-05'"},
		{"duration", -90 * time.Minute, "'-01:30:00'"},
		{"time of day", TimeOfDay{Hour: 9, Minute: 30}, "'09:30:00'"},
		{"decimal", decimal.RequireFromString("007.25"), "7.25"},
		{"set", NewSet("b", "a"), "'a,b'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := convertLiteral(tt.input, doubleQuotes, false)
			if err != nil {
				t.Fatalf("convertLiteral(%v) failed: %v", tt.input, err)
			}
			if string(got) != tt.want {
				t.Errorf("convertLiteral(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestConvertLiteralUnsupported(t *testing.T) {
	type opaque struct{ x int }

	_, err := convertLiteral(opaque{1}, doubleQuotes, false)
	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("unsupported type gave %v, want ConversionError", err)
	}

	// With the string fallback the value is quoted but not escaped.
	got, err := convertLiteral(opaque{1}, doubleQuotes, true)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != '\'' || got[len(got)-1] != '\'' {
		t.Errorf("fallback literal %q is not quoted", got)
	}
}

func TestConvertTuple(t *testing.T) {
	got, err := convertTuple([]interface{}{nil, 1, "x"}, doubleQuotes, false)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"NULL", "1", "'x'"}
	for i := range want {
		if string(got[i]) != want[i] {
			t.Errorf("fragment %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBindValueNull(t *testing.T) {
	var bind mysqlBind
	hold, err := bindValue(&bind, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if bind.BufferType != TypeNull {
		t.Errorf("BufferType = %v, want TypeNull", bind.BufferType)
	}
	if bind.IsNull == nil || *bind.IsNull != 1 {
		t.Error("IsNull flag not set")
	}
	_ = hold
}

func TestBindValueIntegers(t *testing.T) {
	var bind mysqlBind
	hold, err := bindValue(&bind, int32(-7), false)
	if err != nil {
		t.Fatal(err)
	}
	if bind.BufferType != TypeLongLong || bind.IsUnsigned != 0 {
		t.Errorf("bind = %+v", bind)
	}
	if hold.i64 != -7 {
		t.Errorf("buffer = %d", hold.i64)
	}
	if bind.Buffer != unsafe.Pointer(&hold.i64) {
		t.Error("buffer does not point at the hold")
	}

	bind = mysqlBind{}
	hold, err = bindValue(&bind, uint64(1<<63), false)
	if err != nil {
		t.Fatal(err)
	}
	if bind.IsUnsigned != 1 {
		t.Error("uint64 should bind unsigned")
	}
	if uint64(hold.i64) != 1<<63 {
		t.Errorf("buffer bits = %x", uint64(hold.i64))
	}
}

func TestBindValueFloats(t *testing.T) {
	var bind mysqlBind
	hold, err := bindValue(&bind, 2.5, false)
	if err != nil {
		t.Fatal(err)
	}
	if bind.BufferType != TypeFloat {
		t.Errorf("BufferType = %v, want TypeFloat", bind.BufferType)
	}
	if hold.f32 != 2.5 {
		t.Errorf("buffer = %v", hold.f32)
	}
}

func TestBindValueStringsAndBytes(t *testing.T) {
	var bind mysqlBind
	hold, err := bindValue(&bind, "hello", false)
	if err != nil {
		t.Fatal(err)
	}
	if bind.BufferType != TypeString {
		t.Errorf("BufferType = %v", bind.BufferType)
	}
	if string(hold.buf) != "hello" || bind.BufferLength != 5 || *bind.Length != 5 {
		t.Errorf("string bind = %+v, hold %q", bind, hold.buf)
	}

	bind = mysqlBind{}
	hold, err = bindValue(&bind, []byte{1, 2}, false)
	if err != nil {
		t.Fatal(err)
	}
	if bind.BufferType != TypeBlob || *bind.Length != 2 {
		t.Errorf("bytes bind = %+v", bind)
	}
	_ = hold
}

func TestBindValueTemporal(t *testing.T) {
	var bind mysqlBind
	hold, err := bindValue(&bind, time.Date(2024, 3, 5, 14, 30, 45, 123456000, time.UTC), false)
	if err != nil {
		t.Fatal(err)
	}
	if bind.BufferType != TypeDatetime {
		t.Errorf("BufferType = %v", bind.BufferType)
	}
	if hold.mt.Year != 2024 || hold.mt.SecondPart != 123456 {
		t.Errorf("mysqlTime = %+v", hold.mt)
	}

	bind = mysqlBind{}
	hold, err = bindValue(&bind, Date{2024, time.March, 5}, false)
	if err != nil {
		t.Fatal(err)
	}
	if bind.BufferType != TypeDate || hold.mt.TimeType != mysqlTimestampDate {
		t.Errorf("date bind = %+v, mt %+v", bind, hold.mt)
	}

	bind = mysqlBind{}
	hold, err = bindValue(&bind, -time.Minute, false)
	if err != nil {
		t.Fatal(err)
	}
	if bind.BufferType != TypeTime || hold.mt.Neg != 1 || hold.mt.Minute != 1 {
		t.Errorf("duration bind = %+v, mt %+v", bind, hold.mt)
	}
}

func TestBindValueDecimal(t *testing.T) {
	var bind mysqlBind
	hold, err := bindValue(&bind, decimal.RequireFromString("12.340"), false)
	if err != nil {
		t.Fatal(err)
	}
	if bind.BufferType != TypeNewDecimal {
		t.Errorf("BufferType = %v", bind.BufferType)
	}
	if string(hold.buf) != "12.340" {
		t.Errorf("decimal text = %q", hold.buf)
	}
}

func TestBindValueFallback(t *testing.T) {
	type opaque struct{ x int }

	var bind mysqlBind
	_, err := bindValue(&bind, opaque{1}, false)
	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("unsupported type gave %v, want ConversionError", err)
	}

	bind = mysqlBind{}
	hold, err := bindValue(&bind, opaque{1}, true)
	if err != nil {
		t.Fatal(err)
	}
	if bind.BufferType != TypeString || len(hold.buf) == 0 {
		t.Errorf("fallback bind = %+v, hold %q", bind, hold.buf)
	}
}
