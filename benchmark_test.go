package libmysql

import (
	"testing"
	"time"
)

func BenchmarkParseDateTime(b *testing.B) {
	raw := []byte("2024-03-05 14:30:45.123456")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		ParseDateTime(raw)
	}
}

func BenchmarkParseTime(b *testing.B) {
	raw := []byte("-838:59:59.000001")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		ParseTime(raw)
	}
}

func BenchmarkFormatDuration(b *testing.B) {
	d := 14*time.Hour + 30*time.Minute + 45*time.Second + 123456*time.Microsecond
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		FormatDuration(d)
	}
}

func BenchmarkConvertTextCellInteger(b *testing.B) {
	f := &Field{Type: TypeLongLong}
	raw := []byte("9223372036854775807")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := convertTextCell(f, raw, "utf8mb4", true); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkConvertTextCellString(b *testing.B) {
	f := &Field{Type: TypeVarString, Charsetnr: 255}
	raw := []byte("a reasonably sized varchar value")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := convertTextCell(f, raw, "utf8mb4", true); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBindValue(b *testing.B) {
	values := []interface{}{int64(42), "hello", 3.14, time.Now(), nil}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		var bind mysqlBind
		if _, err := bindValue(&bind, values[i%len(values)], false); err != nil {
			b.Fatal(err)
		}
	}
}
