package libmysql

import (
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Date
		ok    bool
		isErr bool
	}{
		{"simple", "2024-03-05", Date{2024, time.March, 5}, true, false},
		{"leap day", "2024-02-29", Date{2024, time.February, 29}, true, false},
		{"non leap day", "2023-02-29", Date{}, false, false},
		{"century non leap", "1900-02-29", Date{}, false, false},
		{"quadricentennial leap", "2000-02-29", Date{2000, time.February, 29}, true, false},
		{"zero date", "0000-00-00", Date{}, false, false},
		{"zero day", "2024-01-00", Date{}, false, false},
		{"month 13", "2024-13-01", Date{}, false, false},
		{"year too large", "10000-01-01", Date{}, false, false},
		{"garbage", "not-a-date", Date{}, false, true},
		{"empty", "", Date{}, false, true},
		{"missing day", "2024-03", Date{}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := ParseDate([]byte(tt.input))
			if tt.isErr {
				var mErr *MalformedDataError
				if !errors.As(err, &mErr) {
					t.Fatalf("ParseDate(%q) err = %v, want MalformedDataError", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDate(%q) unexpected error: %v", tt.input, err)
			}
			if ok != tt.ok {
				t.Fatalf("ParseDate(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("ParseDate(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseDateTime(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
		ok    bool
	}{
		{
			"full", "2024-03-05 14:30:45",
			time.Date(2024, 3, 5, 14, 30, 45, 0, time.UTC), true,
		},
		{
			"fractional", "2024-03-05 14:30:45.123456",
			time.Date(2024, 3, 5, 14, 30, 45, 123456000, time.UTC), true,
		},
		{
			"short fraction pads to micros", "2024-03-05 14:30:45.5",
			time.Date(2024, 3, 5, 14, 30, 45, 500000000, time.UTC), true,
		},
		{
			"long fraction truncates", "2024-03-05 14:30:45.1234567890",
			time.Date(2024, 3, 5, 14, 30, 45, 123456000, time.UTC), true,
		},
		{
			"date only", "2024-03-05",
			time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true,
		},
		{"zero datetime", "0000-00-00 00:00:00", time.Time{}, false},
		{"invalid day", "2024-02-30 10:00:00", time.Time{}, false},
		{"hour out of range", "2024-01-01 25:00:00", time.Time{}, false},
		{"minute out of range", "2024-01-01 10:61:00", time.Time{}, false},
		{"empty", "", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDateTime([]byte(tt.input))
			if ok != tt.ok {
				t.Fatalf("ParseDateTime(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("ParseDateTime(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Duration
		ok    bool
	}{
		{"simple", "14:30:45", 14*time.Hour + 30*time.Minute + 45*time.Second, true},
		{"negative", "-10:20:30", -(10*time.Hour + 20*time.Minute + 30*time.Second), true},
		{"over 24 hours", "838:59:59", 838*time.Hour + 59*time.Minute + 59*time.Second, true},
		{"fractional", "00:00:01.500000", time.Second + 500*time.Millisecond, true},
		{
			"negative fractional", "-00:00:01.5",
			-(time.Second + 500*time.Millisecond), true,
		},
		// Out-of-range components fold arithmetically instead of failing.
		{"overflowing minutes", "-25:61:00", -(25*time.Hour + 61*time.Minute), true},
		{"zero", "00:00:00", 0, true},
		{"empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTime([]byte(tt.input))
			if ok != tt.ok {
				t.Fatalf("ParseTime(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("ParseTime(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		input time.Duration
		want  string
	}{
		{0, "00:00:00"},
		{14*time.Hour + 30*time.Minute + 45*time.Second, "14:30:45"},
		{-(10*time.Hour + 20*time.Minute + 30*time.Second), "-10:20:30"},
		{838*time.Hour + 59*time.Minute + 59*time.Second, "838:59:59"},
		{time.Second + 500*time.Millisecond, "00:00:01.500000"},
		{-(time.Second + 123456*time.Microsecond), "-00:00:01.123456"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.input); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFormatDateTime(t *testing.T) {
	tests := []struct {
		input time.Time
		want  string
	}{
		{time.Date(2024, 3, 5, 14, 30, 45, 0, time.UTC), "2024-03-05 14:30:45"},
		{time.Date(2024, 3, 5, 14, 30, 45, 123456000, time.UTC), "2024-03-05 14:30:45.123456"},
		{time.Date(999, 1, 2, 0, 0, 0, 0, time.UTC), "0999-01-02 00:00:00"},
	}

	for _, tt := range tests {
		if got := FormatDateTime(tt.input); got != tt.want {
			t.Errorf("FormatDateTime(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFormatDate(t *testing.T) {
	got := FormatDate(Date{Year: 7, Month: time.June, Day: 3})
	if got != "0007-06-03" {
		t.Errorf("FormatDate = %q, want %q", got, "0007-06-03")
	}
}

func TestFormatTimeOfDay(t *testing.T) {
	tests := []struct {
		input TimeOfDay
		want  string
	}{
		{TimeOfDay{Hour: 9, Minute: 5, Second: 1}, "09:05:01"},
		{TimeOfDay{Hour: 23, Minute: 59, Second: 59, Micros: 999999}, "23:59:59.999999"},
	}

	for _, tt := range tests {
		if got := FormatTimeOfDay(tt.input); got != tt.want {
			t.Errorf("FormatTimeOfDay(%+v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestDurationRoundTrip(t *testing.T) {
	durations := []time.Duration{
		0,
		time.Second,
		-(25*time.Hour + 61*time.Minute),
		838*time.Hour + 59*time.Minute + 59*time.Second,
		-(time.Hour + 123456*time.Microsecond),
	}
	for _, d := range durations {
		got, ok := ParseTime([]byte(FormatDuration(d)))
		if !ok || got != d {
			t.Errorf("round trip of %v through %q gave %v, ok=%v", d, FormatDuration(d), got, ok)
		}
	}
}

func TestDurationToMySQLTime(t *testing.T) {
	mt := durationToMySQLTime(-(25*time.Hour + 30*time.Minute + 15*time.Second + 42*time.Microsecond))
	if mt.Neg != 1 {
		t.Error("expected negative flag")
	}
	if mt.Hour != 25 || mt.Minute != 30 || mt.Second != 15 || mt.SecondPart != 42 {
		t.Errorf("unexpected components: %+v", mt)
	}
	if mt.TimeType != mysqlTimestampTime {
		t.Errorf("TimeType = %d, want %d", mt.TimeType, mysqlTimestampTime)
	}
}

func TestBitsToUint64(t *testing.T) {
	tests := []struct {
		input []byte
		want  uint64
	}{
		{nil, 0},
		{[]byte{0x01}, 1},
		{[]byte{0x01, 0x00}, 256},
		{[]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, ^uint64(0)},
		{[]byte{0x12, 0x34, 0x56}, 0x123456},
	}

	for _, tt := range tests {
		if got := BitsToUint64(tt.input); got != tt.want {
			t.Errorf("BitsToUint64(% x) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeDecimalText(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"007", "7"},
		{"-007", "-7"},
		{"0.10", "0.10"},
		{"-0.10", "-0.10"},
		{"0", "0"},
		{"1234.5678", "1234.5678"},
	}

	for _, tt := range tests {
		if got := NormalizeDecimalText(tt.input); got != tt.want {
			t.Errorf("NormalizeDecimalText(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
