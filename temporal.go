package libmysql

import (
	"fmt"
	"strings"
	"time"
)

var daysInMonth = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// validDate checks that year/month/day name a real calendar day within the
// DATE range supported by the server (years 1 through 9999).
func validDate(year, month, day int) bool {
	if year < 1 || year > 9999 {
		return false
	}
	if month < 1 || month > 12 {
		return false
	}
	if day < 1 {
		return false
	}
	max := daysInMonth[month-1]
	if month == 2 && isLeapYear(year) {
		max = 29
	}
	return day <= max
}

// ParseDate parses a DATE column value in "YYYY-MM-DD" form. A value that
// matches the grammar but names an impossible date (such as the zero date
// "0000-00-00") yields ok=false with a nil error, matching the server's
// convention of surfacing invalid dates as NULL. A value that does not match
// the grammar at all is a MalformedDataError.
func ParseDate(raw []byte) (Date, bool, error) {
	var year, month, day int
	n, _ := fmt.Sscanf(string(raw), "%d-%d-%d", &year, &month, &day)
	if n < 3 {
		return Date{}, false, &MalformedDataError{Type: TypeDate, Data: raw}
	}
	if !validDate(year, month, day) {
		return Date{}, false, nil
	}
	return Date{Year: year, Month: time.Month(month), Day: day}, true, nil
}

// scanDigitGroups splits raw into consecutive runs of ASCII digits, parsing
// each run as a decimal number. Any non-digit byte acts as a separator. For
// the group at fracIndex, only the first six digits are significant and the
// parsed value is scaled up to microseconds.
func scanDigitGroups(raw []byte, dst []int, fracIndex int) int {
	groups := 0
	i := 0
	for i < len(raw) && groups < len(dst) {
		for i < len(raw) && !isDigit(raw[i]) {
			i++
		}
		if i >= len(raw) {
			break
		}
		value := 0
		digits := 0
		for i < len(raw) && isDigit(raw[i]) {
			if groups != fracIndex || digits < 6 {
				value = value*10 + int(raw[i]-'0')
				digits++
			}
			i++
		}
		if groups == fracIndex {
			for digits < 6 {
				value *= 10
				digits++
			}
		}
		dst[groups] = value
		groups++
	}
	return groups
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// ParseDateTime parses a DATETIME or TIMESTAMP column value in
// "YYYY-MM-DD hh:mm:ss[.ffffff]" form. Missing trailing components default
// to zero. Values naming an impossible date yield ok=false with a nil error.
func ParseDateTime(raw []byte) (time.Time, bool) {
	var parts [7]int
	n := scanDigitGroups(raw, parts[:], 6)
	if n < 3 || !validDate(parts[0], parts[1], parts[2]) {
		return time.Time{}, false
	}
	if parts[3] > 23 || parts[4] > 59 || parts[5] > 59 || parts[6] > 999999 {
		return time.Time{}, false
	}
	return time.Date(parts[0], time.Month(parts[1]), parts[2],
		parts[3], parts[4], parts[5], parts[6]*1000, time.UTC), true
}

// ParseTime parses a TIME column value in "[-]hhh:mm:ss[.ffffff]" form into
// a time.Duration. TIME values are elapsed time and may exceed 24 hours or
// be negative; the sign applies to every component. Components are folded
// arithmetically without range checks, so "0:90:00" parses as 90 minutes.
func ParseTime(raw []byte) (time.Duration, bool) {
	s := raw
	neg := false
	for len(s) > 0 && (s[0] == ' ' || s[0] == '-') {
		if s[0] == '-' {
			neg = true
		}
		s = s[1:]
	}
	var parts [4]int
	n := scanDigitGroups(s, parts[:], 3)
	if n == 0 {
		return 0, false
	}
	d := time.Duration(parts[0])*time.Hour +
		time.Duration(parts[1])*time.Minute +
		time.Duration(parts[2])*time.Second +
		time.Duration(parts[3])*time.Microsecond
	if neg {
		d = -d
	}
	return d, true
}

// FormatDate renders d as a DATE literal body, "YYYY-MM-DD".
func FormatDate(d Date) string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// FormatDateTime renders t as a DATETIME literal body. The fractional part
// is included only when t carries sub-second precision.
func FormatDateTime(t time.Time) string {
	us := t.Nanosecond() / 1000
	if us != 0 {
		return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d.%06d",
			t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second(), us)
	}
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d",
		t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
}

// FormatTimeOfDay renders t as a TIME literal body, "hh:mm:ss[.ffffff]".
func FormatTimeOfDay(t TimeOfDay) string {
	if t.Micros != 0 {
		return fmt.Sprintf("%02d:%02d:%02d.%06d", t.Hour, t.Minute, t.Second, t.Micros)
	}
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// FormatDuration renders d as a TIME literal body. Durations outside
// [-24h, 24h) render with the full hour count, and negative durations get a
// leading minus sign.
func FormatDuration(d time.Duration) string {
	var sign string
	if d < 0 {
		sign = "-"
		d = -d
	}
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	us := (d - seconds*time.Second) / time.Microsecond
	if us != 0 {
		return fmt.Sprintf("%s%02d:%02d:%02d.%06d", sign, hours, minutes, seconds, us)
	}
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, hours, minutes, seconds)
}

// durationToMySQLTime converts d into the wire structure used for TIME
// parameter binding.
func durationToMySQLTime(d time.Duration) mysqlTime {
	var mt mysqlTime
	if d < 0 {
		mt.Neg = 1
		d = -d
	}
	mt.Hour = uint32(d / time.Hour)
	d -= time.Duration(mt.Hour) * time.Hour
	mt.Minute = uint32(d / time.Minute)
	d -= time.Duration(mt.Minute) * time.Minute
	mt.Second = uint32(d / time.Second)
	d -= time.Duration(mt.Second) * time.Second
	mt.SecondPart = ulong(d / time.Microsecond)
	mt.TimeType = mysqlTimestampTime
	return mt
}

// timeToMySQLTime converts t into the wire structure used for DATETIME
// parameter binding.
func timeToMySQLTime(t time.Time) mysqlTime {
	return mysqlTime{
		Year:       uint32(t.Year()),
		Month:      uint32(t.Month()),
		Day:        uint32(t.Day()),
		Hour:       uint32(t.Hour()),
		Minute:     uint32(t.Minute()),
		Second:     uint32(t.Second()),
		SecondPart: ulong(t.Nanosecond() / 1000),
		TimeType:   mysqlTimestampDatetime,
	}
}

// dateToMySQLTime converts d into the wire structure used for DATE
// parameter binding.
func dateToMySQLTime(d Date) mysqlTime {
	return mysqlTime{
		Year:     uint32(d.Year),
		Month:    uint32(d.Month),
		Day:      uint32(d.Day),
		TimeType: mysqlTimestampDate,
	}
}

// BitsToUint64 folds a BIT column's big-endian bytes into a uint64.
func BitsToUint64(raw []byte) uint64 {
	var v uint64
	for _, b := range raw {
		v = v<<8 | uint64(b)
	}
	return v
}

// NormalizeDecimalText strips insignificant leading zeros from a decimal
// literal so "0.10" stays intact while "007" becomes "7".
func NormalizeDecimalText(s string) string {
	neg := strings.HasPrefix(s, "-")
	body := strings.TrimPrefix(s, "-")
	for len(body) > 1 && body[0] == '0' && body[1] != '.' {
		body = body[1:]
	}
	if neg {
		return "-" + body
	}
	return body
}
