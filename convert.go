package libmysql

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unsafe"

	"github.com/shopspring/decimal"
)

// bindHold owns the C-visible buffers referenced by a mysqlBind. The caller
// must keep the hold reachable until the library call that consumes the
// bind has returned.
type bindHold struct {
	buf    []byte
	i64    int64
	f32    float32
	mt     mysqlTime
	length ulong
	isNull byte
}

func (h *bindHold) setBytes(bind *mysqlBind, b []byte) {
	h.buf = b
	h.length = ulong(len(b))
	if len(b) > 0 {
		bind.Buffer = unsafe.Pointer(&h.buf[0])
	}
	bind.BufferLength = ulong(len(b))
	bind.Length = &h.length
}

// bindValue classifies a host value into a parameter bind. It returns the
// hold that owns the bind's buffers.
func bindValue(bind *mysqlBind, value interface{}, strFallback bool) (*bindHold, error) {
	h := &bindHold{}

	switch v := value.(type) {
	case nil:
		bind.BufferType = TypeNull
		h.isNull = 1
		bind.IsNull = &h.isNull

	case bool:
		bind.BufferType = TypeLongLong
		if v {
			h.i64 = 1
		}
		bind.Buffer = unsafe.Pointer(&h.i64)

	case int:
		h.i64 = int64(v)
		bind.BufferType = TypeLongLong
		bind.Buffer = unsafe.Pointer(&h.i64)
	case int8:
		h.i64 = int64(v)
		bind.BufferType = TypeLongLong
		bind.Buffer = unsafe.Pointer(&h.i64)
	case int16:
		h.i64 = int64(v)
		bind.BufferType = TypeLongLong
		bind.Buffer = unsafe.Pointer(&h.i64)
	case int32:
		h.i64 = int64(v)
		bind.BufferType = TypeLongLong
		bind.Buffer = unsafe.Pointer(&h.i64)
	case int64:
		h.i64 = v
		bind.BufferType = TypeLongLong
		bind.Buffer = unsafe.Pointer(&h.i64)
	case uint:
		h.i64 = int64(v)
		bind.BufferType = TypeLongLong
		bind.IsUnsigned = 1
		bind.Buffer = unsafe.Pointer(&h.i64)
	case uint8:
		h.i64 = int64(v)
		bind.BufferType = TypeLongLong
		bind.IsUnsigned = 1
		bind.Buffer = unsafe.Pointer(&h.i64)
	case uint16:
		h.i64 = int64(v)
		bind.BufferType = TypeLongLong
		bind.IsUnsigned = 1
		bind.Buffer = unsafe.Pointer(&h.i64)
	case uint32:
		h.i64 = int64(v)
		bind.BufferType = TypeLongLong
		bind.IsUnsigned = 1
		bind.Buffer = unsafe.Pointer(&h.i64)
	case uint64:
		h.i64 = int64(v)
		bind.BufferType = TypeLongLong
		bind.IsUnsigned = 1
		bind.Buffer = unsafe.Pointer(&h.i64)

	case float32:
		h.f32 = v
		bind.BufferType = TypeFloat
		bind.Buffer = unsafe.Pointer(&h.f32)
	case float64:
		// The binary protocol accepts FLOAT for both float widths; the
		// server widens it server-side.
		h.f32 = float32(v)
		bind.BufferType = TypeFloat
		bind.Buffer = unsafe.Pointer(&h.f32)

	case string:
		bind.BufferType = TypeString
		h.setBytes(bind, []byte(v))
	case []byte:
		bind.BufferType = TypeBlob
		h.setBytes(bind, v)

	case time.Time:
		h.mt = timeToMySQLTime(v)
		bind.BufferType = TypeDatetime
		bind.Buffer = unsafe.Pointer(&h.mt)
	case Date:
		h.mt = dateToMySQLTime(v)
		bind.BufferType = TypeDate
		bind.Buffer = unsafe.Pointer(&h.mt)
	case TimeOfDay:
		h.mt = durationToMySQLTime(v.Duration())
		bind.BufferType = TypeTime
		bind.Buffer = unsafe.Pointer(&h.mt)
	case time.Duration:
		h.mt = durationToMySQLTime(v)
		bind.BufferType = TypeTime
		bind.Buffer = unsafe.Pointer(&h.mt)

	case decimal.Decimal:
		bind.BufferType = TypeNewDecimal
		h.setBytes(bind, []byte(NormalizeDecimalText(v.String())))

	default:
		if !strFallback {
			return nil, newConversionError(value)
		}
		bind.BufferType = TypeString
		h.setBytes(bind, []byte(fmt.Sprint(value)))
	}
	return h, nil
}

// quote wraps escaped literal bytes in single quotes.
func quote(b []byte) []byte {
	out := make([]byte, 0, len(b)+2)
	out = append(out, '\'')
	out = append(out, b...)
	return append(out, '\'')
}

// convertTuple renders host values as SQL literal fragments. Strings and
// byte slices pass through escape before quoting; numbers and decimals stay
// unquoted; temporal values quote their canonical text form. With
// strFallback, unsupported types fall back to their string representation,
// quoted but not escaped.
func convertTuple(values []interface{}, escape func([]byte) []byte, strFallback bool) ([][]byte, error) {
	out := make([][]byte, len(values))
	for i, value := range values {
		frag, err := convertLiteral(value, escape, strFallback)
		if err != nil {
			return nil, err
		}
		out[i] = frag
	}
	return out, nil
}

func convertLiteral(value interface{}, escape func([]byte) []byte, strFallback bool) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return []byte("NULL"), nil
	case bool:
		if v {
			return []byte("1"), nil
		}
		return []byte("0"), nil
	case int:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case int8:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case int16:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case int32:
		return strconv.AppendInt(nil, int64(v), 10), nil
	case int64:
		return strconv.AppendInt(nil, v, 10), nil
	case uint:
		return strconv.AppendUint(nil, uint64(v), 10), nil
	case uint8:
		return strconv.AppendUint(nil, uint64(v), 10), nil
	case uint16:
		return strconv.AppendUint(nil, uint64(v), 10), nil
	case uint32:
		return strconv.AppendUint(nil, uint64(v), 10), nil
	case uint64:
		return strconv.AppendUint(nil, v, 10), nil
	case float32:
		return strconv.AppendFloat(nil, float64(v), 'g', -1, 32), nil
	case float64:
		return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
	case string:
		return quote(escape([]byte(v))), nil
	case []byte:
		return quote(escape(v)), nil
	case time.Time:
		return quote([]byte(FormatDateTime(v))), nil
	case Date:
		return quote([]byte(FormatDate(v))), nil
	case TimeOfDay:
		return quote([]byte(FormatTimeOfDay(v))), nil
	case time.Duration:
		return quote([]byte(FormatDuration(v))), nil
	case decimal.Decimal:
		return []byte(NormalizeDecimalText(v.String())), nil
	case Set:
		members := make([]string, 0, len(v))
		for m := range v {
			members = append(members, m)
		}
		sort.Strings(members)
		return quote(escape([]byte(strings.Join(members, ",")))), nil
	default:
		if !strFallback {
			return nil, newConversionError(value)
		}
		return quote([]byte(fmt.Sprint(value))), nil
	}
}
