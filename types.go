package libmysql

import (
	"fmt"
	"time"
	"unsafe"
)

// FieldType is the protocol-level tag identifying a column's on-the-wire
// representation (enum_field_types in the C client library).
type FieldType int32

const (
	TypeDecimal    FieldType = 0
	TypeTiny       FieldType = 1
	TypeShort      FieldType = 2
	TypeLong       FieldType = 3
	TypeFloat      FieldType = 4
	TypeDouble     FieldType = 5
	TypeNull       FieldType = 6
	TypeTimestamp  FieldType = 7
	TypeLongLong   FieldType = 8
	TypeInt24      FieldType = 9
	TypeDate       FieldType = 10
	TypeTime       FieldType = 11
	TypeDatetime   FieldType = 12
	TypeYear       FieldType = 13
	TypeNewDate    FieldType = 14
	TypeVarchar    FieldType = 15
	TypeBit        FieldType = 16
	TypeJSON       FieldType = 245
	TypeNewDecimal FieldType = 246
	TypeEnum       FieldType = 247
	TypeSet        FieldType = 248
	TypeTinyBlob   FieldType = 249
	TypeMediumBlob FieldType = 250
	TypeLongBlob   FieldType = 251
	TypeBlob       FieldType = 252
	TypeVarString  FieldType = 253
	TypeString     FieldType = 254
	TypeGeometry   FieldType = 255
)

// Column flag bits as reported in MYSQL_FIELD.flags.
const (
	NotNullFlag       uint32 = 1
	PriKeyFlag        uint32 = 2
	UniqueKeyFlag     uint32 = 4
	MultipleKeyFlag   uint32 = 8
	BlobFlag          uint32 = 16
	UnsignedFlag      uint32 = 32
	ZerofillFlag      uint32 = 64
	BinaryFlag        uint32 = 128
	EnumFlag          uint32 = 256
	AutoIncrementFlag uint32 = 512
	TimestampFlag     uint32 = 1024
	SetFlag           uint32 = 2048
	NumFlag           uint32 = 32768
)

// binaryCharsetID is the collation id of the 'binary' pseudo-charset.
// Columns reported with this id carry raw bytes, never text.
const binaryCharsetID = 63

// mysql_stmt_fetch return codes besides 0 (row fetched) and 1 (error).
const (
	fetchNoData    int32 = 100 // MYSQL_NO_DATA
	fetchTruncated int32 = 101 // MYSQL_DATA_TRUNCATED
)

// mysql_shutdown levels. Only the default is exposed.
const shutdownDefault uint32 = 2

// Client capability flags accepted in Config.ClientFlags.
const (
	ClientFoundRows       uint32 = 2
	ClientConnectWithDB   uint32 = 8
	ClientCompress        uint32 = 32
	ClientLocalFiles      uint32 = 128
	ClientSSL             uint32 = 2048
	ClientMultiStatements uint32 = 1 << 16
	ClientMultiResults    uint32 = 1 << 17
)

// mysql_options codes used at connect time (enum mysql_option).
const (
	optConnectTimeout     uint32 = 0
	optCompress           uint32 = 1
	optNamedPipe          uint32 = 2
	optSetCharsetName     uint32 = 7
	optLocalInfile        uint32 = 8
	optProtocol           uint32 = 9
	optReadTimeout        uint32 = 11
	optWriteTimeout       uint32 = 12
	optPluginDir          uint32 = 16
	optDefaultAuth        uint32 = 17
	optConnectAttrAdd     uint32 = 27
	optServerPublicKey    uint32 = 29
	optEnableCleartext    uint32 = 30
	optTLSVersion         uint32 = 34
	optSSLMode            uint32 = 35
	optGetServerPublicKey uint32 = 36
	optLoadDataLocalDir   uint32 = 43
	optUserPassword       uint32 = 44
)

// mysql_options protocol values.
const (
	protocolTCP    uint32 = 1
	protocolSocket uint32 = 2
	protocolPipe   uint32 = 3
)

// SSL modes (MYSQL_OPT_SSL_MODE values).
const (
	SSLModeDisabled       uint32 = 1
	SSLModePreferred      uint32 = 2
	SSLModeRequired       uint32 = 3
	SSLModeVerifyCA       uint32 = 4
	SSLModeVerifyIdentity uint32 = 5
)

// Set is the converted value of a SET-flagged string column: an unordered
// collection of the comma-separated member names.
type Set map[string]struct{}

// NewSet builds a Set from member names.
func NewSet(members ...string) Set {
	s := make(Set, len(members))
	for _, m := range members {
		s[m] = struct{}{}
	}
	return s
}

// Has reports whether the set contains member.
func (s Set) Has(member string) bool {
	_, ok := s[member]
	return ok
}

// Date is a calendar date without a time component. Binding a Date sends
// the DATE wire type; binding a time.Time sends DATETIME.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// Time returns the date at midnight UTC.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// TimeOfDay is a wall-clock time within one day. Binding a TimeOfDay sends
// the TIME wire type; binding a time.Duration also sends TIME but may span
// days and be negative.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
	Micros int
}

// Duration returns the elapsed time since midnight.
func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t.Hour)*time.Hour +
		time.Duration(t.Minute)*time.Minute +
		time.Duration(t.Second)*time.Second +
		time.Duration(t.Micros)*time.Microsecond
}

// TypeName returns a human-readable name for a wire type.
func TypeName(t FieldType) string {
	switch t {
	case TypeDecimal:
		return "DECIMAL"
	case TypeTiny:
		return "TINY"
	case TypeShort:
		return "SHORT"
	case TypeLong:
		return "LONG"
	case TypeFloat:
		return "FLOAT"
	case TypeDouble:
		return "DOUBLE"
	case TypeNull:
		return "NULL"
	case TypeTimestamp:
		return "TIMESTAMP"
	case TypeLongLong:
		return "LONGLONG"
	case TypeInt24:
		return "INT24"
	case TypeDate:
		return "DATE"
	case TypeTime:
		return "TIME"
	case TypeDatetime:
		return "DATETIME"
	case TypeYear:
		return "YEAR"
	case TypeNewDate:
		return "NEWDATE"
	case TypeVarchar:
		return "VARCHAR"
	case TypeBit:
		return "BIT"
	case TypeJSON:
		return "JSON"
	case TypeNewDecimal:
		return "NEWDECIMAL"
	case TypeEnum:
		return "ENUM"
	case TypeSet:
		return "SET"
	case TypeTinyBlob:
		return "TINY_BLOB"
	case TypeMediumBlob:
		return "MEDIUM_BLOB"
	case TypeLongBlob:
		return "LONG_BLOB"
	case TypeBlob:
		return "BLOB"
	case TypeVarString:
		return "VAR_STRING"
	case TypeString:
		return "STRING"
	case TypeGeometry:
		return "GEOMETRY"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int32(t))
	}
}

// mysqlTime mirrors MYSQL_TIME from the C client library. Field alignment
// matches the C layout on both LP64 and LLP64 targets because ulong tracks
// the platform's unsigned long width.
type mysqlTime struct {
	Year       uint32
	Month      uint32
	Day        uint32
	Hour       uint32
	Minute     uint32
	Second     uint32
	SecondPart ulong
	Neg        byte
	TimeType   int32
	TZOffset   int32
}

// enum_mysql_timestamp_type values for mysqlTime.TimeType.
const (
	mysqlTimestampDate     int32 = 0
	mysqlTimestampDatetime int32 = 1
	mysqlTimestampTime     int32 = 2
)

// mysqlField mirrors MYSQL_FIELD from the C client library (8.x layout).
type mysqlField struct {
	Name           uintptr
	OrgName        uintptr
	Table          uintptr
	OrgTable       uintptr
	DB             uintptr
	Catalog        uintptr
	Def            uintptr
	Length         ulong
	MaxLength      ulong
	NameLength     uint32
	OrgNameLength  uint32
	TableLength    uint32
	OrgTableLength uint32
	DBLength       uint32
	CatalogLength  uint32
	DefLength      uint32
	Flags          uint32
	Decimals       uint32
	Charsetnr      uint32
	Type           FieldType
	Extension      uintptr
}

// mysqlBind mirrors MYSQL_BIND from the C client library (8.x layout).
// Pointer-valued fields must reference memory kept alive by the caller for
// the full duration of the bind-execute-fetch cycle.
type mysqlBind struct {
	Length       *ulong
	IsNull       *byte
	Buffer       unsafe.Pointer
	Error        *byte
	RowPtr       uintptr
	StoreParam   uintptr
	FetchResult  uintptr
	SkipResult   uintptr
	BufferLength ulong
	Offset       ulong
	LengthValue  ulong
	ParamNumber  uint32
	PackLength   uint32
	BufferType   FieldType
	ErrorValue   byte
	IsUnsigned   byte
	LongDataUsed byte
	IsNullValue  byte
	Extension    uintptr
}

// goBytes copies n bytes at a C pointer into a fresh Go slice.
func goBytes(p uintptr, n int) []byte {
	if p == 0 || n == 0 {
		return nil
	}
	out := make([]byte, n)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(p)), n))
	return out
}

// goString copies a NUL-terminated C string into a Go string.
func goString(p uintptr) string {
	if p == 0 {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Pointer(p + uintptr(n))) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(unsafe.Pointer(p)), n))
}
