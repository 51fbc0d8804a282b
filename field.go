package libmysql

import "unsafe"

// Field describes one column of a result set.
type Field struct {
	Catalog   string
	Schema    string
	Table     string
	OrgTable  string
	Name      string
	OrgName   string
	Length    uint64
	MaxLength uint64
	Type      FieldType
	Flags     uint32
	Decimals  uint32
	Charsetnr uint32
}

// IsBinary reports whether the column carries binary data.
func (f *Field) IsBinary() bool {
	return f.Charsetnr == binaryCharsetID
}

// IsUnsigned reports whether the column is an unsigned numeric type.
func (f *Field) IsUnsigned() bool {
	return f.Flags&UnsignedFlag != 0
}

// fieldString decodes a metadata string of the given byte length. Column
// metadata always arrives in the connection's metadata character set.
func fieldString(p uintptr, n uint32, charset string) (string, error) {
	if p == 0 || n == 0 {
		return "", nil
	}
	return DecodeText(goBytes(p, int(n)), charset)
}

// describeColumns reads the MYSQL_FIELD array for a result set. The charset
// argument names the character set metadata strings are encoded in, which is
// utf8mb4 on 8.x servers regardless of the session charset.
func describeColumns(res uintptr, charset string) ([]Field, error) {
	n := int(mysqlNumFields(res))
	if n == 0 {
		return nil, nil
	}
	raw := mysqlFetchFields(res)
	if raw == 0 {
		return nil, nil
	}
	cfields := unsafe.Slice((*mysqlField)(unsafe.Pointer(raw)), n)

	fields := make([]Field, n)
	for i := range cfields {
		cf := &cfields[i]

		var err error
		str := func(p uintptr, length uint32) string {
			if err != nil {
				return ""
			}
			var s string
			s, err = fieldString(p, length, charset)
			return s
		}

		fields[i] = Field{
			Catalog:   str(cf.Catalog, cf.CatalogLength),
			Schema:    str(cf.DB, cf.DBLength),
			Table:     str(cf.Table, cf.TableLength),
			OrgTable:  str(cf.OrgTable, cf.OrgTableLength),
			Name:      str(cf.Name, cf.NameLength),
			OrgName:   str(cf.OrgName, cf.OrgNameLength),
			Length:    uint64(cf.Length),
			MaxLength: uint64(cf.MaxLength),
			Type:      cf.Type,
			Flags:     cf.Flags,
			Decimals:  cf.Decimals,
			Charsetnr: cf.Charsetnr,
		}
		if err != nil {
			return nil, err
		}
	}
	return fields, nil
}
