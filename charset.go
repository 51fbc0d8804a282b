package libmysql

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// resolveCharsetName maps a MySQL character set name to the canonical name
// used for decoding. The utf8mb3 and utf8mb4 variants all decode as UTF-8,
// and an unknown session charset falls back to latin1.
func resolveCharsetName(name string) string {
	switch name {
	case "utf8mb4", "utf8mb3", "utf8":
		return "utf8"
	case "":
		return "latin1"
	}
	return name
}

// charsetDecoders maps canonical MySQL charset names to decoders. UTF-8 and
// binary are handled before this table is consulted.
var charsetDecoders = map[string]encoding.Encoding{
	"latin1":   charmap.Windows1252,
	"latin2":   charmap.ISO8859_2,
	"latin5":   charmap.ISO8859_9,
	"latin7":   charmap.ISO8859_13,
	"greek":    charmap.ISO8859_7,
	"hebrew":   charmap.ISO8859_8,
	"koi8r":    charmap.KOI8R,
	"koi8u":    charmap.KOI8U,
	"cp850":    charmap.CodePage850,
	"cp852":    charmap.CodePage852,
	"cp866":    charmap.CodePage866,
	"cp1250":   charmap.Windows1250,
	"cp1251":   charmap.Windows1251,
	"cp1256":   charmap.Windows1256,
	"cp1257":   charmap.Windows1257,
	"ascii":    charmap.Windows1252,
	"macroman": charmap.Macintosh,
	"sjis":     japanese.ShiftJIS,
	"cp932":    japanese.ShiftJIS,
	"ujis":     japanese.EUCJP,
	"eucjpms":  japanese.EUCJP,
	"euckr":    korean.EUCKR,
	"gbk":      simplifiedchinese.GBK,
	"gb2312":   simplifiedchinese.HZGB2312,
	"gb18030":  simplifiedchinese.GB18030,
	"big5":     traditionalchinese.Big5,
	"ucs2":     unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	"utf16":    unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	"utf16le":  unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
}

func decodeError(charset string, raw []byte) error {
	return &ConversionError{
		Value: raw,
		Msg:   fmt.Sprintf("invalid %s byte sequence % x", charset, raw),
	}
}

// DecodeText decodes raw column bytes from the given MySQL character set
// into a Go string. Bytes that are not valid under the charset are an
// error, never silently replaced. The "binary" pseudo-charset passes bytes
// through untouched.
func DecodeText(raw []byte, charset string) (string, error) {
	name := resolveCharsetName(charset)
	switch name {
	case "utf8":
		if !utf8.Valid(raw) {
			return "", decodeError(name, raw)
		}
		return string(raw), nil
	case "binary":
		return string(raw), nil
	}
	dec, ok := charsetDecoders[name]
	if !ok {
		dec = charmap.Windows1252
	}
	out, err := dec.NewDecoder().Bytes(raw)
	if err != nil {
		return "", decodeError(name, raw)
	}
	return string(out), nil
}

// DecodeColumn converts raw column bytes into the host string or byte
// representation. Binary columns and a binary session charset yield the raw
// bytes; with Unicode decoding disabled the raw bytes are returned as well,
// matching the behavior of a connection opened without use_unicode.
func DecodeColumn(raw []byte, charsetnr uint32, charset string, useUnicode bool) (interface{}, error) {
	if charsetnr == binaryCharsetID || !useUnicode || resolveCharsetName(charset) == "binary" {
		return append([]byte(nil), raw...), nil
	}
	s, err := DecodeText(raw, charset)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// splitSet tokenizes a SET column's comma-separated member list.
func splitSet(s string) Set {
	set := make(Set)
	if s == "" {
		return set
	}
	for _, member := range strings.Split(s, ",") {
		set[member] = struct{}{}
	}
	return set
}
