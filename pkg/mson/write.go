package mson

import (
	"encoding/base64"
	"fmt"
	"io"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// isoMillis renders timestamps with exactly three fractional digits.
const isoMillis = "2006-01-02T15:04:05.000Z"

const hexDigits = "0123456789abcdef"

// Write emits doc as a single line followed by a newline.
func Write(w io.Writer, doc bson.D, mode Mode) error {
	buf := AppendDocument(make([]byte, 0, 256), doc, mode)
	buf = append(buf, '\n')
	_, err := w.Write(buf)
	return err
}

// Marshal returns doc as a single line without a trailing newline.
func Marshal(doc bson.D, mode Mode) []byte {
	return AppendDocument(nil, doc, mode)
}

// AppendDocument appends the encoding of doc to dst. Keys are emitted in
// their stored order.
func AppendDocument(dst []byte, doc bson.D, mode Mode) []byte {
	dst = append(dst, '{')
	for i, e := range doc {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = appendString(dst, e.Key)
		dst = append(dst, ':')
		dst = appendValue(dst, e.Value, mode)
	}
	return append(dst, '}')
}

func appendValue(dst []byte, v interface{}, mode Mode) []byte {
	switch v := v.(type) {
	case nil:
		return append(dst, "null"...)
	case primitive.Null:
		return append(dst, "null"...)
	case primitive.Binary:
		return appendBinary(dst, v.Data)
	case []byte:
		return appendBinary(dst, v)
	case primitive.Decimal128:
		if mode == Mongo {
			return appendTagged(dst, "$numberDecimal", v.String())
		}
		if v.IsNaN() || v.IsInf() != 0 {
			return append(dst, "null"...)
		}
		return append(dst, v.String()...)
	case string:
		return appendString(dst, v)
	// bool is matched before any integer case.
	case bool:
		return strconv.AppendBool(dst, v)
	case int:
		return appendInt(dst, int64(v), mode)
	case int8:
		return appendInt(dst, int64(v), mode)
	case int16:
		return appendInt(dst, int64(v), mode)
	case int32:
		return appendInt(dst, int64(v), mode)
	case int64:
		return appendInt(dst, v, mode)
	case uint8:
		return appendInt(dst, int64(v), mode)
	case uint16:
		return appendInt(dst, int64(v), mode)
	case uint32:
		return appendInt(dst, int64(v), mode)
	case uint:
		return appendUint(dst, uint64(v), mode)
	case uint64:
		return appendUint(dst, v, mode)
	case float32:
		return appendDouble(dst, float64(v), 32, mode)
	case float64:
		return appendDouble(dst, v, 64, mode)
	case time.Time:
		return appendDate(dst, v, mode)
	case primitive.DateTime:
		return appendDate(dst, v.Time(), mode)
	case primitive.ObjectID:
		return appendTagged(dst, "$oid", v.Hex())
	case bson.D:
		return AppendDocument(dst, v, mode)
	case bson.M:
		return appendMap(dst, v, mode)
	case map[string]interface{}:
		return appendMap(dst, v, mode)
	case bson.A:
		return appendArray(dst, v, mode)
	case []interface{}:
		return appendArray(dst, v, mode)
	case []bson.D:
		dst = append(dst, '[')
		for i, d := range v {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = AppendDocument(dst, d, mode)
		}
		return append(dst, ']')
	}
	return appendReflect(dst, v, mode)
}

// appendReflect covers typed slices, string-keyed maps and pointers. Anything
// else is rendered as a "<type>::<value>" string so one odd field does not
// abort a whole stream.
func appendReflect(dst []byte, v interface{}, mode Mode) []byte {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return append(dst, "null"...)
		}
		dst = append(dst, '[')
		for i := 0; i < rv.Len(); i++ {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = appendValue(dst, rv.Index(i).Interface(), mode)
		}
		return append(dst, ']')
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		m := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return appendMap(dst, m, mode)
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return append(dst, "null"...)
		}
		return appendValue(dst, rv.Elem().Interface(), mode)
	}
	return appendString(dst, fmt.Sprintf("%T::%v", v, v))
}

// appendMap emits an unordered map with its keys sorted.
func appendMap(dst []byte, m map[string]interface{}, mode Mode) []byte {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	dst = append(dst, '{')
	for i, k := range keys {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = appendString(dst, k)
		dst = append(dst, ':')
		dst = appendValue(dst, m[k], mode)
	}
	return append(dst, '}')
}

func appendArray(dst []byte, arr []interface{}, mode Mode) []byte {
	dst = append(dst, '[')
	for i, item := range arr {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = appendValue(dst, item, mode)
	}
	return append(dst, ']')
}

func appendTagged(dst []byte, tag, value string) []byte {
	dst = append(dst, '{')
	dst = appendString(dst, tag)
	dst = append(dst, ':')
	dst = appendString(dst, value)
	return append(dst, '}')
}

func appendBinary(dst []byte, data []byte) []byte {
	dst = append(dst, `{"$binary":"`...)
	dst = append(dst, base64.StdEncoding.EncodeToString(data)...)
	return append(dst, `","$type":"00"}`...)
}

// appendInt wraps values beyond +/-2147483647 as $numberLong in Mongo mode.
func appendInt(dst []byte, n int64, mode Mode) []byte {
	if mode == Mongo && (n > math.MaxInt32 || n < -math.MaxInt32) {
		return appendTagged(dst, "$numberLong", strconv.FormatInt(n, 10))
	}
	return strconv.AppendInt(dst, n, 10)
}

func appendUint(dst []byte, n uint64, mode Mode) []byte {
	if mode == Mongo && n > math.MaxInt32 {
		return appendTagged(dst, "$numberLong", strconv.FormatUint(n, 10))
	}
	return strconv.AppendUint(dst, n, 10)
}

// appendDouble always includes a decimal point so the reader can tell a
// double from an integer. Non-finite values have no JSON literal: Mongo mode
// tags them, Pure mode emits null.
func appendDouble(dst []byte, f float64, bitSize int, mode Mode) []byte {
	var special string
	switch {
	case math.IsNaN(f):
		special = "NaN"
	case math.IsInf(f, 1):
		special = "Infinity"
	case math.IsInf(f, -1):
		special = "-Infinity"
	}
	if special != "" {
		if mode == Mongo {
			return appendTagged(dst, "$numberDouble", special)
		}
		return append(dst, "null"...)
	}

	format := byte('f')
	if abs := math.Abs(f); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		format = 'e'
	}
	s := strconv.FormatFloat(f, format, -1, bitSize)
	if !strings.Contains(s, ".") {
		if i := strings.IndexByte(s, 'e'); i >= 0 {
			s = s[:i] + ".0" + s[i:]
		} else {
			s += ".0"
		}
	}
	return append(dst, s...)
}

func appendDate(dst []byte, t time.Time, mode Mode) []byte {
	iso := t.UTC().Format(isoMillis)
	if mode == Mongo {
		return appendTagged(dst, "$date", iso)
	}
	return appendString(dst, iso)
}

// appendString quotes s, escaping backslash, double quote and all control
// characters.
func appendString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	start := 0
	for i := 0; i < len(s); {
		c := s[i]
		if c >= 0x20 && c != '"' && c != '\\' {
			if c < utf8.RuneSelf {
				i++
				continue
			}
			_, size := utf8.DecodeRuneInString(s[i:])
			i += size
			continue
		}
		dst = append(dst, s[start:i]...)
		switch c {
		case '"', '\\':
			dst = append(dst, '\\', c)
		case '\n':
			dst = append(dst, '\\', 'n')
		case '\t':
			dst = append(dst, '\\', 't')
		case '\r':
			dst = append(dst, '\\', 'r')
		case '\b':
			dst = append(dst, '\\', 'b')
		case '\f':
			dst = append(dst, '\\', 'f')
		default:
			dst = append(dst, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
		}
		i++
		start = i
	}
	dst = append(dst, s[start:]...)
	return append(dst, '"')
}
