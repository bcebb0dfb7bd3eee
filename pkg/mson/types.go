package mson

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Type tags reported by TypeName.
const (
	TypeNull     = "null"
	TypeBool     = "bool"
	TypeInt      = "int"
	TypeDouble   = "double"
	TypeDecimal  = "decimal"
	TypeString   = "string"
	TypeDatetime = "datetime"
	TypeBinary   = "binary"
	TypeObjectID = "objectid"
	TypeArray    = "array"
	TypeDict     = "dict"
	TypeUnknown  = "unknown"
)

// TypeName derives the structural type tag of a decoded value.
func TypeName(v interface{}) string {
	switch v.(type) {
	case nil, primitive.Null:
		return TypeNull
	case bool:
		return TypeBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeInt
	case float32, float64:
		return TypeDouble
	case primitive.Decimal128:
		return TypeDecimal
	case string:
		return TypeString
	case time.Time, primitive.DateTime:
		return TypeDatetime
	case primitive.Binary, []byte:
		return TypeBinary
	case primitive.ObjectID:
		return TypeObjectID
	case bson.A, []interface{}, []string:
		return TypeArray
	case bson.D, bson.M, map[string]interface{}:
		return TypeDict
	}
	return TypeUnknown
}

// AsInt64 converts any integer value, or a double with no fractional part, to
// int64.
func AsInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || n > math.MaxInt64 || n < math.MinInt64 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

// AsString returns v when it is a string.
func AsString(v interface{}) (string, bool) {
	s, ok := v.(string)
	return s, ok
}
