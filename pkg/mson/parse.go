package mson

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// isoLayouts are tried in order for string $date values containing a 'T'.
// Values without a zone designator are taken as UTC.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
}

// Parse decodes text as a JSON object. In Mongo mode every nested object that
// has the exact shape of a recognised type tag is replaced by the typed value;
// objects that only resemble a tag are kept as ordinary documents.
//
// JSON integers decode to int64 (float64 when they overflow int64), other
// numbers to float64, objects to bson.D and arrays to bson.A.
func Parse(text string, mode Mode) (bson.D, error) {
	if !gjson.Valid(text) {
		return nil, &MalformedDocumentError{Reason: "invalid JSON"}
	}
	root := gjson.Parse(text)
	if !root.IsObject() {
		return nil, &MalformedDocumentError{Reason: "top-level value is not an object"}
	}
	p := parser{mode: mode}
	return p.object(root), nil
}

type parser struct {
	mode Mode
}

func (p parser) object(r gjson.Result) bson.D {
	doc := bson.D{}
	r.ForEach(func(key, value gjson.Result) bool {
		// Duplicate keys keep their first position and take the last value.
		doc = Set(doc, key.Str, p.value(value))
		return true
	})
	return doc
}

func (p parser) array(r gjson.Result) bson.A {
	arr := bson.A{}
	r.ForEach(func(_, value gjson.Result) bool {
		arr = append(arr, p.value(value))
		return true
	})
	return arr
}

func (p parser) value(r gjson.Result) interface{} {
	switch r.Type {
	case gjson.Null:
		return nil
	case gjson.True:
		return true
	case gjson.False:
		return false
	case gjson.String:
		return r.Str
	case gjson.Number:
		return number(r)
	}
	if r.IsArray() {
		return p.array(r)
	}
	if p.mode == Mongo {
		if v, ok := typeTag(r); ok {
			return v
		}
	}
	return p.object(r)
}

func number(r gjson.Result) interface{} {
	if !strings.ContainsAny(r.Raw, ".eE") {
		if n, err := strconv.ParseInt(r.Raw, 10, 64); err == nil {
			return n
		}
	}
	f, err := strconv.ParseFloat(r.Raw, 64)
	if err != nil {
		return r.Num
	}
	return f
}

type member struct {
	key   string
	value gjson.Result
}

func members(r gjson.Result) []member {
	var out []member
	r.ForEach(func(key, value gjson.Result) bool {
		out = append(out, member{key: key.Str, value: value})
		return len(out) <= 2
	})
	return out
}

// typeTag converts an extended-JSON tag object. ok is false when the object
// does not have a recognised shape or its payload cannot be converted.
func typeTag(r gjson.Result) (interface{}, bool) {
	m := members(r)
	switch len(m) {
	case 1:
		return singleKeyTag(m[0].key, m[0].value)
	case 2:
		var payload gjson.Result
		switch {
		case m[0].key == "$binary" && m[1].key == "$type":
			payload = m[0].value
		case m[1].key == "$binary" && m[0].key == "$type":
			payload = m[1].value
		default:
			return nil, false
		}
		return binaryValue(payload)
	}
	return nil, false
}

func singleKeyTag(key string, v gjson.Result) (interface{}, bool) {
	switch key {
	case "$numberLong":
		n, err := strconv.ParseInt(scalarText(v), 10, 64)
		if err != nil {
			return nil, false
		}
		return n, true
	case "$numberInt":
		n, err := strconv.ParseInt(scalarText(v), 10, 32)
		if err != nil {
			return nil, false
		}
		return int32(n), true
	case "$numberDecimal":
		d, err := primitive.ParseDecimal128(scalarText(v))
		if err != nil {
			return nil, false
		}
		return d, true
	case "$numberFloat", "$numberDouble":
		f, err := strconv.ParseFloat(scalarText(v), 64)
		if err != nil {
			return nil, false
		}
		return f, true
	case "$date":
		return dateValue(v)
	case "$oid":
		if v.Type != gjson.String {
			return nil, false
		}
		oid, err := primitive.ObjectIDFromHex(v.Str)
		if err != nil {
			return nil, false
		}
		return oid, true
	case "$binary":
		if v.IsObject() {
			// {"$binary": {"base64": "...", "subType": "00"}}
			b64 := v.Get("base64")
			if !b64.Exists() {
				return nil, false
			}
			return binaryValue(b64)
		}
		return binaryValue(v)
	}
	return nil, false
}

func scalarText(v gjson.Result) string {
	if v.Type == gjson.String {
		return strings.TrimSpace(v.Str)
	}
	return v.Raw
}

func binaryValue(v gjson.Result) (interface{}, bool) {
	if v.Type != gjson.String {
		return nil, false
	}
	data, err := base64.StdEncoding.DecodeString(v.Str)
	if err != nil {
		return nil, false
	}
	return primitive.Binary{Subtype: 0x00, Data: data}, true
}

func dateValue(v gjson.Result) (interface{}, bool) {
	switch v.Type {
	case gjson.Number:
		n, err := strconv.ParseInt(v.Raw, 10, 64)
		if err != nil {
			return nil, false
		}
		return fromMillis(n), true
	case gjson.String:
		s := strings.TrimSpace(v.Str)
		if strings.Contains(s, "T") {
			for _, layout := range isoLayouts {
				if t, err := time.Parse(layout, s); err == nil {
					return t.UTC().Truncate(time.Millisecond), true
				}
			}
			return nil, false
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, false
		}
		return fromMillis(n), true
	}
	if v.IsObject() {
		// {"$date": {"$numberLong": "..."}}
		m := members(v)
		if len(m) == 1 && m[0].key == "$numberLong" {
			n, err := strconv.ParseInt(scalarText(m[0].value), 10, 64)
			if err != nil {
				return nil, false
			}
			return fromMillis(n), true
		}
	}
	return nil, false
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
