// Package mson converts between JSON text and typed documents, with optional
// awareness of MongoDB "extended JSON" type tags such as
// {"$numberDecimal": "234.23"}.
//
// Two modes are supported:
//
//   - Pure: parse returns the plain JSON structure; write emits plain JSON
//     (decimals as bare numbers, dates as quoted ISO-8601 strings).
//   - Mongo: parse rewrites recognised type-tag objects ($numberLong,
//     $numberInt, $numberDecimal, $numberDouble, $numberFloat, $date, $oid,
//     $binary) into typed scalars; write wraps values JSON cannot carry
//     losslessly in the same tags.
//
// Documents are represented as bson.D so key order survives a round trip and
// the same value can be handed to the BSON encoder unchanged.
package mson

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// Mode selects the parse and emission rules.
type Mode int

const (
	// Pure is plain JSON fidelity.
	Pure Mode = iota
	// Mongo is extended-JSON fidelity.
	Mongo
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Pure:
		return "pure"
	case Mongo:
		return "mongo"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Document is an ordered set of key/value pairs.
type Document = bson.D

// ErrMalformedDocument is a sentinel for use with errors.Is.
var ErrMalformedDocument = &MalformedDocumentError{}

// MalformedDocumentError is returned when parse input is not a JSON object.
type MalformedDocumentError struct {
	Reason string
}

func (e *MalformedDocumentError) Error() string {
	return "mson: malformed document: " + e.Reason
}

// Is supports errors.Is by matching any *MalformedDocumentError target.
func (e *MalformedDocumentError) Is(target error) bool {
	_, ok := target.(*MalformedDocumentError)
	return ok
}

// Get returns the value stored under key at the top level of doc.
func Get(doc bson.D, key string) (interface{}, bool) {
	for _, e := range doc {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Set replaces the value under key in place, or appends it when absent.
func Set(doc bson.D, key string, value interface{}) bson.D {
	for i := range doc {
		if doc[i].Key == key {
			doc[i].Value = value
			return doc
		}
	}
	return append(doc, bson.E{Key: key, Value: value})
}
