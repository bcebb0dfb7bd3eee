// Package validator checks decoded call arguments against a handler's
// declared argument list.
package validator

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/morezero/webf/pkg/handler"
	"github.com/morezero/webf/pkg/mson"
)

// PositionalKey holds path segments and is never reported as unknown.
const PositionalKey = "_"

// AnyType matches every value.
const AnyType = "any"

// Violation codes.
const (
	CodeMissing = 1
	CodeInvalid = 2
)

// typeAliases map accepted spellings onto the tags reported by mson.TypeName.
var typeAliases = map[string]string{
	"long":     mson.TypeInt,
	"float":    mson.TypeDouble,
	"date":     mson.TypeDatetime,
	"document": mson.TypeDict,
	"object":   mson.TypeDict,
	"boolean":  mson.TypeBool,
	"list":     mson.TypeArray,
}

// CanonicalType resolves a declared type to the tag TypeName reports.
func CanonicalType(declared string) string {
	if t, ok := typeAliases[declared]; ok {
		return t
	}
	return declared
}

// Check returns every problem with args; an empty result means args are
// acceptable. Problems are error documents ready to send to the caller.
func Check(help *handler.Help, args bson.D) []bson.D {
	if help == nil {
		help = &handler.Help{}
	}

	var errs []bson.D
	declared := make(map[string]struct{}, len(help.Args))

	for _, spec := range help.Args {
		declared[spec.Name] = struct{}{}

		value, present := mson.Get(args, spec.Name)
		if !present {
			if spec.Required {
				errs = append(errs, bson.D{
					{Key: "errcode", Value: CodeMissing},
					{Key: "msg", Value: "req arg not found"},
					{Key: "data", Value: spec.Name},
				})
			}
			continue
		}

		if spec.Type == "" || spec.Type == AnyType {
			continue
		}
		found := mson.TypeName(value)
		if found != CanonicalType(spec.Type) {
			errs = append(errs, bson.D{
				{Key: "errcode", Value: CodeInvalid},
				{Key: "msg", Value: "arg has wrong type"},
				{Key: "data", Value: bson.D{
					{Key: "arg", Value: spec.Name},
					{Key: "expected", Value: spec.Type},
					{Key: "found", Value: found},
				}},
			})
		}
	}

	if !help.AllowUnknownArgs {
		for _, e := range args {
			if e.Key == PositionalKey {
				continue
			}
			if _, ok := declared[e.Key]; ok {
				continue
			}
			errs = append(errs, bson.D{
				{Key: "errcode", Value: CodeInvalid},
				{Key: "msg", Value: "unknown arg"},
				{Key: "data", Value: bson.D{{Key: "arg", Value: e.Key}}},
			})
		}
	}

	return errs
}
