package handler

import (
	"go.mongodb.org/mongo-driver/bson"
)

// ArgSpec declares one argument.
type ArgSpec struct {
	Name     string
	Type     string
	Required bool
	Desc     string
}

// Help is a handler's self-description. Args drive argument validation.
type Help struct {
	Type             string
	Desc             string
	Version          string
	AllowUnknownArgs bool
	Args             []ArgSpec
}

// Document renders h as
// {type, desc, version?, allowUnknownArgs?, args: [{name, type, req, desc}]}.
func (h *Help) Document() bson.D {
	if h == nil {
		return bson.D{}
	}
	doc := bson.D{}
	if h.Type != "" {
		doc = append(doc, bson.E{Key: "type", Value: h.Type})
	}
	if h.Desc != "" {
		doc = append(doc, bson.E{Key: "desc", Value: h.Desc})
	}
	if h.Version != "" {
		doc = append(doc, bson.E{Key: "version", Value: h.Version})
	}
	if h.AllowUnknownArgs {
		doc = append(doc, bson.E{Key: "allowUnknownArgs", Value: true})
	}
	if len(h.Args) > 0 {
		args := make(bson.A, 0, len(h.Args))
		for _, a := range h.Args {
			req := "N"
			if a.Required {
				req = "Y"
			}
			args = append(args, bson.D{
				{Key: "name", Value: a.Name},
				{Key: "type", Value: a.Type},
				{Key: "req", Value: req},
				{Key: "desc", Value: a.Desc},
			})
		}
		doc = append(doc, bson.E{Key: "args", Value: args})
	}
	return doc
}
