package dispatcher

import (
	"go.mongodb.org/mongo-driver/bson"
)

// Error codes carried in the errcode field of error documents.
const (
	CodeMissingArg     = 1
	CodeBadArg         = 2
	CodeAuthFailed     = 3
	CodeMalformedArgs  = 4
	CodeMalformedFArgs = 5
	CodeNoSuchFunction = 5
	CodeInternal       = 6
	CodeRateLimited    = 9
	CodeBadHeader      = 11
)

func errDoc(code int, msg string) bson.D {
	return bson.D{{Key: "errcode", Value: code}, {Key: "msg", Value: msg}}
}

func errDocData(code int, msg string, data interface{}) bson.D {
	return append(errDoc(code, msg), bson.E{Key: "data", Value: data})
}

func rateLimitedDoc() bson.D {
	return errDoc(CodeRateLimited, "call rate limit exceeded")
}

func badHeaderDoc(header string) bson.D {
	return errDoc(CodeBadHeader, "header "+header+" value is invalid")
}

func noSuchFunctionDoc(name string) bson.D {
	return errDocData(CodeNoSuchFunction, "no such function", name)
}

func malformedArgsDoc() bson.D {
	return errDoc(CodeMalformedArgs, "malformed JSON for args")
}

func malformedFArgsDoc() bson.D {
	return errDoc(CodeMalformedFArgs, "malformed JSON for fargs")
}

// authFailedDoc carries the resolved user, which may be absent, and the
// authenticator's detail when it gave one.
func authFailedDoc(user string, detail interface{}) bson.D {
	var u interface{}
	if user != "" {
		u = user
	}
	doc := bson.D{
		{Key: "errcode", Value: CodeAuthFailed},
		{Key: "user", Value: u},
		{Key: "msg", Value: "authentication failure"},
	}
	if detail != nil {
		doc = append(doc, bson.E{Key: "data", Value: detail})
	}
	return doc
}

func internalErrorDoc(function string) bson.D {
	return errDocData(CodeInternal, "internal error", function)
}
