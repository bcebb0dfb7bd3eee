package commsutil

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/morezero/webf/pkg/mson"
)

// EncodeDocument serializes a document to extended JSON so 64-bit integers,
// decimals and dates survive the trip to subscribers.
func EncodeDocument(doc bson.D) []byte {
	return mson.Marshal(doc, mson.Mongo)
}

// DecodeDocument parses an extended-JSON payload.
func DecodeDocument(data []byte) (bson.D, error) {
	return mson.Parse(string(data), mson.Mongo)
}
