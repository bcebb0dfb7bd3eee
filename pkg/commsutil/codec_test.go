package commsutil

import (
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestEncodeDocument(t *testing.T) {
	tests := []struct {
		name  string
		input bson.D
		want  string
	}{
		{
			name:  "empty",
			input: bson.D{},
			want:  `{}`,
		},
		{
			name:  "ordered keys",
			input: bson.D{{Key: "z", Value: "last"}, {Key: "a", Value: 1}},
			want:  `{"z":"last","a":1}`,
		},
		{
			name:  "wide integer",
			input: bson.D{{Key: "n", Value: int64(1) << 40}},
			want:  `{"n":{"$numberLong":"1099511627776"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(EncodeDocument(tt.input))
			if got != tt.want {
				t.Errorf("commsutil:codec_test - EncodeDocument() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDecodeDocument_RoundTrip(t *testing.T) {
	in := bson.D{{Key: "func", Value: "f"}, {Key: "status", Value: int64(200)}, {Key: "big", Value: int64(1) << 40}}
	out, err := DecodeDocument(EncodeDocument(in))
	if err != nil {
		t.Fatalf("commsutil:codec_test - DecodeDocument() error: %v", err)
	}
	if !reflect.DeepEqual(out, in) {
		t.Errorf("commsutil:codec_test - round trip = %#v, want %#v", out, in)
	}
}

func TestDecodeDocument_Invalid(t *testing.T) {
	if _, err := DecodeDocument([]byte("not json")); err == nil {
		t.Error("commsutil:codec_test - expected error for invalid payload")
	}
}
