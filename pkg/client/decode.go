package client

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"mime"

	"github.com/tidwall/gjson"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/morezero/webf/pkg/mson"
)

// maxDocSize bounds a single BSON document read from the wire.
const maxDocSize = 16 << 20

// ErrMalformedResponse is returned when the body does not match its
// Content-Type framing.
var ErrMalformedResponse = errors.New("malformed response body")

type decoder interface {
	// next returns io.EOF after the last document.
	next() (bson.D, error)
}

func newDecoder(contentType string, body io.Reader) (decoder, error) {
	media, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%s - bad Content-Type %q: %w", logPrefix, contentType, err)
	}

	mode := mson.Pure
	switch media {
	case "application/bson":
		return &bsonDecoder{r: bufio.NewReader(body)}, nil
	case "application/ejson":
		mode = mson.Mongo
	case "application/json":
	default:
		return nil, fmt.Errorf("%s - unsupported Content-Type %q", logPrefix, media)
	}

	if b := params["boundary"]; b == "LF" || b == "CR" {
		return &lineDecoder{r: bufio.NewReader(body), mode: mode}, nil
	}
	return &arrayDecoder{body: body, mode: mode}, nil
}

// bsonDecoder reads length-prefixed documents back to back.
type bsonDecoder struct {
	r *bufio.Reader
}

func (d *bsonDecoder) next() (bson.D, error) {
	var size [4]byte
	if _, err := io.ReadFull(d.r, size[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: truncated BSON length: %v", ErrMalformedResponse, err)
	}
	n := int(binary.LittleEndian.Uint32(size[:]))
	if n < 5 || n > maxDocSize {
		return nil, fmt.Errorf("%w: BSON document size %d", ErrMalformedResponse, n)
	}

	raw := make([]byte, n)
	copy(raw, size[:])
	if _, err := io.ReadFull(d.r, raw[4:]); err != nil {
		return nil, fmt.Errorf("%w: truncated BSON document: %v", ErrMalformedResponse, err)
	}
	var doc bson.D
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return doc, nil
}

// lineDecoder reads one document per line.
type lineDecoder struct {
	r    *bufio.Reader
	mode mson.Mode
}

func (d *lineDecoder) next() (bson.D, error) {
	for {
		line, err := d.r.ReadBytes('\n')
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			doc, perr := mson.Parse(string(line), d.mode)
			if perr != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, perr)
			}
			return doc, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// arrayDecoder reads the whole "[doc,doc,...]" body before the first
// document is returned.
type arrayDecoder struct {
	body  io.Reader
	mode  mson.Mode
	items []string
	read  bool
}

func (d *arrayDecoder) next() (bson.D, error) {
	if !d.read {
		d.read = true
		data, err := io.ReadAll(d.body)
		if err != nil {
			return nil, err
		}
		if !gjson.ValidBytes(data) {
			return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedResponse)
		}
		arr := gjson.ParseBytes(data)
		if !arr.IsArray() {
			return nil, fmt.Errorf("%w: expected a JSON array", ErrMalformedResponse)
		}
		arr.ForEach(func(_, v gjson.Result) bool {
			d.items = append(d.items, v.Raw)
			return true
		})
	}

	if len(d.items) == 0 {
		return nil, io.EOF
	}
	raw := d.items[0]
	d.items = d.items[1:]
	doc, err := mson.Parse(raw, d.mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return doc, nil
}
