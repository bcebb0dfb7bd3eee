package handler

import (
	"go.mongodb.org/mongo-driver/bson"
)

// Cursor is a pull iterator over documents. Next advances and reports whether
// a document is available; Doc returns it. Once Next returns false, Err
// reports why, or nil on normal exhaustion.
type Cursor interface {
	Next() bool
	Doc() bson.D
	Err() error
}

// SliceCursor iterates a fixed list of documents.
type SliceCursor struct {
	docs []bson.D
	pos  int
}

// NewSliceCursor creates a cursor over docs.
func NewSliceCursor(docs []bson.D) *SliceCursor {
	return &SliceCursor{docs: docs, pos: -1}
}

// Next advances to the next document.
func (c *SliceCursor) Next() bool {
	if c.pos+1 >= len(c.docs) {
		c.pos = len(c.docs)
		return false
	}
	c.pos++
	return true
}

// Doc returns the current document.
func (c *SliceCursor) Doc() bson.D {
	if c.pos < 0 || c.pos >= len(c.docs) {
		return nil
	}
	return c.docs[c.pos]
}

// Err always returns nil.
func (c *SliceCursor) Err() error { return nil }

// FuncCursor pulls documents from a generator function. The function returns
// ok=false when exhausted, or a non-nil error to stop with a failure. It is
// only called when the consumer asks for the next document.
type FuncCursor struct {
	next func() (bson.D, bool, error)
	doc  bson.D
	err  error
	done bool
}

// NewFuncCursor creates a cursor around next.
func NewFuncCursor(next func() (bson.D, bool, error)) *FuncCursor {
	return &FuncCursor{next: next}
}

// Next calls the generator once.
func (c *FuncCursor) Next() bool {
	if c.done {
		return false
	}
	doc, ok, err := c.next()
	if err != nil || !ok {
		c.err = err
		c.doc = nil
		c.done = true
		return false
	}
	c.doc = doc
	return true
}

// Doc returns the current document.
func (c *FuncCursor) Doc() bson.D { return c.doc }

// Err returns the generator's error, if any.
func (c *FuncCursor) Err() error { return c.err }
