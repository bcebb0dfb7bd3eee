package calllog

import (
	"context"
	"fmt"
)

const storeSinkLogPrefix = "calllog:store_sink"

// Store persists call records.
type Store interface {
	InsertCallLog(ctx context.Context, rec *Record) error
}

// StoreSink writes each record to a Store.
type StoreSink struct {
	store Store
}

// NewStoreSink creates a new StoreSink.
func NewStoreSink(store Store) *StoreSink {
	return &StoreSink{store: store}
}

// Log inserts the record.
func (s *StoreSink) Log(ctx context.Context, rec *Record) error {
	if err := s.store.InsertCallLog(ctx, rec); err != nil {
		return fmt.Errorf("%s - failed to store call %s: %w", storeSinkLogPrefix, rec.RequestID, err)
	}
	return nil
}
