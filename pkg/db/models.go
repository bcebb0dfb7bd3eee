package db

import "time"

// CallRow is a stored call record.
type CallRow struct {
	ID         int64
	RequestID  string
	CallerName string
	CallerIP   string
	CallerPort int
	User       string
	Function   *string
	// Params is the extended JSON of the query parameters.
	Params []byte
	Start  time.Time
	End    time.Time
	Millis int64
	Status int
}

// APIKey is a stored key, identified by its digest.
type APIKey struct {
	Hash    string
	User    string
	Created time.Time
	Revoked *time.Time
}
