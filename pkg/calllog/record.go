// Package calllog defines the per-call log record and the sinks that receive
// it once a request has been answered.
package calllog

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// Anonymous is logged as the user when no authenticator resolved one.
const Anonymous = "ANONYMOUS"

// Caller identifies the remote end of a request.
type Caller struct {
	Name string
	IP   string
	Port int
}

// Document renders the caller as {name, ip, port}.
func (c Caller) Document() bson.D {
	return bson.D{
		{Key: "name", Value: c.Name},
		{Key: "ip", Value: c.IP},
		{Key: "port", Value: c.Port},
	}
}

// Record describes one completed call.
type Record struct {
	RequestID string
	Caller    Caller
	User      string
	// Function is the resolved function name, empty when routing failed.
	Function string
	// Params holds the raw query parameters in request order.
	Params bson.D
	Start  time.Time
	End    time.Time
	Status int
}

// Millis is the elapsed wall time in milliseconds.
func (r *Record) Millis() int64 {
	return r.End.Sub(r.Start).Milliseconds()
}

// UserOrAnonymous returns the resolved user, or Anonymous.
func (r *Record) UserOrAnonymous() string {
	if r.User == "" {
		return Anonymous
	}
	return r.User
}

// Document renders the record as
// {reqid, caller, user, func, params, stime, etime, millis, status}.
func (r *Record) Document() bson.D {
	params := r.Params
	if params == nil {
		params = bson.D{}
	}
	var fn interface{}
	if r.Function != "" {
		fn = r.Function
	}
	return bson.D{
		{Key: "reqid", Value: r.RequestID},
		{Key: "caller", Value: r.Caller.Document()},
		{Key: "user", Value: r.UserOrAnonymous()},
		{Key: "func", Value: fn},
		{Key: "params", Value: params},
		{Key: "stime", Value: r.Start},
		{Key: "etime", Value: r.End},
		{Key: "millis", Value: r.Millis()},
		{Key: "status", Value: r.Status},
	}
}
