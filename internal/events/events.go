package events

import (
	"net/http"
	"time"
)

// HTTPStart is emitted when an HTTP request is received.
// Context carries the request context.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is emitted after the handler completes.
type HTTPFinish struct {
	Request  *http.Request
	Status   int
	Duration time.Duration
}

// PlanStart is emitted before merging a query into a plan.
type PlanStart struct {
	Query         string
	OperationName string
}

// PlanFinish is emitted after merging completes.
type PlanFinish struct {
	Query         string
	OperationName string
	FieldCount    int
	Err           error
	Duration      time.Duration
}
