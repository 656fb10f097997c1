// Package protocol defines the HTTP and WebSocket contract between the dtrack
// API and its clients.
//
// Every route is served twice, under APIPrefix and at the root:
//
//	POST /api/update        - set a task flag or topic for a day
//	GET  /api/stats         - commit activity and daily goal progress
//	GET  /api/health        - liveness check
//	GET  /api/data/{date}   - one scored day
//	GET  /api/tasks         - the task catalog and tracking window
//	GET  /api/grid?month=   - one month of the grid
//	GET  /api/insights      - aggregate, streaks and per-task rates
//	GET  /ws/events         - stream of Envelope messages
//
// Errors are always returned as ErrorResponse with a 4xx or 5xx status.
package protocol

import (
	"errors"
	"strings"
	"time"
)

// APIPrefix is the scoped mount point of the API.
const APIPrefix = "/api"

// Route paths relative to APIPrefix or the root.
const (
	PathUpdate   = "/update"
	PathStats    = "/stats"
	PathHealth   = "/health"
	PathDay      = "/data/{date}"
	PathTasks    = "/tasks"
	PathGrid     = "/grid"
	PathInsights = "/insights"
	PathEvents   = "/ws/events"
)

// HealthMessage is the fixed message of a healthy server.
const HealthMessage = "Daily Tracker API is running"

// EnvelopeHello is the first message on every event stream.
const EnvelopeHello = "hello"

// ErrMissingFields is returned by UpdateRequest.Validate.
var ErrMissingFields = errors.New("date and taskId are required")

// UpdateRequest is the body of POST /update. Clients send either the object
// form ({"updates": {"done": true}}) or the flat form ({"value": 1}).
type UpdateRequest struct {
	Date    string       `json:"date"`
	TaskID  string       `json:"taskId"`
	Updates *TaskUpdates `json:"updates,omitempty"`
	Value   *int         `json:"value,omitempty"`
	Action  string       `json:"action,omitempty"`
	Details string       `json:"details,omitempty"`
}

// TaskUpdates carries the fields being changed. Value is an alias of Done
// used by older clients.
type TaskUpdates struct {
	Done  *bool   `json:"done,omitempty"`
	Value *bool   `json:"value,omitempty"`
	Topic *string `json:"topic,omitempty"`
}

// Normalize trims the identifying fields in place.
func (r *UpdateRequest) Normalize() {
	r.Date = strings.TrimSpace(r.Date)
	r.TaskID = strings.TrimSpace(r.TaskID)
}

// Validate checks that the request names a day and a task.
func (r UpdateRequest) Validate() error {
	if strings.TrimSpace(r.Date) == "" || strings.TrimSpace(r.TaskID) == "" {
		return ErrMissingFields
	}
	return nil
}

// DoneFlag returns the requested flag from the updates object, or nil.
func (r UpdateRequest) DoneFlag() *bool {
	if r.Updates == nil {
		return nil
	}
	if r.Updates.Done != nil {
		return r.Updates.Done
	}
	return r.Updates.Value
}

// Topic returns the requested topic, or nil.
func (r UpdateRequest) Topic() *string {
	if r.Updates == nil {
		return nil
	}
	return r.Updates.Topic
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Version string `json:"version"`
}

// Envelope is one message on the event stream.
type Envelope struct {
	Type string    `json:"type"`
	Time time.Time `json:"time,omitempty"`
	Data any       `json:"data,omitempty"`
}
