package webserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/agusx1211/dtrack/internal/buildinfo"
	"github.com/agusx1211/dtrack/internal/catalog"
	"github.com/agusx1211/dtrack/internal/datekey"
	"github.com/agusx1211/dtrack/internal/debug"
	"github.com/agusx1211/dtrack/internal/store"
	"github.com/agusx1211/dtrack/internal/tracker"
	"github.com/agusx1211/dtrack/pkg/protocol"
)

const maxBodyBytes = 64 << 10

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		debug.LogKV("webserver", "failed to encode json response", "status", status, "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, protocol.ErrorResponse{Error: message})
}

// statusFor maps tracker errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, datekey.ErrInvalidFormat),
		errors.Is(err, store.ErrUnknownTask),
		errors.Is(err, tracker.ErrEmptyUpdate),
		errors.Is(err, tracker.ErrInvalidValue):
		return http.StatusBadRequest
	case errors.Is(err, tracker.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type updateResponse struct {
	Success      bool            `json:"success"`
	Data         tracker.DayView `json:"data"`
	Changed      bool            `json:"changed"`
	Notification string          `json:"notification"`
}

func (srv *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req protocol.UpdateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	upd := tracker.UpdateRequest{
		Date:    req.Date,
		TaskID:  req.TaskID,
		Updates: store.TaskUpdate{Done: req.DoneFlag(), Topic: req.Topic()},
		Value:   req.Value,
		Action:  req.Action,
		Details: req.Details,
	}

	res, err := srv.tracker.Update(r.Context(), upd)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			debug.LogKV("webserver", "update failed", "request_id", requestID(r), "date", upd.Date, "task", upd.TaskID, "error", err)
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, updateResponse{
		Success:      true,
		Data:         res.Day,
		Changed:      res.Changed,
		Notification: res.Notification,
	})
}

func (srv *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, srv.tracker.Activity(r.Context()))
}

func (srv *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, protocol.HealthResponse{
		Status:  "ok",
		Message: protocol.HealthMessage,
		Version: buildinfo.Current().Version,
	})
}

func (srv *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	day, err := srv.tracker.Day(r.Context(), r.PathValue("date"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, day)
}

type tasksResponse struct {
	Tasks    []catalog.Task `json:"tasks"`
	MaxScore int            `json:"maxScore"`
	Window   datekey.Window `json:"window"`
}

func (srv *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	c := srv.tracker.Catalog()
	writeJSON(w, http.StatusOK, tasksResponse{
		Tasks:    c.Tasks(),
		MaxScore: c.MaxScore(),
		Window:   srv.tracker.Window(),
	})
}

func (srv *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	m := srv.tracker.CurrentMonth()
	if raw := strings.TrimSpace(r.URL.Query().Get("month")); raw != "" {
		year, month, err := datekey.ParseMonth(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		m = datekey.Month{Year: year, Month: month}
	}
	writeJSON(w, http.StatusOK, srv.tracker.Month(r.Context(), m.Year, m.Month))
}

func (srv *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ins, err := srv.tracker.Insights(r.Context(), strings.TrimSpace(q.Get("start")), strings.TrimSpace(q.Get("end")))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ins)
}
