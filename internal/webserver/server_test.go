package webserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/agusx1211/dtrack/internal/catalog"
	"github.com/agusx1211/dtrack/internal/gitlog"
	"github.com/agusx1211/dtrack/internal/store"
	"github.com/agusx1211/dtrack/internal/tracker"
	"github.com/agusx1211/dtrack/pkg/protocol"
)

type stubNotifier struct{}

func (stubNotifier) Notify(ctx context.Context, action, details string) gitlog.Result {
	return gitlog.Result{Success: true, Reference: "abc1234", Commits: 1}
}
func (stubNotifier) TodayCount(ctx context.Context) (int, error) { return 7, nil }
func (stubNotifier) TotalCount(ctx context.Context) (int, error) { return 42, nil }
func (stubNotifier) Recent(ctx context.Context, limit int) ([]gitlog.Entry, error) {
	return []gitlog.Entry{{ID: "abc1234", Message: "DSA completed [09:00 AM]", Author: "Daily Tracker"}}, nil
}

func newTestServerWith(t *testing.T, opts Options) (*Server, *tracker.Service) {
	t.Helper()
	c, err := catalog.New([]catalog.Task{
		{ID: "dsa", Label: "DSA", Weight: 2},
		{ID: "college", Label: "College", Weight: 1},
	})
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	svc := tracker.New(store.New(store.OpenFiles(t.TempDir()), c), stubNotifier{}, tracker.Options{})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		svc.Close(ctx)
	})
	return New(svc, opts), svc
}

func newTestServer(t *testing.T) (*Server, *tracker.Service) {
	return newTestServerWith(t, Options{})
}

func performRequest(t *testing.T, srv *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func performJSONRequest(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestUpdateEndpoint(t *testing.T) {
	for _, prefix := range []string{"/api", ""} {
		t.Run("prefix="+prefix, func(t *testing.T) {
			srv, _ := newTestServer(t)

			rec := performJSONRequest(t, srv, http.MethodPost, prefix+"/update",
				`{"date":"2025-12-23","taskId":"dsa","updates":{"done":true},"action":"DSA completed","details":"arrays"}`)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
			}
			if contentType := rec.Header().Get("Content-Type"); !strings.HasPrefix(contentType, "application/json") {
				t.Fatalf("content-type = %q, want application/json", contentType)
			}

			got := decodeResponse[updateResponse](t, rec)
			if !got.Success || !got.Changed || got.Notification != tracker.NotifyQueued {
				t.Fatalf("response = %+v", got)
			}
			if got.Data.Score != 2 || got.Data.MaxScore != 3 || got.Data.Date != "2025-12-23" {
				t.Fatalf("day = %+v", got.Data)
			}
		})
	}
}

func TestUpdateEndpointLegacyValueAndTopic(t *testing.T) {
	srv, svc := newTestServer(t)

	rec := performJSONRequest(t, srv, http.MethodPost, "/api/update", `{"date":"2025-12-23","taskId":"college","value":1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	rec = performJSONRequest(t, srv, http.MethodPost, "/api/update", `{"date":"2025-12-23","taskId":"dsa","updates":{"topic":"Heaps"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeResponse[updateResponse](t, rec); got.Notification != tracker.NotifyDebounced {
		t.Fatalf("topic notification = %q", got.Notification)
	}

	day, err := svc.Day(context.Background(), "2025-12-23")
	if err != nil {
		t.Fatal(err)
	}
	if day.Score != 1 || day.Tasks[0].Topic != "Heaps" {
		t.Fatalf("day = %+v", day)
	}
}

func TestUpdateEndpointErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"date":`, http.StatusBadRequest},
		{"missing task", `{"date":"2025-12-23"}`, http.StatusBadRequest},
		{"unknown task", `{"date":"2025-12-23","taskId":"yoga","updates":{"done":true}}`, http.StatusBadRequest},
		{"bad date", `{"date":"2025-13-40","taskId":"dsa","updates":{"done":true}}`, http.StatusBadRequest},
		{"no fields", `{"date":"2025-12-23","taskId":"dsa","updates":{}}`, http.StatusBadRequest},
		{"bad value", `{"date":"2025-12-23","taskId":"dsa","value":3}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := performJSONRequest(t, srv, http.MethodPost, "/api/update", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
			if got := decodeResponse[protocol.ErrorResponse](t, rec); got.Error == "" {
				t.Fatal("missing error message")
			}
		})
	}
}

func TestUnknownTaskLeavesDayUnchanged(t *testing.T) {
	srv, svc := newTestServer(t)
	performJSONRequest(t, srv, http.MethodPost, "/api/update", `{"date":"2025-12-23","taskId":"yoga","value":1}`)
	day, _ := svc.Day(context.Background(), "2025-12-23")
	if day.Score != 0 || day.CommitCount != 0 {
		t.Fatalf("day changed by unknown task: %+v", day)
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := performRequest(t, srv, http.MethodGet, "/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decodeResponse[tracker.Activity](t, rec)
	if got.TodayCount != 7 || got.TotalCount != 42 || len(got.RecentCommits) != 1 {
		t.Fatalf("stats = %+v", got)
	}
	if got.DailyGoal != 10 || got.Message != "Almost there! 3 more to go! 🔥" {
		t.Fatalf("goal = %+v", got)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, target := range []string{"/health", "/api/health"} {
		rec := performRequest(t, srv, http.MethodGet, target)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", target, rec.Code)
		}
		got := decodeResponse[protocol.HealthResponse](t, rec)
		if got.Status != "ok" || got.Message != "Daily Tracker API is running" || got.Version == "" {
			t.Fatalf("%s = %+v", target, got)
		}
	}
}

func TestDayEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	performJSONRequest(t, srv, http.MethodPost, "/api/update", `{"date":"2025-12-24","taskId":"college","value":1}`)

	rec := performRequest(t, srv, http.MethodGet, "/api/data/2025-12-24")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	day := decodeResponse[tracker.DayView](t, rec)
	if day.Score != 1 || len(day.Tasks) != 2 || day.Weekday != "Wed" {
		t.Fatalf("day = %+v", day)
	}

	rec = performRequest(t, srv, http.MethodGet, "/api/data/2025-12-20")
	if rec.Code != http.StatusOK {
		t.Fatalf("absent day status = %d", rec.Code)
	}
	if day := decodeResponse[tracker.DayView](t, rec); day.Score != 0 || day.CommitCount != 0 {
		t.Fatalf("absent day = %+v", day)
	}

	if rec := performRequest(t, srv, http.MethodGet, "/api/data/yesterday"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date status = %d", rec.Code)
	}
}

func TestTasksGridAndInsightsEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := performRequest(t, srv, http.MethodGet, "/api/tasks")
	tasks := decodeResponse[tasksResponse](t, rec)
	if len(tasks.Tasks) != 2 || tasks.MaxScore != 3 || tasks.Window.Start != "2025-12-23" {
		t.Fatalf("tasks = %+v", tasks)
	}

	rec = performRequest(t, srv, http.MethodGet, "/api/grid?month=2026-02")
	if rec.Code != http.StatusOK {
		t.Fatalf("grid status = %d", rec.Code)
	}
	grid := decodeResponse[tracker.MonthView](t, rec)
	if grid.Month != "2026-02" || len(grid.Days) != 28 || grid.Prev != "2026-01" || grid.Next != "2026-03" {
		t.Fatalf("grid = %+v", grid)
	}
	if rec := performRequest(t, srv, http.MethodGet, "/api/grid?month=feb"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad month status = %d", rec.Code)
	}

	rec = performRequest(t, srv, http.MethodGet, "/api/insights?start=2025-12-23&end=2025-12-24")
	ins := decodeResponse[tracker.Insights](t, rec)
	if ins.Stats.Days != 2 || ins.Stats.PossibleTotal != 6 || ins.Stats.Percentage != 0 {
		t.Fatalf("insights = %+v", ins)
	}
	if rec := performRequest(t, srv, http.MethodGet, "/api/insights?start=nope"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad range status = %d", rec.Code)
	}
}

func TestUnknownAPIRoute(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := performRequest(t, srv, http.MethodGet, "/api/plans")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := performRequest(t, srv, http.MethodOptions, "/api/update")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "POST") {
		t.Fatalf("allow methods = %q", got)
	}
}

func TestEventsWebSocket(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.httpServer.Handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/events", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	read := func() protocol.Envelope {
		t.Helper()
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return env
	}

	if env := read(); env.Type != protocol.EnvelopeHello {
		t.Fatalf("first message = %q, want hello", env.Type)
	}

	resp, err := http.Post(ts.URL+"/api/update", "application/json",
		strings.NewReader(`{"date":"2025-12-23","taskId":"dsa","value":1}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()

	if env := read(); env.Type != tracker.EventDayUpdated {
		t.Fatalf("event = %q, want %q", env.Type, tracker.EventDayUpdated)
	}
}
