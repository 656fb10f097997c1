package webserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/agusx1211/dtrack/internal/debug"
	"github.com/agusx1211/dtrack/internal/hexid"
	"github.com/agusx1211/dtrack/internal/tracker"
	"github.com/agusx1211/dtrack/pkg/protocol"
)

// handleEventsWebSocket streams tracker events until the client leaves or
// the tracker shuts down.
func (srv *Server) handleEventsWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return
	}
	defer ws.CloseNow()

	client := hexid.New()
	events, cancel := srv.tracker.Subscribe()
	defer cancel()
	debug.LogKV("webserver", "event stream opened", "client", client, "remote", r.RemoteAddr)

	// Reads are only drained so close frames are processed.
	ctx := ws.CloseRead(r.Context())

	hello := protocol.Envelope{Type: protocol.EnvelopeHello, Time: time.Now(), Data: map[string]string{
		"today":  srv.tracker.Today(),
		"client": client,
	}}
	if err := writeEnvelope(ctx, ws, hello); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				ws.Close(websocket.StatusGoingAway, "tracker closed")
				return
			}
			if err := writeEnvelope(ctx, ws, toWSEnvelope(ev)); err != nil {
				debug.LogKV("webserver", "websocket write failed", "client", client, "error", err)
				return
			}
		}
	}
}

func toWSEnvelope(ev tracker.Event) protocol.Envelope {
	return protocol.Envelope{Type: ev.Type, Time: ev.Time, Data: ev.Data}
}

func writeEnvelope(ctx context.Context, ws *websocket.Conn, msg protocol.Envelope) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil
	}
	writeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return ws.Write(writeCtx, websocket.MessageText, data)
}
