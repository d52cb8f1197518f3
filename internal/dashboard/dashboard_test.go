package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aisuara/marketing-tracker/internal/schema"
	"github.com/aisuara/marketing-tracker/internal/sync"
)

func newTestServer(t *testing.T) (*Server, *Handler) {
	t.Helper()

	logger := log.New(io.Discard, "", 0)
	server := NewServer(&Config{Host: "127.0.0.1", Port: 0, Logger: logger})
	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(func() { server.Stop() })

	return server, NewHandler(server, logger)
}

func dial(t *testing.T, ctx context.Context, server *Server) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, "ws://"+server.GetAddr()+"/ws", nil)
	if err != nil {
		t.Fatalf("Failed to connect WebSocket: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) Message {
	t.Helper()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	return msg
}

func TestServerStartStop(t *testing.T) {
	server := NewServer(&Config{Host: "127.0.0.1", Port: 0, Logger: log.New(io.Discard, "", 0)})

	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	if addr := server.GetAddr(); strings.HasSuffix(addr, ":0") {
		t.Fatalf("GetAddr() = %q, want the bound port", addr)
	}
	if err := server.Stop(); err != nil {
		t.Fatalf("Failed to stop server: %v", err)
	}
}

func TestWelcomeAndBroadcast(t *testing.T) {
	server, handler := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, server)

	welcome := readMessage(t, ctx, conn)
	if welcome.Type != MessageTypeStats {
		t.Fatalf("welcome type = %s, want %s", welcome.Type, MessageTypeStats)
	}
	if count := server.ClientCount(); count != 1 {
		t.Errorf("Expected 1 client, got %d", count)
	}

	handler.Observe(&sync.Report{
		Op:       sync.OpSync,
		Table:    schema.ActivityTable,
		Mode:     sync.Incremental,
		Rows:     2,
		Remote:   3,
		Duration: 40 * time.Millisecond,
	})

	msg := readMessage(t, ctx, conn)
	if msg.Type != MessageTypeSyncReport {
		t.Fatalf("message type = %s, want %s", msg.Type, MessageTypeSyncReport)
	}
	var data ReportData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		t.Fatalf("Failed to unmarshal report: %v", err)
	}
	if data.Table != "activities" || data.Rows != 2 || data.Mode != "incremental" || data.DurationMS != 40 {
		t.Errorf("report data = %+v", data)
	}
	if want := "activities: appended 2 new rows (3 already in sheet)"; data.Summary != want {
		t.Errorf("Summary = %q, want %q", data.Summary, want)
	}

	stats := readMessage(t, ctx, conn)
	if stats.Type != MessageTypeStats {
		t.Fatalf("message type = %s, want %s", stats.Type, MessageTypeStats)
	}
	var s StatsData
	if err := json.Unmarshal(stats.Data, &s); err != nil {
		t.Fatalf("Failed to unmarshal stats: %v", err)
	}
	if s.Syncs != 1 || s.Rows != 2 || s.Failures != 0 {
		t.Errorf("stats = %+v", s)
	}
}

func TestMultipleClients(t *testing.T) {
	server, handler := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clients := make([]*websocket.Conn, 3)
	for i := range clients {
		clients[i] = dial(t, ctx, server)
		readMessage(t, ctx, clients[i])
	}

	handler.Observe(&sync.Report{Op: sync.OpRestore, Table: schema.UserTable, Rows: 4})

	for i, conn := range clients {
		msg := readMessage(t, ctx, conn)
		if msg.Type != MessageTypeRestoreReport {
			t.Errorf("client %d: message type = %s, want %s", i, msg.Type, MessageTypeRestoreReport)
		}
	}
}

func TestHandlerStats(t *testing.T) {
	server := NewServer(&Config{Logger: log.New(io.Discard, "", 0)})
	handler := NewHandler(server, log.New(io.Discard, "", 0))

	handler.Observe(&sync.Report{Op: sync.OpSync, Table: schema.ActivityTable, Mode: sync.Overwrite, Rows: 5})
	handler.Observe(&sync.Report{Op: sync.OpSync, Table: schema.FollowupTable, Err: errors.New("quota exceeded")})
	handler.Observe(&sync.Report{Op: sync.OpRestore, Table: schema.ConfigTable, Rows: 8})

	stats := handler.GetStats()
	if stats.Syncs != 2 || stats.Restores != 1 || stats.Failures != 1 || stats.Rows != 13 {
		t.Errorf("stats = %+v", stats)
	}
	if got := stats.Last["followups"].Error; got != "quota exceeded" {
		t.Errorf("last followups error = %q", got)
	}
	if got := stats.Last["config"].Mode; got != "" {
		t.Errorf("restore report mode = %q, want empty", got)
	}

	// GetStats returns a copy.
	stats.Last["users"] = ReportData{}
	if _, ok := handler.GetStats().Last["users"]; ok {
		t.Error("GetStats() shares its map with the handler")
	}
}

func TestHTTPEndpoints(t *testing.T) {
	reg := prometheus.NewRegistry()
	probe := prometheus.NewCounter(prometheus.CounterOpts{Name: "dashboard_test_total", Help: "test"})
	reg.MustRegister(probe)
	probe.Inc()

	server := NewServer(&Config{Gatherer: reg, Logger: log.New(io.Discard, "", 0)})
	handler := NewHandler(server, log.New(io.Discard, "", 0))
	handler.Observe(&sync.Report{Op: sync.OpSync, Table: schema.UserTable, Mode: sync.Incremental, Rows: 1})

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	tests := []struct {
		path     string
		status   int
		contains string
	}{
		{path: "/health", status: http.StatusOK, contains: `"status":"ok"`},
		{path: "/status", status: http.StatusOK, contains: `"users"`},
		{path: "/metrics", status: http.StatusOK, contains: "dashboard_test_total 1"},
		{path: "/", status: http.StatusOK, contains: "/ws"},
		{path: "/nope", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(ts.URL + tt.path)
			if err != nil {
				t.Fatalf("GET %s failed: %v", tt.path, err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if !strings.Contains(string(body), tt.contains) {
				t.Errorf("body %q does not contain %q", body, tt.contains)
			}
		})
	}
}
