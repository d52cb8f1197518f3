package dashboard

import (
	"encoding/json"
	"log"
	"os"
	gosync "sync"
	"time"

	"github.com/aisuara/marketing-tracker/internal/sync"
)

// ReportData is the wire form of a sync.Report.
type ReportData struct {
	Op         string   `json:"op"`
	Table      string   `json:"table"`
	Mode       string   `json:"mode,omitempty"`
	Rows       int      `json:"rows"`
	Remote     int      `json:"remote,omitempty"`
	Skipped    int      `json:"skipped,omitempty"`
	Anomalies  []string `json:"anomalies,omitempty"`
	Drift      []string `json:"header_drift,omitempty"`
	Error      string   `json:"error,omitempty"`
	DurationMS int64    `json:"duration_ms"`
	Summary    string   `json:"summary"`
	At         string   `json:"at"`
}

// StatsData contains running totals since the server started.
type StatsData struct {
	Syncs    int                   `json:"syncs"`
	Restores int                   `json:"restores"`
	Failures int                   `json:"failures"`
	Rows     int                   `json:"rows"`
	Last     map[string]ReportData `json:"last"`
}

// Handler turns engine reports into dashboard messages. It implements
// sync.Observer.
type Handler struct {
	server *Server
	logger *log.Logger
	now    func() time.Time

	mu    gosync.Mutex
	stats StatsData
}

var _ sync.Observer = (*Handler)(nil)

// NewHandler creates a handler connected to a dashboard server and makes
// the current stats the server's welcome message.
func NewHandler(server *Server, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.New(os.Stderr, "[dashboard] ", log.LstdFlags)
	}

	h := &Handler{
		server: server,
		logger: logger,
		now:    time.Now,
		stats:  StatsData{Last: make(map[string]ReportData)},
	}
	server.SetWelcome(h.statsMessage)
	return h
}

// Observe records the report and broadcasts it followed by the updated
// stats.
func (h *Handler) Observe(r *sync.Report) {
	data := h.reportData(r)

	h.mu.Lock()
	if r.Op == sync.OpRestore {
		h.stats.Restores++
	} else {
		h.stats.Syncs++
	}
	if !r.OK() {
		h.stats.Failures++
	}
	h.stats.Rows += r.Rows
	h.stats.Last[data.Table] = data
	h.mu.Unlock()

	msgType := MessageTypeSyncReport
	if r.Op == sync.OpRestore {
		msgType = MessageTypeRestoreReport
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal report: %v", err)
		return
	}
	h.server.Broadcast(Message{Type: msgType, Timestamp: h.now(), Data: dataJSON})
	h.server.Broadcast(h.statsMessage())
}

// GetStats returns a copy of the current statistics.
func (h *Handler) GetStats() StatsData {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := h.stats
	out.Last = make(map[string]ReportData, len(h.stats.Last))
	for k, v := range h.stats.Last {
		out.Last[k] = v
	}
	return out
}

func (h *Handler) statsMessage() Message {
	stats := h.GetStats()
	dataJSON, err := json.Marshal(stats)
	if err != nil {
		h.logger.Printf("Failed to marshal stats: %v", err)
	}
	return Message{Type: MessageTypeStats, Timestamp: h.now(), Data: dataJSON}
}

func (h *Handler) reportData(r *sync.Report) ReportData {
	data := ReportData{
		Op:         string(r.Op),
		Table:      r.Table.String(),
		Rows:       r.Rows,
		Remote:     r.Remote,
		Skipped:    len(r.Skipped),
		Drift:      r.HeaderDrift,
		DurationMS: r.Duration.Milliseconds(),
		Summary:    r.Summary(),
		At:         h.now().Format(time.RFC3339),
	}
	if r.Op == sync.OpSync {
		data.Mode = r.Mode.String()
	}
	for _, a := range r.Anomalies {
		data.Anomalies = append(data.Anomalies, a.String())
	}
	if r.Err != nil {
		data.Error = r.Err.Error()
	}
	return data
}
