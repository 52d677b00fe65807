// Package monitor exposes the running show over HTTP: a health endpoint and
// websocket feeds for stats snapshots and diagnostics.
package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/emberworks/candlefire/internal/diagnostics"
	"github.com/emberworks/candlefire/internal/engine"
)

const writeDeadline = 200 * time.Millisecond

type Monitor struct {
	mu          sync.RWMutex
	statsConns  map[*websocket.Conn]bool
	diagConns   map[*websocket.Conn]bool
	lastStats   engine.Stats
	haveStats   bool
	startTime   time.Time
	totalPixels int
	universes   int

	log zerolog.Logger
	srv *http.Server
}

func New(totalPixels, universes int, log zerolog.Logger) *Monitor {
	return &Monitor{
		statsConns:  map[*websocket.Conn]bool{},
		diagConns:   map[*websocket.Conn]bool{},
		startTime:   time.Now(),
		totalPixels: totalPixels,
		universes:   universes,
		log:         log.With().Str("component", "monitor").Logger(),
	}
}

// Serve listens on addr until ctx is cancelled. Call from its own goroutine.
func (m *Monitor) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", m.HandleHealth)
	mux.HandleFunc("/ws/stats", m.HandleStatsWS)
	mux.HandleFunc("/ws/diag", m.HandleDiagWS)

	m.srv = &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = m.srv.Shutdown(shutCtx)
	}()

	m.log.Info().Str("addr", addr).Msg("monitor listening")
	err := m.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (m *Monitor) HandleHealth(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	resp := map[string]any{
		"uptime_s":  time.Since(m.startTime).Seconds(),
		"pixels":    m.totalPixels,
		"universes": m.universes,
	}
	if m.haveStats {
		resp["stats"] = m.lastStats
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (m *Monitor) HandleStatsWS(w http.ResponseWriter, r *http.Request) {
	m.handleWS(w, r, m.statsConns)
}

func (m *Monitor) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	m.handleWS(w, r, m.diagConns)
}

func (m *Monitor) handleWS(w http.ResponseWriter, r *http.Request, set map[*websocket.Conn]bool) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	m.mu.Lock()
	set[conn] = true
	m.mu.Unlock()

	go func() {
		defer func() {
			m.mu.Lock()
			delete(set, conn)
			m.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// PushStats is wired to engine.OnStats; it runs on the frame goroutine, so
// slow clients only ever cost the write deadline.
func (m *Monitor) PushStats(s engine.Stats) {
	m.mu.Lock()
	m.lastStats = s
	m.haveStats = true
	m.mu.Unlock()
	m.broadcast(m.statsConns, s)
}

// PushDiag is wired to engine.OnDiag.
func (m *Monitor) PushDiag(d diagnostics.Diagnostic) {
	m.broadcast(m.diagConns, d)
}

func (m *Monitor) broadcast(set map[*websocket.Conn]bool, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for c := range set {
		c.SetWriteDeadline(time.Now().Add(writeDeadline))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			m.log.Debug().Err(err).Msg("websocket write")
		}
	}
}
