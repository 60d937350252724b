// Package stream bridges broker subscriptions to long-lived HTTP push
// connections using the server-sent events wire format.
package stream

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kmadira/ledgerstream/internal/metrics"
	"github.com/kmadira/ledgerstream/internal/pubsub"
)

// keepaliveInterval sets how often an SSE comment frame is written on idle
// connections so dead peers are detected without waiting for the next event.
const keepaliveInterval = 30 * time.Second

// Gateway serves the /events endpoint. Every connection gets its own broker
// subscription; N clients mean N independent deliveries of each event. The
// registry of live connections is owned by the gateway instance, keyed by a
// per-connection id, and entries are removed on teardown.
type Gateway struct {
	logger *slog.Logger
	broker pubsub.Broker
	topic  string

	mu    sync.Mutex
	conns map[uuid.UUID]connInfo
}

type connInfo struct {
	remote     string
	attachedAt time.Time
}

// NewGateway returns a Gateway subscribed to topic on broker.
func NewGateway(logger *slog.Logger, broker pubsub.Broker, topic string) *Gateway {
	return &Gateway{
		logger: logger,
		broker: broker,
		topic:  topic,
		conns:  make(map[uuid.UUID]connInfo),
	}
}

// ActiveConnections reports how many stream clients are currently attached.
func (g *Gateway) ActiveConnections() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.conns)
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub, err := g.broker.Subscribe(r.Context(), g.topic)
	if err != nil {
		g.logger.Error("stream subscribe failed", "error", err, "remote", r.RemoteAddr)
		http.Error(w, "event stream temporarily unavailable", http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	id := g.register(r.RemoteAddr)
	defer g.unregister(id)

	// The server-wide write timeout would sever the stream mid-flight; this
	// connection is kept open until the client goes away.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	g.logger.Info("stream client attached", "conn", id, "remote", r.RemoteAddr)

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case payload, open := <-sub.C():
			if !open {
				g.logger.Info("stream subscription closed", "conn", id)
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				g.logger.Warn("stream write failed", "conn", id, "error", err)
				return
			}
			flusher.Flush()
			metrics.StreamEventsSentTotal.Inc()
		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				g.logger.Warn("stream keepalive failed", "conn", id, "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func (g *Gateway) register(remote string) uuid.UUID {
	id := uuid.New()
	g.mu.Lock()
	g.conns[id] = connInfo{remote: remote, attachedAt: time.Now()}
	g.mu.Unlock()
	metrics.ActiveStreamClients.Inc()
	return id
}

func (g *Gateway) unregister(id uuid.UUID) {
	g.mu.Lock()
	info := g.conns[id]
	delete(g.conns, id)
	g.mu.Unlock()
	metrics.ActiveStreamClients.Dec()
	g.logger.Info("stream client detached",
		"conn", id,
		"remote", info.remote,
		"connected_for", time.Since(info.attachedAt).Round(time.Millisecond).String(),
	)
}
