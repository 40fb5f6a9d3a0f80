// Package wsrelay serves the per-player binary PCM WebSocket stream:
// ws://host:port/players/{id}/ws. Write-deadline discipline and the
// periodic keepalive ping follow the bridge client's sendBinaryData/
// pingLoop pattern.
package wsrelay

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/resonix-dev/resonix-node/internal/fanout"
	"github.com/resonix-dev/resonix-node/internal/registry"
)

const (
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
	pingTimeout  = 10 * time.Second
)

var closeCodeByReason = map[fanout.CloseReason]int{
	fanout.CloseNormal:        websocket.CloseNormalClosure,
	fanout.CloseReplaced:      4000,
	fanout.CloseDecoderError:  4001,
	fanout.ClosePlayerDeleted: 4002,
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Relay serves the WS stream endpoint against a Registry.
type Relay struct {
	reg *registry.Registry
	log *slog.Logger
}

// New constructs a Relay. Mount Handler under /players/{id}/ws.
func New(reg *registry.Registry, log *slog.Logger) *Relay {
	if log == nil {
		log = slog.Default()
	}
	return &Relay{reg: reg, log: log}
}

// Handler returns the chi-compatible handler for the WS endpoint.
func (rl *Relay) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		p, ok := rl.reg.Lookup(id)
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			rl.log.Warn("ws upgrade failed", "player", id, "err", err)
			return
		}
		if tcpConn, ok := conn.UnderlyingConn().(*net.TCPConn); ok {
			_ = tcpConn.SetNoDelay(true)
		}

		sub := p.Fanout().Attach()
		rl.serve(conn, sub, p.Fanout())
	}
}

func (rl *Relay) serve(conn *websocket.Conn, sub *fanout.Subscriber, fo *fanout.Fanout) {
	var writeMu sync.Mutex
	var closeOnce sync.Once
	closed := make(chan struct{})
	closeFn := func() { closeOnce.Do(func() { close(closed) }) }

	write := func(messageType int, data []byte) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return conn.WriteMessage(messageType, data)
	}

	go rl.pingLoop(write, closed)
	go rl.drainReads(conn, closeFn)

	defer func() {
		closeFn()
		fo.Detach(sub)
		_ = conn.Close()
	}()

	for {
		select {
		case frame, ok := <-sub.Frames():
			if !ok {
				// The fanout queues the close reason before closing the
				// frame channel, so send its close code if one is pending.
				select {
				case reason := <-sub.Closed():
					code, known := closeCodeByReason[reason]
					if !known {
						code = websocket.CloseInternalServerErr
					}
					_ = write(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""))
				default:
				}
				return
			}
			if err := write(websocket.BinaryMessage, frame); err != nil {
				rl.log.Warn("ws write failed", "err", err)
				return
			}
		case reason := <-sub.Closed():
			code, ok := closeCodeByReason[reason]
			if !ok {
				code = websocket.CloseInternalServerErr
			}
			_ = write(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""))
			return
		case <-closed:
			return
		}
	}
}

// drainReads discards inbound client messages (the protocol is
// server-push only) but must keep reading so gorilla/websocket processes
// control frames (pong, close) and detects a dead connection.
func (rl *Relay) drainReads(conn *websocket.Conn, closeFn func()) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			closeFn()
			return
		}
	}
}

func (rl *Relay) pingLoop(write func(int, []byte) error, closed chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
