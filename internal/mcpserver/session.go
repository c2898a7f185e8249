package mcpserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/sandboxd/sandboxd/internal/driver"
	"github.com/sandboxd/sandboxd/internal/sandbox"
)

var sessionUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// sessionEvent mirrors the shape of a JSON-RPC notification: a method name
// and its params. Used to stream execution output to an interactive client.
type sessionEvent struct {
	Method string      `json:"method"`
	Params interface{} `json:"params"`
}

// syncConn serializes writes across goroutines. gorilla/websocket permits
// at most one concurrent writer per connection.
type syncConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *syncConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *syncConn) writeMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(messageType, data)
}

// handleSession upgrades to a websocket and runs each received line as a
// one-shot execution in a single sandbox container checked out for the
// life of the connection, streaming stdout/stderr/exit back as events.
// This is a debugging aid, not part of the tool-dispatch surface proper:
// one container is held for the whole session instead of per-call.
func handleSession(pool *sandbox.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		language := r.URL.Query().Get("lang")
		if language == "" {
			language = "python"
		}

		rawConn, err := sessionUpgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("session websocket upgrade failed")
			return
		}
		defer rawConn.Close()
		conn := &syncConn{conn: rawConn}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		handle, err := pool.Acquire(ctx)
		if err != nil {
			_ = conn.writeJSON(sessionEvent{Method: "error", Params: map[string]string{"message": "no sandbox container available"}})
			return
		}
		defer pool.Release(handle)

		stop := make(chan struct{})
		defer close(stop)
		go keepalive(conn, stop)

		for {
			_, message, err := rawConn.ReadMessage()
			if err != nil {
				return
			}
			runLine(ctx, conn, pool, handle, string(message), language)
		}
	}
}

func runLine(ctx context.Context, conn *syncConn, pool *sandbox.Pool, handle *driver.Handle, code, language string) {
	result, err := pool.ExecCode(ctx, handle, code, language, nil)
	if err != nil {
		_ = conn.writeJSON(sessionEvent{Method: "error", Params: map[string]string{"message": err.Error()}})
		return
	}

	if result.Stdout != "" {
		_ = conn.writeJSON(sessionEvent{Method: "stdout", Params: map[string]string{"chunk": result.Stdout}})
	}
	if result.Stderr != "" {
		_ = conn.writeJSON(sessionEvent{Method: "stderr", Params: map[string]string{"chunk": result.Stderr}})
	}
	_ = conn.writeJSON(sessionEvent{Method: "exit", Params: map[string]int{"code": result.ExitCode}})
}

// keepalive prevents idle-timeout proxies from dropping long-lived debug
// sessions between commands.
func keepalive(conn *syncConn, stop <-chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := conn.writeMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}
