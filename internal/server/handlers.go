// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, hub statistics, and the built-in test page.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Tyrowin/chatrelay/internal/config"
)

// Handlers serves the relay's HTTP endpoints.
type Handlers struct {
	hub      *Hub
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewHandlers builds the handlers for hub using the server section of cfg.
func NewHandlers(hub *Hub, cfg config.ServerConfig, log zerolog.Logger) *Handlers {
	log = log.With().Str("component", "http").Logger()
	origins := newOriginPolicy(cfg.AllowedOrigins, log)

	return &Handlers{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.checkOrigin,
		},
		log: log,
	}
}

// WebSocket upgrades the request, creates a Client and hands it to the hub,
// which starts the client's read/write pumps.
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("addr", r.RemoteAddr).Msg("WebSocket upgrade failed")
		return
	}

	client := NewClient(conn, h.hub, r.RemoteAddr)
	if !h.hub.Connect(client) {
		client.closeConn()
	}
}

// Stats writes the hub's counters as JSON.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.hub.Stats(r.Context())
	if err != nil {
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		h.log.Warn().Err(err).Msg("Error writing stats response")
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
// It responds with a plain text message indicating the server is running.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Chat relay is running!")
}

// TestPage serves a bare HTML page that speaks the relay protocol, for
// poking at a running server from a browser.
func (h *Handlers) TestPage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if _, err := fmt.Fprint(w, testPage); err != nil {
		h.log.Warn().Err(err).Msg("Error writing HTML response")
	}
}

const testPage = `<!DOCTYPE html>
<html>
<head>
    <title>Chat Relay Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages { border: 1px solid #ccc; height: 300px; padding: 10px; overflow-y: scroll; margin: 10px 0; background-color: #f9f9f9; }
        input[type="text"] { width: 300px; padding: 5px; margin-right: 10px; }
        .system { color: gray; font-style: italic; }
        .mine { color: blue; }
    </style>
</head>
<body>
    <h1>Chat Relay Test</h1>
    <div>Online: <span id="online">0</span></div>
    <div>
        <input type="text" id="name" placeholder="Display name" maxlength="20">
        <button onclick="join()">Join</button>
    </div>
    <div>
        <input type="text" id="text" placeholder="Type a message..." maxlength="500" disabled>
        <button id="send" onclick="say()" disabled>Send</button>
    </div>
    <div id="messages"></div>

    <script>
        const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
        const ws = new WebSocket(scheme + location.host + '/ws');
        const messages = document.getElementById('messages');
        let me = '';

        function emit(event, data) {
            ws.send(JSON.stringify({ event: event, data: data }));
        }

        function join() {
            me = document.getElementById('name').value.trim();
            if (!me) return;
            emit('join', me);
            document.getElementById('text').disabled = false;
            document.getElementById('send').disabled = false;
        }

        function say() {
            const input = document.getElementById('text');
            const content = input.value.trim();
            if (content) {
                emit('message', { content: content });
                input.value = '';
            }
        }

        ws.onmessage = function(event) {
            const env = JSON.parse(event.data);
            if (env.event === 'userCount') {
                document.getElementById('online').textContent = env.data;
                return;
            }
            const msg = env.data;
            const line = document.createElement('div');
            line.textContent = msg.type === 'system' ? msg.content : msg.author + ': ' + msg.content;
            line.className = msg.type === 'system' ? 'system' : (msg.author === me ? 'mine' : '');
            messages.appendChild(line);
            messages.scrollTop = messages.scrollHeight;
        };

        document.getElementById('text').addEventListener('keypress', function(e) {
            if (e.key === 'Enter') say();
        });
    </script>
</body>
</html>`
