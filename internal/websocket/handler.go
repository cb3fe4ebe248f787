package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"
)

// Handler upgrades the request and serves it as a hub client until the
// connection closes. originPatterns empty accepts any origin, which suits a
// dashboard on the household LAN.
func Handler(hub *Hub, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := &ws.AcceptOptions{OriginPatterns: originPatterns}
		if len(originPatterns) == 0 {
			opts.InsecureSkipVerify = true
		}
		conn, err := ws.Accept(w, r, opts)
		if err != nil {
			logger.Warn("websocket accept failed", "error", err, "remote", r.RemoteAddr)
			return
		}
		defer conn.CloseNow()

		NewClient(hub, conn).Run(r.Context())
	}
}
