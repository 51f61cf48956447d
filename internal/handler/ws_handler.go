/*
Package handler provides the HTTP handlers and routing setup for the
PulseChat server.

This file contains the WebSocket upgrade handler: rate limiting, bearer token
enforcement, the upgrade itself, and starting the client's pump goroutines.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"pulsechat/internal/app/chat"
	"pulsechat/internal/pkg/auth/jwt"
	"pulsechat/internal/pkg/errs"
	"pulsechat/internal/pkg/limiter"
	"pulsechat/internal/pkg/logx"
	"pulsechat/internal/pkg/resp"
)

// HandleWebSocket processes WebSocket connection requests for the chat
// channel. A valid access token is required to connect; it is carried in the
// "token" query parameter because browsers cannot set headers on WebSocket
// upgrades. The verified identity gates the upgrade only: the display name
// used in chat still comes from the join event.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiter.ClientIP(r)

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		tokenString := r.URL.Query().Get("token")
		if tokenString == "" {
			logx.Warn("WebSocket connection rejected: Missing token.")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		identity, err := jwt.ParseToken(tokenString, deps.Config.JWTSecret)
		if err != nil {
			logx.Warn("WebSocket connection rejected: Invalid token.", "error", err)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := chat.NewClient(deps.Hub, conn)

		go client.WritePump()

		deps.Hub.Register(client)

		logx.Info("WebSocket connection established",
			"conn_id", client.ID(),
			"user_id", identity.UserID,
			"username", identity.Username,
		)

		client.ReadPump()
	}
}
