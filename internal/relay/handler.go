package relay

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Twilio's media stream client sends no Origin header.
	CheckOrigin: func(*http.Request) bool { return true },
}

// StreamHandler upgrades an inbound media stream connection and pumps
// its frames through a Session until the socket closes.
func StreamHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			if deps.Log != nil {
				deps.Log.Error("media stream upgrade failed", "err", err)
			}
			return
		}
		defer conn.Close()

		sess := NewSession(deps, NewWSSender(conn), c.Query("token"))
		defer sess.HandleDisconnect()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			sess.HandleMessage(data)
		}
	}
}
