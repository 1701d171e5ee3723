package api

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"board-sync/domain"
)

const writeTimeout = 10 * time.Second

// Register wires the sync endpoint and the read-only API routes on the
// provided Echo instance.
func Register(e *echo.Echo, hub *Hub, store TaskStore, logger *log.Logger) {
	e.GET("/ws", serveWS(hub, logger))
	e.GET("/api/tasks", getTasks(hub))
	e.GET("/api/stats", getStats(store))
	e.GET("/healthz", healthz())
}

// serveWS upgrades the connection and binds it to a hub session: one writer
// goroutine drains the session's outbound channel, the handler goroutine
// reads requests until the client goes away.
func serveWS(hub *Hub, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			return nil // Accept already wrote the handshake failure
		}
		conn.SetReadLimit(envelopeMaxSize)

		ctx := c.Request().Context()
		sess := hub.Connect(ctx)
		defer hub.Disconnect(sess)
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-sess.Done():
					if sess.Dropped() {
						// Dropped for backpressure; force the client to
						// reconnect and resync.
						_ = conn.Close(websocket.StatusTryAgainLater, "outbound backlog exceeded")
					}
					return
				case frame := <-sess.Outbound():
					wctx, cancel := context.WithTimeout(ctx, writeTimeout)
					werr := conn.Write(wctx, websocket.MessageText, frame)
					cancel()
					if werr != nil {
						return
					}
				}
			}
		}()

		for {
			_, data, rerr := conn.Read(ctx)
			if rerr != nil {
				logger.WithFields(log.Fields{"session": sess.ID, "reason": rerr}).Debug("read loop ended")
				return nil
			}
			hub.Dispatch(ctx, sess, data)
		}
	}
}

func getTasks(hub *Hub) echo.HandlerFunc {
	return func(c echo.Context) error {
		snapshot, err := hub.Snapshot(c.Request().Context())
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSONBlob(http.StatusOK, snapshot)
	}
}

func getStats(store TaskStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, domain.ComputeStats(store.List()))
	}
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}
