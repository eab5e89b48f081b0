package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/raasta/internal/core/domain"
	"github.com/samirrijal/raasta/internal/core/usecases"
	"github.com/samirrijal/raasta/internal/pkg/geospatial"
	"github.com/samirrijal/raasta/internal/pkg/metrics"
)

// wsRouteRequest is one route check sent by a client. A frame that is not a
// JSON object is treated as a raw "lat,lon,lat,lon" list.
type wsRouteRequest struct {
	ID       string `json:"id"`
	Points   string `json:"points"`
	Polyline string `json:"polyline"`
}

type wsRouteReply struct {
	ID    string               `json:"id,omitempty"`
	Route *domain.RouteHazards `json:"route,omitempty"`
	Error *APIError            `json:"error,omitempty"`
}

// routeReply answers a single frame. Errors are reported in the reply and
// never close the connection.
func routeReply(ctx context.Context, svc *usecases.HazardService, frame []byte) wsRouteReply {
	var req wsRouteRequest
	trimmed := bytes.TrimSpace(frame)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &req); err != nil {
			return wsRouteReply{Error: &APIError{Status: 400, Code: "bad_request", Message: "invalid JSON"}}
		}
	} else {
		req.Points = string(trimmed)
	}

	var (
		res *domain.RouteHazards
		err error
	)
	if req.Polyline != "" {
		var pts []domain.Point
		if pts, err = geospatial.ParsePolyline(req.Polyline); err == nil {
			res, err = svc.RouteIntersectionsFromPoints(ctx, pts)
		}
	} else {
		res, err = svc.RouteIntersections(ctx, req.Points)
	}
	if err != nil {
		status, code := classify(err)
		return wsRouteReply{ID: req.ID, Error: &APIError{Status: status, Code: code, Message: err.Error()}}
	}
	return wsRouteReply{ID: req.ID, Route: res}
}

// RouteStreamHandler returns a handler for /ws/route. Every text frame is a
// route and gets exactly one reply, so a navigating client can re-check its
// remaining route as it moves.
// Clients send: {"id":"1","points":"24.86,67.00,24.87,67.01"} or {"id":"2","polyline":"..."}
func RouteStreamHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr)
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		timeout := deps.RequestTimeout
		if timeout <= 0 {
			timeout = defaultRequestTimeout
		}

		for {
			mt, msg, err := c.ReadMessage()
			if err != nil {
				break
			}
			if mt != websocket.TextMessage {
				continue
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			reply := routeReply(ctx, deps.Hazards, msg)
			cancel()

			if reply.Error != nil && reply.Error.Code == "store_error" {
				slog.Warn("ws route check failed", "remote", remoteAddr, "error", reply.Error.Message)
			}
			if err := writeJSON(reply); err != nil {
				slog.Debug("ws write failed", "remote", remoteAddr, "error", err)
				break
			}
		}

		close(done)
		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}
