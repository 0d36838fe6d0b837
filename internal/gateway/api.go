// ABOUTME: HTTP API handlers for the chat stream and tool catalogue
// ABOUTME: Provides POST /api/chat (data-frame streaming) and GET /api/tools

package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/curphey/fpl-sub000/internal/agent"
	"github.com/curphey/fpl-sub000/internal/auth"
	"github.com/curphey/fpl-sub000/internal/packs"
	"github.com/curphey/fpl-sub000/internal/stream"
)

// maxRequestBytes bounds a chat request body.
const maxRequestBytes = 1 << 20

// ToolsResponse is the JSON response for GET /api/tools.
type ToolsResponse struct {
	Tools []packs.ToolDefinition `json:"tools"`
	Packs []PackResponse         `json:"packs"`
}

// PackResponse lists the tools one pack contributed.
type PackResponse struct {
	ID    string   `json:"id"`
	Tools []string `json:"tools"`
}

// handleChat runs one chat request and streams its events.
func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		g.sendJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	req, err := parseChatRequest(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		g.metrics.requests.WithLabelValues(statusInvalid).Inc()
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The token's manager id applies only when the body names none
	if req.ManagerID == nil {
		if id := auth.FromContext(r.Context()); id != nil && id.ManagerID > 0 {
			managerID := id.ManagerID
			req.ManagerID = &managerID
		}
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	g.metrics.activeStreams.Inc()
	defer g.metrics.activeStreams.Dec()

	sw := stream.NewWriter(w)
	stopKeepAlive := g.startKeepAlive(sw)
	defer stopKeepAlive()

	status := statusOK
	err = g.runner.Run(r.Context(), *req, func(ev stream.Event) error {
		if ev.Type == stream.EventError {
			status = statusModelError
		}
		return sw.Write(ev)
	})
	if err != nil {
		status = statusAborted
		g.logger.Info("chat stream abandoned", "error", err)
	}
	g.metrics.requests.WithLabelValues(status).Inc()
}

// startKeepAlive writes comment frames until the returned stop func is called.
func (g *Gateway) startKeepAlive(sw *stream.Writer) func() {
	if g.keepAlive <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(g.keepAlive)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := sw.Comment("ping"); err != nil {
					return
				}
			}
		}
	}()

	return func() {
		close(done)
		<-stopped
	}
}

// handleListTools returns the tool catalogue in registration order.
func (g *Gateway) handleListTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		g.sendJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := ToolsResponse{Tools: g.registry.List()}
	for _, p := range g.registry.Packs() {
		resp.Packs = append(resp.Packs, PackResponse{ID: p.ID, Tools: p.ToolNames})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		g.logger.Error("failed to encode tools response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// parseChatRequest parses and validates a chat request from the given reader.
func parseChatRequest(r io.Reader) (*agent.Request, error) {
	var req agent.Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errors.New("request body too large")
		}
		return nil, errors.New("invalid JSON body")
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	return &req, nil
}
