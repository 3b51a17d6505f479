package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"labassistant/internal/imagegen"
	"labassistant/internal/middleware"
)

const (
	imageWSReadLimit    = 64 << 10
	imageWSIdleTimeout  = 30 * time.Minute
	imageWSWriteTimeout = 30 * time.Second
)

type reactionImageRequest struct {
	Prompt string `json:"prompt"`
	APIKey string `json:"api_key"`
}

// ReactionImage runs the full pipeline and answers with the final image URL.
// Once the payload validates the response is always 200; pipeline failures
// come back as placeholder URLs.
func (a *App) ReactionImage(w http.ResponseWriter, r *http.Request) {
	var req reactionImageRequest
	if err := decode(r, &req); err != nil {
		a.error(w, r, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	if field := requireFields([2]string{"prompt", req.Prompt}, [2]string{"api_key", req.APIKey}); field != "" {
		a.error(w, r, http.StatusBadRequest, msgFieldRequired, field)
		return
	}
	ctx := r.Context()
	if a.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.RunTimeout)
		defer cancel()
	}
	st := a.Images.Run(ctx, req.Prompt, req.APIKey, nil)
	a.Logger.Info().
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Str("run_id", st.RunID).
		Int("prompt_attempts", st.PromptAttempts).
		Int("image_attempts", st.ImageAttempts).
		Msg("reaction image served")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	a.ok(w, st.ImageURL)
}

type imageWSIn struct {
	Type   string `json:"type"`
	Prompt string `json:"prompt"`
	APIKey string `json:"api_key"`
}

type imageWSOut struct {
	Type     string          `json:"type"`
	RunID    string          `json:"run_id,omitempty"`
	Event    *imagegen.Event `json:"event,omitempty"`
	ImageURL string          `json:"image_url,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// ReactionImageStream is the WebSocket variant of ReactionImage. Each
// {"type":"generate"} message starts one run; every completed stage is pushed
// as a "stage" message and the run ends with a "result" message. Runs on one
// connection are sequential.
func (a *App) ReactionImageStream(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("image ws upgrade failed")
		return
	}
	defer conn.Close()

	locale := middleware.LocaleFromContext(r.Context())
	conn.SetReadLimit(imageWSReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(imageWSIdleTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(imageWSIdleTimeout))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				a.Logger.Debug().Err(err).Msg("image ws read")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(imageWSIdleTimeout))

		var in imageWSIn
		if err := json.Unmarshal(raw, &in); err != nil {
			if writeWSJSON(conn, imageWSOut{Type: "error", Error: localize(locale, msgInvalidPayload)}) != nil {
				return
			}
			continue
		}
		switch in.Type {
		case "ping":
			if writeWSJSON(conn, imageWSOut{Type: "pong"}) != nil {
				return
			}
		case "generate":
			if !a.streamRun(r.Context(), conn, locale, in) {
				return
			}
		default:
			if writeWSJSON(conn, imageWSOut{Type: "error", Error: localize(locale, msgUnknownType, in.Type)}) != nil {
				return
			}
		}
	}
}

// streamRun reports false once the connection is no longer writable.
func (a *App) streamRun(parent context.Context, conn *websocket.Conn, locale string, in imageWSIn) bool {
	if field := requireFields([2]string{"prompt", in.Prompt}, [2]string{"api_key", in.APIKey}); field != "" {
		return writeWSJSON(conn, imageWSOut{Type: "error", Error: localize(locale, msgFieldRequired, field)}) == nil
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	writable := true
	st := a.Images.Run(ctx, strings.TrimSpace(in.Prompt), in.APIKey, func(ev imagegen.Event) {
		if !writable {
			return
		}
		if err := writeWSJSON(conn, imageWSOut{Type: "stage", RunID: ev.RunID, Event: &ev}); err != nil {
			a.Logger.Debug().Err(err).Str("run_id", ev.RunID).Msg("image ws write failed, cancelling run")
			writable = false
			cancel()
		}
	})
	if !writable {
		return false
	}
	return writeWSJSON(conn, imageWSOut{Type: "result", RunID: st.RunID, ImageURL: st.ImageURL}) == nil
}

func writeWSJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(imageWSWriteTimeout))
	return conn.WriteJSON(v)
}
