package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialImageWS(t *testing.T, app *App) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(app.ReactionImageStream))
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestReactionImageStreamSendsStagesThenResult(t *testing.T) {
	images := &stubImages{
		url:    "https://img.example.com/final.png",
		stages: []string{"generate_prompt", "evaluate_prompt", "generate_image", "evaluate_image"},
	}
	conn := dialImageWS(t, newTestApp(images, &stubTutor{}))

	if err := conn.WriteJSON(imageWSIn{Type: "generate", Prompt: "镁条燃烧", APIKey: "k"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var stages []string
	for {
		var out imageWSOut
		if err := conn.ReadJSON(&out); err != nil {
			t.Fatalf("read: %v", err)
		}
		if out.Type == "stage" {
			if out.Event == nil {
				t.Fatalf("stage message without event")
			}
			stages = append(stages, out.Event.Stage)
			continue
		}
		if out.Type != "result" {
			t.Fatalf("unexpected message %#v", out)
		}
		if out.ImageURL != "https://img.example.com/final.png" || out.RunID == "" {
			t.Fatalf("result = %#v", out)
		}
		break
	}
	if strings.Join(stages, ",") != strings.Join(images.stages, ",") {
		t.Fatalf("stages = %v, want %v", stages, images.stages)
	}
}

func TestReactionImageStreamRejectsBadMessages(t *testing.T) {
	images := &stubImages{url: "https://img.example.com/final.png"}
	conn := dialImageWS(t, newTestApp(images, &stubTutor{}))

	if err := conn.WriteJSON(imageWSIn{Type: "generate", Prompt: "镁条燃烧"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var out imageWSOut
	if err := conn.ReadJSON(&out); err != nil {
		t.Fatalf("read: %v", err)
	}
	if out.Type != "error" || !strings.Contains(out.Error, "api_key") {
		t.Fatalf("out = %#v, want missing api_key error", out)
	}

	if err := conn.WriteJSON(map[string]string{"type": "subscribe"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.ReadJSON(&out); err != nil {
		t.Fatalf("read: %v", err)
	}
	if out.Type != "error" || !strings.Contains(out.Error, "subscribe") {
		t.Fatalf("out = %#v, want unknown type error", out)
	}

	if err := conn.WriteJSON(imageWSIn{Type: "ping"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.ReadJSON(&out); err != nil || out.Type != "pong" {
		t.Fatalf("out = %#v, err = %v, want pong", out, err)
	}
	if len(images.inputs) != 0 {
		t.Fatalf("pipeline ran for invalid messages")
	}
}
