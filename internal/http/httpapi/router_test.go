package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"labassistant/internal/http/handlers"
	"labassistant/internal/imagegen"
	"labassistant/internal/infra"
	"labassistant/internal/tutor"
)

type fixedImages struct{}

func (fixedImages) Run(ctx context.Context, userInput, credential string, observe imagegen.Observer) *imagegen.PipelineState {
	st := imagegen.NewPipelineState(userInput)
	st.ImageURL = "https://img.example.com/1.png"
	return st
}

type nopTutor struct{}

func (nopTutor) ExplainReaction(ctx context.Context, credential, reaction string, level tutor.Level) (string, error) {
	return "explained", nil
}

func (nopTutor) BalanceEquation(ctx context.Context, credential, equation string) (*tutor.Balance, error) {
	return &tutor.Balance{Raw: equation}, nil
}

func (nopTutor) RecognizeMaterial(ctx context.Context, credential, imageURL string) (json.RawMessage, error) {
	return json.RawMessage(`"material"`), nil
}

func newTestRouter(rateLimit int) http.Handler {
	cfg := &infra.Config{AllowedOrigins: []string{"*"}, DefaultLocale: "zh", RateLimitPerMin: rateLimit}
	app := handlers.NewApp(fixedImages{}, nopTutor{}, zerolog.Nop(), handlers.ServiceInfo{})
	return NewRouter(app, cfg, zerolog.Nop())
}

func TestRouterServesRoutes(t *testing.T) {
	router := newTestRouter(100)
	cases := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{method: http.MethodGet, path: "/api/health", want: http.StatusOK},
		{method: http.MethodGet, path: "/api/config", want: http.StatusOK},
		{method: http.MethodPost, path: "/api/reaction/explain", body: `{"reaction":"r","api_key":"k"}`, want: http.StatusOK},
		{method: http.MethodPost, path: "/api/equation/balance", body: `{"equation":"e","api_key":"k"}`, want: http.StatusOK},
		{method: http.MethodPost, path: "/api/reaction/image", body: `{"prompt":"p","api_key":"k"}`, want: http.StatusOK},
		{method: http.MethodPost, path: "/api/material/recognize", body: `{"image_url":"https://example.com/a.png","api_key":"k"}`, want: http.StatusOK},
		{method: http.MethodGet, path: "/api/unknown", want: http.StatusNotFound},
		{method: http.MethodGet, path: "/api/reaction/image", want: http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("code = %d, want %d (%s)", rec.Code, tc.want, rec.Body.String())
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Fatalf("X-Request-ID missing")
			}
		})
	}
}

func TestRouterAnswersPreflight(t *testing.T) {
	router := newTestRouter(100)
	req := httptest.NewRequest(http.MethodOptions, "/api/reaction/image", nil)
	req.Header.Set("Origin", "https://teacher.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight code = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("Allow-Origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestRouterRateLimitsGeneration(t *testing.T) {
	router := newTestRouter(1)
	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/reaction/image", strings.NewReader(`{"prompt":"p","api_key":"k"}`))
		req.RemoteAddr = "203.0.113.9:4000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v, want [200 429]", codes)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.RemoteAddr = "203.0.113.9:4000"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("health is not rate limited, got %d", rec.Code)
	}
}
