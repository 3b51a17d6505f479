package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"labassistant/internal/imagegen"
	"labassistant/internal/infra"
	"labassistant/internal/tutor"
)

// ImageGenerator runs the reaction image pipeline.
type ImageGenerator interface {
	Run(ctx context.Context, userInput, credential string, observe imagegen.Observer) *imagegen.PipelineState
}

// Tutor answers the single-turn teaching endpoints.
type Tutor interface {
	ExplainReaction(ctx context.Context, credential, reaction string, level tutor.Level) (string, error)
	BalanceEquation(ctx context.Context, credential, equation string) (*tutor.Balance, error)
	RecognizeMaterial(ctx context.Context, credential, imageURL string) (json.RawMessage, error)
}

// ServiceInfo describes the deployment on the health and config endpoints.
type ServiceInfo struct {
	Name    string
	Version string
	Env     string
}

type App struct {
	Images ImageGenerator
	Tutor  Tutor
	Logger infra.Logger
	Info   ServiceInfo
	// RunTimeout bounds one pipeline run served over plain HTTP. Zero leaves
	// the run bounded only by the request context.
	RunTimeout time.Duration

	upgrader websocket.Upgrader
}

func NewApp(images ImageGenerator, tutor Tutor, logger infra.Logger, info ServiceInfo) *App {
	if info.Name == "" {
		info.Name = "Chemistry AI Teaching Assistant"
	}
	if info.Version == "" {
		info.Version = "1.0.0"
	}
	return &App{
		Images: images,
		Tutor:  tutor,
		Logger: logger,
		Info:   info,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
