package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"labassistant/internal/http/handlers"
	httpapi "labassistant/internal/http/httpapi"
	"labassistant/internal/imagegen"
	"labassistant/internal/infra"
	"labassistant/internal/providers/chat"
	"labassistant/internal/providers/modelscope"
	"labassistant/internal/tutor"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	chatClient := chat.NewClient(chat.Options{
		BaseURL:     cfg.ChatBaseURL,
		Model:       cfg.ChatModel,
		Temperature: &cfg.ChatTemperature,
		Timeout:     cfg.ChatTimeout,
		Logger:      &logger,
	})
	imageClient, err := modelscope.NewClient(modelscope.Options{
		BaseURL:      cfg.ModelScopeBaseURL,
		Model:        cfg.ModelScopeImageModel,
		MaxPolls:     cfg.ModelScopeMaxPolls,
		PollInterval: cfg.ModelScopePollInterval,
		Logger:       &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure image client")
	}
	orchestrator, err := imagegen.NewOrchestrator(imagegen.Options{
		Text:   chatClient,
		Images: imageClient,
		Limits: imagegen.Limits{
			MaxPromptAttempts: cfg.MaxPromptAttempts,
			MaxImageAttempts:  cfg.MaxImageAttempts,
		},
		Logger: &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build image pipeline")
	}

	app := handlers.NewApp(orchestrator, tutor.NewService(chatClient, &logger), logger, handlers.ServiceInfo{Env: cfg.AppEnv})
	app.RunTimeout = cfg.PipelineRunTimeout()
	router := httpapi.NewRouter(app, cfg, logger)

	// Cancelled on SIGINT/SIGTERM; request contexts derive from it.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	server := infra.NewHTTPServer(ctx, cfg, router)

	go func() {
		logger.Info().
			Str("addr", server.Addr()).
			Str("chat_model", chatClient.Model()).
			Str("image_model", imageClient.Model()).
			Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down, cancelling in-flight runs")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
