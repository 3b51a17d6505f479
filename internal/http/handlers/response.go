package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"labassistant/internal/domain"
	"labassistant/internal/middleware"
)

const maxBodyBytes = 1 << 20

// envelope is the shape of every JSON response.
type envelope struct {
	Success bool    `json:"success"`
	Data    any     `json:"data"`
	Error   *string `json:"error"`
}

func (a *App) ok(w http.ResponseWriter, data any) {
	a.json(w, http.StatusOK, envelope{Success: true, Data: data})
}

func (a *App) error(w http.ResponseWriter, r *http.Request, code int, key string, args ...any) {
	msg := localize(middleware.LocaleFromContext(r.Context()), key, args...)
	a.json(w, code, envelope{Success: false, Error: &msg})
}

// decode reads a JSON body into dst.
func decode(r *http.Request, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty body: %w", domain.ErrInvalidInput)
		}
		return fmt.Errorf("%v: %w", err, domain.ErrInvalidInput)
	}
	return nil
}

// requireFields returns the name of the first blank field, in order.
func requireFields(fields ...[2]string) string {
	for _, f := range fields {
		if strings.TrimSpace(f[1]) == "" {
			return f[0]
		}
	}
	return ""
}

// upstreamError maps a service error onto a response and logs it.
func (a *App) upstreamError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger := a.Logger.With().
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Str("op", op).
		Logger()
	switch {
	case errors.Is(err, domain.ErrMissingCredential):
		a.error(w, r, http.StatusBadRequest, msgFieldRequired, "api_key")
	case errors.Is(err, domain.ErrInvalidInput):
		logger.Debug().Err(err).Msg("rejected input")
		a.error(w, r, http.StatusBadRequest, msgInvalidInput)
	case errors.Is(err, context.Canceled):
		logger.Info().Err(err).Msg("client went away")
		a.error(w, r, http.StatusServiceUnavailable, msgCanceled)
	default:
		logger.Error().Err(err).Msg("upstream call failed")
		a.error(w, r, http.StatusInternalServerError, msgUpstreamFailed)
	}
}
