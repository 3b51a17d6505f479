package handlers

import (
	"net/http"

	"labassistant/internal/tutor"
)

type explainRequest struct {
	Reaction string `json:"reaction"`
	Level    string `json:"level"`
	APIKey   string `json:"api_key"`
}

type balanceRequest struct {
	Equation string `json:"equation"`
	APIKey   string `json:"api_key"`
}

type recognizeRequest struct {
	ImageURL string `json:"image_url"`
	APIKey   string `json:"api_key"`
}

func (a *App) ExplainReaction(w http.ResponseWriter, r *http.Request) {
	var req explainRequest
	if err := decode(r, &req); err != nil {
		a.error(w, r, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	if field := requireFields([2]string{"reaction", req.Reaction}, [2]string{"api_key", req.APIKey}); field != "" {
		a.error(w, r, http.StatusBadRequest, msgFieldRequired, field)
		return
	}
	level, err := tutor.ParseLevel(req.Level)
	if err != nil {
		a.error(w, r, http.StatusBadRequest, msgInvalidLevel)
		return
	}
	text, err := a.Tutor.ExplainReaction(r.Context(), req.APIKey, req.Reaction, level)
	if err != nil {
		a.upstreamError(w, r, "explain_reaction", err)
		return
	}
	a.ok(w, text)
}

func (a *App) BalanceEquation(w http.ResponseWriter, r *http.Request) {
	var req balanceRequest
	if err := decode(r, &req); err != nil {
		a.error(w, r, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	if field := requireFields([2]string{"equation", req.Equation}, [2]string{"api_key", req.APIKey}); field != "" {
		a.error(w, r, http.StatusBadRequest, msgFieldRequired, field)
		return
	}
	result, err := a.Tutor.BalanceEquation(r.Context(), req.APIKey, req.Equation)
	if err != nil {
		a.upstreamError(w, r, "balance_equation", err)
		return
	}
	a.ok(w, result)
}

func (a *App) RecognizeMaterial(w http.ResponseWriter, r *http.Request) {
	var req recognizeRequest
	if err := decode(r, &req); err != nil {
		a.error(w, r, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	if field := requireFields([2]string{"image_url", req.ImageURL}, [2]string{"api_key", req.APIKey}); field != "" {
		a.error(w, r, http.StatusBadRequest, msgFieldRequired, field)
		return
	}
	result, err := a.Tutor.RecognizeMaterial(r.Context(), req.APIKey, req.ImageURL)
	if err != nil {
		a.upstreamError(w, r, "recognize_material", err)
		return
	}
	a.ok(w, result)
}
