package handlers

import (
	"net/http"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": a.Info.Name,
		"version": a.Info.Version,
	})
}

type serviceConfig struct {
	ServiceName string            `json:"service_name"`
	Version     string            `json:"version"`
	Environment string            `json:"environment,omitempty"`
	Features    []string          `json:"features"`
	Endpoints   map[string]string `json:"endpoints"`
}

// Config describes the available features so clients can discover routes.
func (a *App) Config(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, serviceConfig{
		ServiceName: "乡村化学教师AI教学助手",
		Version:     a.Info.Version,
		Environment: a.Info.Env,
		Features: []string{
			"化学反应智能讲解",
			"方程式自动配平",
			"反应现象可视化",
			"实验物质识别",
		},
		Endpoints: map[string]string{
			"explain_reaction":      "/api/reaction/explain",
			"balance_equation":      "/api/equation/balance",
			"generate_image":        "/api/reaction/image",
			"generate_image_stream": "/api/reaction/image/ws",
			"recognize_material":    "/api/material/recognize",
		},
	})
}
