package controllers

import (
	"net/http"

	"github.com/notelift/notelift-backend/api/responses"
	"github.com/notelift/notelift-backend/pkg/config"
)

func Health(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{
			"status":  "healthy",
			"service": "notelift-backend",
			"env":     cfg.App.Env,
		})
	}
}
