package http

import (
	"encoding/json"
	"net/http"

	"github.com/m-mizutani/ctxlog"

	"github.com/mkurata/docship/pkg/domain/model"
	"github.com/mkurata/docship/pkg/domain/types"
)

// handleHealth returns the health check handler
func handleHealth(workflowName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := &model.HealthStatus{
			Status:   "healthy",
			Service:  types.ServiceName,
			Version:  types.Version,
			Workflow: workflowName,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(status); err != nil {
			ctxlog.From(r.Context()).Error("Failed to encode health response", "error", err)
		}
	}
}
