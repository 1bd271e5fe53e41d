package transport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/legalpro/caseflow/internal/workflow"
	"github.com/legalpro/caseflow/model"
)

func handleStatusChange(engine *workflow.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.RequestContextFrom(r.Context())
		if rctx == nil {
			WriteError(w, model.NewUnauthorizedError("missing request context"))
			return
		}
		caseID := chi.URLParam(r, "caseId")

		var body struct {
			Status  string                    `json:"status"`
			Options model.StatusChangeOptions `json:"options"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}
		if body.Status == "" {
			WriteError(w, model.NewBadRequestError("status is required"))
			return
		}

		change, err := engine.ChangeStatus(r.Context(), rctx, caseID, body.Status, body.Options)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, change)
	}
}

func handleTransitions(engine *workflow.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.RequestContextFrom(r.Context())
		if rctx == nil {
			WriteError(w, model.NewUnauthorizedError("missing request context"))
			return
		}
		caseID := chi.URLParam(r, "caseId")

		options, err := engine.AvailableTransitions(r.Context(), rctx, caseID)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"transitions": options})
	}
}
