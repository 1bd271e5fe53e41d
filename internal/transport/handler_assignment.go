package transport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/legalpro/caseflow/internal/assignment"
	"github.com/legalpro/caseflow/model"
)

func handleAssignPrimary(engine *assignment.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.RequestContextFrom(r.Context())
		if rctx == nil {
			WriteError(w, model.NewUnauthorizedError("missing request context"))
			return
		}
		caseID := chi.URLParam(r, "caseId")

		var body struct {
			AdvocateID string `json:"advocate_id"`
			Reason     string `json:"reason"`
			MaxCases   int    `json:"max_cases"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}
		if body.AdvocateID == "" {
			WriteError(w, model.NewBadRequestError("advocate_id is required"))
			return
		}

		result, err := engine.AssignPrimary(r.Context(), rctx, caseID, body.AdvocateID, assignment.AssignOptions{
			Reason:   body.Reason,
			MaxCases: body.MaxCases,
		})
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, result)
	}
}

func handleAddSecondary(engine *assignment.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.RequestContextFrom(r.Context())
		if rctx == nil {
			WriteError(w, model.NewUnauthorizedError("missing request context"))
			return
		}
		caseID := chi.URLParam(r, "caseId")

		var body struct {
			AdvocateID string `json:"advocate_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}
		if body.AdvocateID == "" {
			WriteError(w, model.NewBadRequestError("advocate_id is required"))
			return
		}

		c, err := engine.AddSecondary(r.Context(), rctx, caseID, body.AdvocateID)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, c)
	}
}

func handleRemoveAdvocate(engine *assignment.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.RequestContextFrom(r.Context())
		if rctx == nil {
			WriteError(w, model.NewUnauthorizedError("missing request context"))
			return
		}
		caseID := chi.URLParam(r, "caseId")
		advocateID := chi.URLParam(r, "advocateId")
		replacementID := r.URL.Query().Get("replacement_id")

		c, err := engine.RemoveAdvocate(r.Context(), rctx, caseID, advocateID, replacementID)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, c)
	}
}

func handleAutoAssign(engine *assignment.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.RequestContextFrom(r.Context())
		if rctx == nil {
			WriteError(w, model.NewUnauthorizedError("missing request context"))
			return
		}
		caseID := chi.URLParam(r, "caseId")

		var body assignment.AutoAssignCriteria
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}

		result, err := engine.AutoAssign(r.Context(), rctx, caseID, body)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, result)
	}
}

func handleTransfer(engine *assignment.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.RequestContextFrom(r.Context())
		if rctx == nil {
			WriteError(w, model.NewUnauthorizedError("missing request context"))
			return
		}
		caseID := chi.URLParam(r, "caseId")

		var body struct {
			FromAdvocateID string `json:"from_advocate_id"`
			ToAdvocateID   string `json:"to_advocate_id"`
			Reason         string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}
		if body.FromAdvocateID == "" || body.ToAdvocateID == "" {
			WriteError(w, model.NewBadRequestError("from_advocate_id and to_advocate_id are required"))
			return
		}

		result, err := engine.Transfer(r.Context(), rctx, caseID, body.FromAdvocateID, body.ToAdvocateID, assignment.AssignOptions{
			Reason: body.Reason,
		})
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, result)
	}
}

func handleAdvocateWorkload(engine *assignment.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workload, err := engine.Workload(r.Context(), chi.URLParam(r, "advocateId"))
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, workload)
	}
}
