package transport

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/legalpro/caseflow/internal/cases"
	"github.com/legalpro/caseflow/model"
)

func handleCaseCreate(svc *cases.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.RequestContextFrom(r.Context())
		if rctx == nil {
			WriteError(w, model.NewUnauthorizedError("missing request context"))
			return
		}

		var in cases.CreateInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}

		c, err := svc.Create(r.Context(), rctx, in)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, c)
	}
}

func handleCaseGet(svc *cases.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := svc.Get(r.Context(), chi.URLParam(r, "caseId"))
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, c)
	}
}

func handleCaseList(svc *cases.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters := model.CaseFilters{
			Status:     r.URL.Query().Get("status"),
			Priority:   r.URL.Query().Get("priority"),
			AdvocateID: r.URL.Query().Get("advocate_id"),
			ClientID:   r.URL.Query().Get("client_id"),
			Query:      r.URL.Query().Get("q"),
			Limit:      queryInt(r, "limit", 20),
			Offset:     queryInt(r, "offset", 0),
		}

		list, err := svc.List(r.Context(), filters)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{
			"data":   list,
			"limit":  filters.Limit,
			"offset": filters.Offset,
		})
	}
}

func handleCaseUpdate(svc *cases.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.RequestContextFrom(r.Context())
		if rctx == nil {
			WriteError(w, model.NewUnauthorizedError("missing request context"))
			return
		}
		caseID := chi.URLParam(r, "caseId")

		var in cases.UpdateInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}

		c, err := svc.Update(r.Context(), rctx, caseID, in)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, c)
	}
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
