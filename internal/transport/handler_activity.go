package transport

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/legalpro/caseflow/internal/activity"
	"github.com/legalpro/caseflow/model"
)

func handleTimeline(log *activity.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caseID := chi.URLParam(r, "caseId")

		filters := model.ActivityFilters{
			Category:    r.URL.Query().Get("category"),
			Priority:    r.URL.Query().Get("priority"),
			PerformedBy: r.URL.Query().Get("performed_by"),
			Limit:       queryInt(r, "limit", 50),
			Offset:      queryInt(r, "offset", 0),
		}
		if v := r.URL.Query().Get("types"); v != "" {
			filters.Types = strings.Split(v, ",")
		}
		if t, ok := queryTime(r, "from"); ok {
			filters.From = &t
		}
		if t, ok := queryTime(r, "to"); ok {
			filters.To = &t
		}

		entries, err := log.Timeline(r.Context(), caseID, filters)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{
			"data":   entries,
			"limit":  filters.Limit,
			"offset": filters.Offset,
		})
	}
}

func handleMarkImportant(log *activity.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activityID := chi.URLParam(r, "activityId")

		var body struct {
			Important *bool `json:"important"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}
		important := true
		if body.Important != nil {
			important = *body.Important
		}

		act, err := log.MarkImportant(r.Context(), activityID, important)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, act)
	}
}

func handleHideActivity(log *activity.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activityID := chi.URLParam(r, "activityId")

		if err := log.Hide(r.Context(), activityID); err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "hidden"})
	}
}

func queryTime(r *http.Request, key string) (time.Time, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
