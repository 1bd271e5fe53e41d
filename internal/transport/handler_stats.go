package transport

import (
	"net/http"

	"github.com/legalpro/caseflow/internal/stats"
)

func handleDashboard(provider *stats.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := provider.Dashboard(r.Context())
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, d)
	}
}

func handleAdvocateList(provider *stats.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loads, err := provider.AdvocateLoads(r.Context())
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"data": loads})
	}
}
