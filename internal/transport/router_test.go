package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"

	"github.com/legalpro/caseflow/internal/activity"
	"github.com/legalpro/caseflow/internal/assignment"
	"github.com/legalpro/caseflow/internal/cases"
	"github.com/legalpro/caseflow/internal/casestore"
	"github.com/legalpro/caseflow/internal/config"
	"github.com/legalpro/caseflow/internal/notify"
	"github.com/legalpro/caseflow/internal/stats"
	"github.com/legalpro/caseflow/internal/workflow"
	"github.com/legalpro/caseflow/model"
)

type testStack struct {
	router chi.Router
	store  *casestore.MemoryStore
}

// claimsAuth builds the request context from the given claims, standing
// in for a verified JWT. Identity checks still run.
func claimsAuth(claims map[string]any) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rctx, err := IdentityFromClaims(r, claims)
			if err != nil {
				WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(model.WithRequestContext(r.Context(), rctx)))
		})
	}
}

func advocateClaims(sub string) map[string]any {
	return map[string]any{"sub": sub, "roles": []any{"advocate"}}
}

func adminClaims() map[string]any {
	return map[string]any{"sub": "admin-1", "roles": []any{"admin"}}
}

func newTestStack(t *testing.T, auth func(http.Handler) http.Handler) *testStack {
	t.Helper()
	logger := zap.NewNop()
	store := casestore.NewMemoryStore()
	actStore := activity.NewMemoryStore()
	log := activity.NewLog(actStore, store, logger, "test")
	dispatcher := notify.NewMemoryDispatcher()

	cfg := config.Defaults()
	cfg.Server.CORS.AllowedOrigins = []string{"https://app.example.com"}
	cfg.Server.HandlerTimeout = 5 * time.Second

	deps := Dependencies{
		Config:       cfg,
		Authenticate: auth,
		Cases:        cases.NewService(store, log, logger),
		Workflow:     workflow.NewEngine(store, log, dispatcher, logger),
		Assignment:   assignment.NewEngine(store, store, log, logger, 50, model.WorkloadModerate),
		Activities:   log,
		Stats:        stats.NewProvider(store, store),
	}
	return &testStack{router: NewRouter(deps), store: store}
}

func (s *testStack) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestRouterPublicRoutesBypassAuth(t *testing.T) {
	rejectAuth := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			WriteError(w, model.NewUnauthorizedError("rejected"))
		})
	}
	stack := newTestStack(t, rejectAuth)

	for _, path := range []string{"/health", "/ready"} {
		t.Run(path, func(t *testing.T) {
			w := stack.do(t, "GET", path, "")
			if w.Code != 200 {
				t.Errorf("status = %d, want 200", w.Code)
			}
		})
	}
}

func TestRouterAuthenticatedRoutesAreRegistered(t *testing.T) {
	rejectAuth := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			WriteError(w, model.NewUnauthorizedError("rejected"))
		})
	}
	stack := newTestStack(t, rejectAuth)

	routes := []struct {
		method string
		path   string
	}{
		{"POST", "/api/cases"},
		{"GET", "/api/cases"},
		{"GET", "/api/cases/case-1"},
		{"PATCH", "/api/cases/case-1"},
		{"POST", "/api/cases/case-1/status"},
		{"GET", "/api/cases/case-1/transitions"},
		{"POST", "/api/cases/case-1/advocates/primary"},
		{"POST", "/api/cases/case-1/advocates/secondary"},
		{"DELETE", "/api/cases/case-1/advocates/adv-1"},
		{"POST", "/api/cases/case-1/auto-assign"},
		{"POST", "/api/cases/case-1/transfer"},
		{"GET", "/api/cases/case-1/timeline"},
		{"POST", "/api/activities/act-1/important"},
		{"POST", "/api/activities/act-1/hide"},
		{"GET", "/api/advocates"},
		{"GET", "/api/advocates/adv-1/workload"},
		{"GET", "/api/dashboard"},
	}

	for _, tc := range routes {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := stack.do(t, tc.method, tc.path, "")
			if w.Code != 401 {
				t.Errorf("status = %d, want 401 (auth should reject)", w.Code)
			}
		})
	}
}

func TestRouterRejectsTokenWithoutIdentity(t *testing.T) {
	stack := newTestStack(t, claimsAuth(map[string]any{"sub": ""}))

	w := stack.do(t, "GET", "/api/cases", "")
	if w.Code != 401 {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestCaseLifecycleOverHTTP(t *testing.T) {
	stack := newTestStack(t, claimsAuth(adminClaims()))

	// Create a draft case.
	w := stack.do(t, "POST", "/api/cases", `{"title":"Tenancy dispute","client_id":"client-1"}`)
	if w.Code != 201 {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	var created model.Case
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Status != model.StatusDraft {
		t.Errorf("Status = %s, want draft", created.Status)
	}

	// Seed an advocate and assign them.
	if err := stack.store.PutAdvocate(context.Background(), model.Advocate{
		ID: "adv-1", Name: "A One", Role: model.RoleAdvocate, Active: true,
	}); err != nil {
		t.Fatalf("seed advocate: %v", err)
	}
	w = stack.do(t, "POST", "/api/cases/"+created.ID+"/advocates/primary", `{"advocate_id":"adv-1"}`)
	if w.Code != 200 {
		t.Fatalf("assign status = %d, body %s", w.Code, w.Body.String())
	}

	// Open the case.
	w = stack.do(t, "POST", "/api/cases/"+created.ID+"/status", `{"status":"open"}`)
	if w.Code != 200 {
		t.Fatalf("open status = %d, body %s", w.Code, w.Body.String())
	}
	var change model.StatusChange
	json.NewDecoder(w.Body).Decode(&change)
	if change.NewStatus != model.StatusOpen {
		t.Errorf("NewStatus = %s, want open", change.NewStatus)
	}

	// Transitions reflect the new status.
	w = stack.do(t, "GET", "/api/cases/"+created.ID+"/transitions", "")
	if w.Code != 200 {
		t.Fatalf("transitions status = %d", w.Code)
	}

	// Timeline carries the creation, assignment, and status entries.
	w = stack.do(t, "GET", "/api/cases/"+created.ID+"/timeline", "")
	if w.Code != 200 {
		t.Fatalf("timeline status = %d", w.Code)
	}
	var timeline struct {
		Data []model.Activity `json:"data"`
	}
	json.NewDecoder(w.Body).Decode(&timeline)
	if len(timeline.Data) != 3 {
		t.Errorf("timeline entries = %d, want 3", len(timeline.Data))
	}

	// Dashboard counts the open case.
	w = stack.do(t, "GET", "/api/dashboard", "")
	if w.Code != 200 {
		t.Fatalf("dashboard status = %d", w.Code)
	}
	var dash stats.Dashboard
	json.NewDecoder(w.Body).Decode(&dash)
	if dash.Active != 1 {
		t.Errorf("dashboard active = %d, want 1", dash.Active)
	}
}

func TestErrorMappingOverHTTP(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"missing case", "GET", "/api/cases/no-such", "", 404, model.ErrNotFound},
		{"bad JSON", "POST", "/api/cases", "{", 400, model.ErrBadRequest},
		{"missing status field", "POST", "/api/cases/x/status", `{}`, 400, model.ErrBadRequest},
		{"missing advocate id", "POST", "/api/cases/x/advocates/primary", `{}`, 400, model.ErrBadRequest},
		{"workload of unknown advocate", "GET", "/api/advocates/no-such/workload", "", 404, model.ErrNotFound},
	}

	stack := newTestStack(t, claimsAuth(adminClaims()))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := stack.do(t, tt.method, tt.path, tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			var body struct {
				Error *model.ErrorEnvelope `json:"error"`
			}
			json.NewDecoder(w.Body).Decode(&body)
			if body.Error == nil || body.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", body.Error, tt.wantCode)
			}
		})
	}
}

func TestInvalidTransitionMapsTo422(t *testing.T) {
	stack := newTestStack(t, claimsAuth(adminClaims()))

	w := stack.do(t, "POST", "/api/cases", `{"title":"Matter"}`)
	var created model.Case
	json.NewDecoder(w.Body).Decode(&created)

	// draft -> closed is not a legal move.
	w = stack.do(t, "POST", "/api/cases/"+created.ID+"/status", `{"status":"closed"}`)
	if w.Code != 422 {
		t.Errorf("status = %d, want 422 (body %s)", w.Code, w.Body.String())
	}
}

func TestActivityModerationIsAdminOnly(t *testing.T) {
	stack := newTestStack(t, claimsAuth(advocateClaims("adv-1")))

	for _, path := range []string{
		"/api/activities/act-1/important",
		"/api/activities/act-1/hide",
	} {
		t.Run(path, func(t *testing.T) {
			w := stack.do(t, "POST", path, `{}`)
			if w.Code != 403 {
				t.Errorf("status = %d, want 403", w.Code)
			}
		})
	}
}

func TestCaseListFiltersOverHTTP(t *testing.T) {
	stack := newTestStack(t, claimsAuth(adminClaims()))

	for _, title := range []string{"Land matter", "Probate matter"} {
		w := stack.do(t, "POST", "/api/cases", `{"title":"`+title+`"}`)
		if w.Code != 201 {
			t.Fatalf("create status = %d", w.Code)
		}
	}

	w := stack.do(t, "GET", "/api/cases?q=probate", "")
	if w.Code != 200 {
		t.Fatalf("list status = %d", w.Code)
	}
	var body struct {
		Data []model.Case `json:"data"`
	}
	json.NewDecoder(w.Body).Decode(&body)
	if len(body.Data) != 1 || body.Data[0].Title != "Probate matter" {
		t.Errorf("filtered list = %+v, want only the probate matter", body.Data)
	}
}
