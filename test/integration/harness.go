// Package integration provides a reusable test harness for end-to-end
// integration testing of the caseflow server. It starts a full HTTP
// server with in-memory stores and a test JWT issuer.
package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/legalpro/caseflow/internal/activity"
	"github.com/legalpro/caseflow/internal/assignment"
	"github.com/legalpro/caseflow/internal/cases"
	"github.com/legalpro/caseflow/internal/casestore"
	"github.com/legalpro/caseflow/internal/config"
	"github.com/legalpro/caseflow/internal/notify"
	"github.com/legalpro/caseflow/internal/stats"
	"github.com/legalpro/caseflow/internal/transport"
	"github.com/legalpro/caseflow/internal/workflow"
	"github.com/legalpro/caseflow/model"
)

// TestHarness encapsulates a fully wired caseflow instance for
// integration testing.
type TestHarness struct {
	t      *testing.T
	server *httptest.Server
	issuer *tokenIssuer

	// Internal components exposed for advanced test scenarios.
	Store      *casestore.MemoryStore
	Activities *activity.Log
	Dispatcher *notify.MemoryDispatcher
	Workflow   *workflow.Engine
	Assignment *assignment.Engine
	Cases      *cases.Service

	cfg *config.Config
}

// HarnessOption configures the test harness.
type HarnessOption func(*harnessConfig)

type harnessConfig struct {
	maxActiveCases     int
	defaultMaxWorkload string
	handlerTimeout     time.Duration
}

// WithMaxActiveCases sets the per-advocate assignment capacity.
func WithMaxActiveCases(n int) HarnessOption {
	return func(c *harnessConfig) {
		c.maxActiveCases = n
	}
}

// WithMaxWorkload sets the auto-assignment band ceiling.
func WithMaxWorkload(band string) HarnessOption {
	return func(c *harnessConfig) {
		c.defaultMaxWorkload = band
	}
}

// WithHandlerTimeout sets the per-request handler timeout.
func WithHandlerTimeout(d time.Duration) HarnessOption {
	return func(c *harnessConfig) {
		c.handlerTimeout = d
	}
}

// NewTestHarness creates and starts a full caseflow test instance. The
// server is automatically cleaned up when the test completes.
func NewTestHarness(t *testing.T, opts ...HarnessOption) *TestHarness {
	t.Helper()

	hc := &harnessConfig{
		maxActiveCases:     50,
		defaultMaxWorkload: model.WorkloadModerate,
		handlerTimeout:     10 * time.Second,
	}
	for _, opt := range opts {
		opt(hc)
	}

	h := &TestHarness{t: t}
	logger := zap.NewNop()

	// Step 1: Build in-memory stores and services.
	h.Store = casestore.NewMemoryStore()
	h.Dispatcher = notify.NewMemoryDispatcher()
	h.Activities = activity.NewLog(activity.NewMemoryStore(), h.Store, logger, "test")

	h.Workflow = workflow.NewEngine(h.Store, h.Activities, h.Dispatcher, logger)
	h.Assignment = assignment.NewEngine(
		h.Store, h.Store, h.Activities, logger,
		hc.maxActiveCases, hc.defaultMaxWorkload,
	)
	h.Cases = cases.NewService(h.Store, h.Activities, logger)
	statsProvider := stats.NewProvider(h.Store, h.Store)

	// Step 2: Create JWT issuer.
	h.issuer = newTokenIssuer(t)

	// Step 3: Build config.
	h.cfg = config.Defaults()
	h.cfg.Server.HandlerTimeout = hc.handlerTimeout
	h.cfg.Server.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	h.cfg.Identity = config.IdentityConfig{
		Issuer:     h.issuer.Issuer(),
		Audience:   h.issuer.Audience(),
		JWKSURL:    h.issuer.JWKSURL(),
		Algorithms: []string{"RS256"},
	}

	// Step 4: Build router with the full middleware chain.
	jwks := transport.NewJWKSClient(h.issuer.JWKSURL(), 1*time.Hour)

	router := transport.NewRouter(transport.Dependencies{
		Config:       h.cfg,
		Authenticate: transport.JWTAuthenticator(h.cfg.Identity, jwks),
		Cases:        h.Cases,
		Workflow:     h.Workflow,
		Assignment:   h.Assignment,
		Activities:   h.Activities,
		Stats:        statsProvider,
	})

	// Step 5: Start test server.
	h.server = httptest.NewServer(router)
	t.Cleanup(func() {
		h.server.Close()
	})

	return h
}

// BaseURL returns the test server's base URL.
func (h *TestHarness) BaseURL() string {
	return h.server.URL
}

// GenerateToken creates a valid JWT token with the given claims.
func (h *TestHarness) GenerateToken(claims TestClaims) string {
	return h.issuer.GenerateToken(claims)
}

// GenerateExpiredToken creates a JWT that has already expired.
func (h *TestHarness) GenerateExpiredToken(claims TestClaims) string {
	return h.issuer.GenerateExpiredToken(claims)
}

// SeedAdvocate inserts an advocate directly into the store.
func (h *TestHarness) SeedAdvocate(adv model.Advocate) {
	h.t.Helper()
	if err := h.Store.PutAdvocate(context.Background(), adv); err != nil {
		h.t.Fatalf("seed advocate %s: %v", adv.ID, err)
	}
}

// SeedCase inserts a case directly into the store.
func (h *TestHarness) SeedCase(c model.Case) {
	h.t.Helper()
	if err := h.Store.Create(context.Background(), c); err != nil {
		h.t.Fatalf("seed case %s: %v", c.ID, err)
	}
}

// --- HTTP client helpers ---

// GET performs an authenticated GET request.
func (h *TestHarness) GET(path, token string) *http.Response {
	h.t.Helper()
	return h.doRequest("GET", path, nil, token)
}

// POST performs an authenticated POST request with a JSON body.
func (h *TestHarness) POST(path string, body any, token string) *http.Response {
	h.t.Helper()
	return h.doRequest("POST", path, body, token)
}

// PATCH performs an authenticated PATCH request with a JSON body.
func (h *TestHarness) PATCH(path string, body any, token string) *http.Response {
	h.t.Helper()
	return h.doRequest("PATCH", path, body, token)
}

// DELETE performs an authenticated DELETE request.
func (h *TestHarness) DELETE(path, token string) *http.Response {
	h.t.Helper()
	return h.doRequest("DELETE", path, nil, token)
}

func (h *TestHarness) doRequest(method, path string, body any, token string) *http.Response {
	h.t.Helper()

	url := h.server.URL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			h.t.Fatalf("marshal request body: %v", err)
		}
		bodyReader = strings.NewReader(string(data))
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, bodyReader)
	if err != nil {
		h.t.Fatalf("create request: %v", err)
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{
		Timeout: 10 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Do(req)
	if err != nil {
		h.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return resp
}

// ParseJSON reads the response body and unmarshals it into the target.
func (h *TestHarness) ParseJSON(resp *http.Response, target any) {
	h.t.Helper()
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		h.t.Fatalf("read response body: %v", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		h.t.Fatalf("unmarshal response body: %v\nbody: %s", err, string(data))
	}
}

// ReadBody reads and returns the response body as bytes.
func (h *TestHarness) ReadBody(resp *http.Response) []byte {
	h.t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		h.t.Fatalf("read response body: %v", err)
	}
	return data
}

// AssertStatus checks that the response has the expected status code.
func (h *TestHarness) AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Errorf("status = %d, want %d\nbody: %s", resp.StatusCode, expected, string(body))
	}
}

// AssertJSON checks that the response has the expected status and parses the body.
func (h *TestHarness) AssertJSON(t *testing.T, resp *http.Response, expected int, target any) {
	t.Helper()
	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("status = %d, want %d\nbody: %s", resp.StatusCode, expected, string(body))
	}
	h.ParseJSON(resp, target)
}

// --- Default test claims ---

// AdvocateClaims returns TestClaims for an advocate user.
func AdvocateClaims(subjectID string) TestClaims {
	return TestClaims{
		SubjectID: subjectID,
		Name:      "Test Advocate",
		Email:     subjectID + "@legalpro.example.com",
		Roles:     []string{model.RoleAdvocate},
	}
}

// AdminClaims returns TestClaims for an admin user.
func AdminClaims() TestClaims {
	return TestClaims{
		SubjectID: "user-admin",
		Name:      "Test Admin",
		Email:     "admin@legalpro.example.com",
		Roles:     []string{model.RoleAdmin},
	}
}

// ClientClaims returns TestClaims for a client user.
func ClientClaims(subjectID string) TestClaims {
	return TestClaims{
		SubjectID: subjectID,
		Name:      "Test Client",
		Email:     subjectID + "@client.example.com",
		Roles:     []string{model.RoleClient},
	}
}

// --- Fixtures ---

// AdvocateFixture returns an active advocate for seeding.
func AdvocateFixture(id string) model.Advocate {
	return model.Advocate{
		ID:              id,
		Name:            "Advocate " + id,
		Email:           id + "@legalpro.example.com",
		Role:            model.RoleAdvocate,
		Specializations: []string{"family"},
		ExperienceYears: 5,
		Active:          true,
	}
}

// CaseFixture returns a case in the given status for seeding.
func CaseFixture(id, status string) model.Case {
	now := time.Now().UTC()
	return model.Case{
		ID:           id,
		CaseNumber:   fmt.Sprintf("LP/%s/2026", id),
		Title:        "Case " + id,
		Status:       status,
		Priority:     model.PriorityMedium,
		CreatedBy:    "user-admin",
		UpdatedBy:    "user-admin",
		LastActivity: now,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}
}
