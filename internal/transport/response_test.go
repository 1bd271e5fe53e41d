package transport

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/legalpro/caseflow/model"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", model.NewNotFoundError("Case not found"), 404, model.ErrNotFound},
		{"forbidden", model.NewForbiddenError("no"), 403, model.ErrForbidden},
		{"invalid transition", model.NewInvalidTransitionError("no"), 422, model.ErrInvalidTransition},
		{"invalid role", model.NewInvalidRoleError("no"), 422, model.ErrInvalidRole},
		{"capacity", model.NewCapacityExceededError("full"), 409, model.ErrCapacityExceeded},
		{"no candidates", model.NewNoCandidatesError("none"), 409, model.ErrNoCandidates},
		{"already assigned", model.NewAlreadyAssignedError("dup"), 409, model.ErrAlreadyAssigned},
		{"not assigned", model.NewNotAssignedError("who"), 409, model.ErrNotAssigned},
		{"conflict", model.NewConflictError("stale"), 409, model.ErrConflict},
		{"plain error becomes 500", errors.New("boom"), 500, model.ErrInternalError},
		{"unknown code becomes 500", &model.ErrorEnvelope{Code: "MYSTERY"}, 500, "MYSTERY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body struct {
				Error *model.ErrorEnvelope `json:"error"`
			}
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", body.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestWriteJSONHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, 200, map[string]string{"ok": "yes"})

	if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
}

func TestWriteJSONNilBody(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, 204, nil)

	if w.Code != 204 {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", w.Body.String())
	}
}
