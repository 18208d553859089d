package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"authgate.org/internal/auth"
)

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", false},
		{"bearer abc.def.ghi", "abc.def.ghi", false},
		{"BEARER abc.def.ghi", "abc.def.ghi", false},
		{"  Bearer abc  ", "abc", false},
		{"", "", true},
		{"Bearer ", "", true},
		{"Basic dXNlcjpwYXNz", "", true},
		{"abc.def.ghi", "", true},
	}
	for _, tc := range cases {
		got, err := extractBearerToken(tc.header)
		if tc.wantErr {
			if err == nil {
				t.Errorf("extractBearerToken(%q): expected error", tc.header)
			}
			continue
		}
		if err != nil {
			t.Errorf("extractBearerToken(%q): %v", tc.header, err)
			continue
		}
		if got != tc.want {
			t.Errorf("extractBearerToken(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}

func TestRequireRole(t *testing.T) {
	a := &API{}
	var reached bool
	h := a.requireRole(auth.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))

	// Admin passes.
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	ctx := auth.ContextWithPrincipal(req.Context(), auth.Principal{ID: "a", Role: auth.RoleAdmin})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req.WithContext(ctx))
	if !reached || rr.Code != http.StatusOK {
		t.Fatalf("admin: reached=%v status=%d", reached, rr.Code)
	}

	// Member is refused with 403, not 401: authenticated but not allowed.
	reached = false
	req = httptest.NewRequest(http.MethodGet, "/users", nil)
	ctx = auth.ContextWithPrincipal(req.Context(), auth.Principal{ID: "m", Role: auth.RoleMember})
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req.WithContext(ctx))
	if reached {
		t.Fatal("member must not reach the handler")
	}
	if rr.Code != http.StatusForbidden {
		t.Fatalf("member: status %d, want 403", rr.Code)
	}

	// No principal in context at all means the guard never ran.
	reached = false
	req = httptest.NewRequest(http.MethodGet, "/users", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if reached {
		t.Fatal("unauthenticated request must not reach the handler")
	}
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("no principal: status %d, want 401", rr.Code)
	}
}
