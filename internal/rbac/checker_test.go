package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCheckerDefaults(t *testing.T) {
	c := NewChecker(nil)
	cases := []struct {
		role, perm string
		want       bool
	}{
		{"learner", "quiz:take", true},
		{"learner", "quiz:author", false},
		{"learner", "attempt:view-own", true},
		{"learner", "attempt:view-all", false},
		{"instructor", "quiz:author", true},
		{"instructor", "attempt:view-all", true},
		{"instructor", "users:bulk_upsert", false},
		{"admin", "quiz:author", true},
		{"admin", "anything:at-all", true},
		{"ghost-role", "quiz:take", false},
	}
	for _, tc := range cases {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Errorf("Has(%q, %q) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestCheckerAny(t *testing.T) {
	c := NewChecker(nil)
	if !c.Any("learner", "attempt:view-all", "attempt:view-own") {
		t.Error("learner should match view-own via Any")
	}
	if c.Any("learner", "quiz:author", "content:upload") {
		t.Error("learner must not match instructor permissions")
	}
}

func TestMatchPermWildcard(t *testing.T) {
	c := NewChecker(map[string][]string{"ops": {"quiz:*"}})
	if !c.Has("ops", "quiz:take") || !c.Has("ops", "quiz:author") {
		t.Error("prefix wildcard should cover the quiz namespace")
	}
	if c.Has("ops", "content:view") {
		t.Error("prefix wildcard leaked outside its namespace")
	}
	if c.Has("ops", "quizzes:list") {
		t.Error("namespace match must stop at the separator")
	}
}

func TestRequireMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := NewChecker(nil).Require("quiz:author")(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithRole(context.Background(), "instructor"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("instructor = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithRole(context.Background(), "learner"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("learner = %d, want 403", rec.Code)
	}

	// no role in context at all
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("missing role = %d, want 403", rec.Code)
	}
}

func TestRequireAnyMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := NewChecker(nil).RequireAny("attempt:view-own", "attempt:view-all")(next)

	for role, want := range map[string]int{
		"learner":    http.StatusOK,
		"instructor": http.StatusOK,
		"nobody":     http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithRole(context.Background(), role))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("%s = %d, want %d", role, rec.Code, want)
		}
	}
}
