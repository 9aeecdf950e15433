package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOAuthHandler(t *testing.T) {
	serve := func(h *OAuthHandler, target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router := NewBasicRouter()
		router.Handler(h)
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		return rec
	}

	t.Run("routes follow the redirect url", func(t *testing.T) {
		h := NewOAuthHandler(fakeAuth{}, "s1")
		if routes := h.Routes(); len(routes) != 1 || routes[0] != "/api/callback" {
			t.Errorf("unexpected routes %v", routes)
		}
	})

	t.Run("exchanges the code", func(t *testing.T) {
		h := NewOAuthHandler(fakeAuth{}, "s1")
		rec := serve(h, "/api/callback?state=s1&code=good")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		result := <-h.Result()
		if result.Error() != nil {
			t.Fatalf("expected no error, got %v", result.Error())
		}
		if result.Token.AccessToken != "user_token" {
			t.Errorf("unexpected token %+v", result.Token)
		}
	})

	t.Run("rejects a bad state", func(t *testing.T) {
		h := NewOAuthHandler(fakeAuth{}, "s1")
		rec := serve(h, "/api/callback?state=other&code=good")

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if result := <-h.Result(); result.Error() == nil {
			t.Error("expected a state error")
		}
	})

	t.Run("reports denied consent", func(t *testing.T) {
		h := NewOAuthHandler(fakeAuth{}, "s1")
		rec := serve(h, "/api/callback?state=s1&error=access_denied")

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if result := <-h.Result(); result.Error() == nil {
			t.Error("expected an authorization error")
		}
	})

	t.Run("failed exchange", func(t *testing.T) {
		h := NewOAuthHandler(fakeAuth{}, "s1")
		rec := serve(h, "/api/callback?state=s1&code=bad")

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if result := <-h.Result(); result.Error() == nil {
			t.Error("expected an exchange error")
		}
	})

	t.Run("only one callback", func(t *testing.T) {
		h := NewOAuthHandler(fakeAuth{}, "s1")
		router := NewBasicRouter()
		router.Handler(h)

		for i, want := range []int{http.StatusOK, http.StatusBadRequest} {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/callback?state=s1&code=good", nil))
			if rec.Code != want {
				t.Errorf("call %d: expected %d, got %d", i, want, rec.Code)
			}
		}
	})
}
