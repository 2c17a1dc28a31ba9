package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"idsync/internal/jwttoken"
	"idsync/pkg/testutil"
)

// TestRouteScaffold checks routing and guards without a runner behind the
// handler: auth and id parsing reject these requests before any service call.
func TestRouteScaffold(t *testing.T) {
	testutil.Given(t, "the sync router with no credentials presented", func(t *testing.T) {
		discard := slog.New(slog.NewTextHandler(io.Discard, nil))
		h := New(nil, discard, jwttoken.NewService("scaffold-key", "idsync", "idsync-admin"))
		router := chi.NewRouter()
		h.Register(router)

		testutil.When(t, "calling a mutating route", func(t *testing.T) {
			for _, route := range []struct {
				method, path string
			}{
				{http.MethodPost, "/sync/configs"},
				{http.MethodPut, "/sync/configs/5f0bd12e-6366-44ec-b0a8-7c9a7b25b1a8"},
				{http.MethodDelete, "/sync/configs/5f0bd12e-6366-44ec-b0a8-7c9a7b25b1a8"},
				{http.MethodPost, "/sync/configs/5f0bd12e-6366-44ec-b0a8-7c9a7b25b1a8/start"},
				{http.MethodPost, "/sync/items/5f0bd12e-6366-44ec-b0a8-7c9a7b25b1a8/resolve"},
			} {
				req := httptest.NewRequest(route.method, route.path, nil)
				rec := httptest.NewRecorder()

				router.ServeHTTP(rec, req)

				testutil.Then(t, route.method+" "+route.path+" is rejected", func(t *testing.T) {
					if rec.Code != http.StatusUnauthorized {
						t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
					}
				})
			}
		})

		testutil.When(t, "reading with a malformed config id", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/sync/configs/not-a-uuid", nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			testutil.Then(t, "validation answers before the service", func(t *testing.T) {
				if rec.Code != http.StatusBadRequest {
					t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
				}
			})
		})
	})
}
