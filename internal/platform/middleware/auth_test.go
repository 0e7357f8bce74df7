package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBearerAuth(t *testing.T) {
	resolve := func(ctx context.Context, token string) (string, error) {
		if token == "good" {
			return "alice", nil
		}
		return "", errors.New("unknown token")
	}

	var gotUserID string
	handler := BearerAuth(resolve)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name       string
		header     string
		headerName string
		wantStatus int
		wantUser   string
	}{
		{name: "bearer token", headerName: "Authorization", header: "Bearer good", wantStatus: http.StatusOK, wantUser: "alice"},
		{name: "apikey header", headerName: "apikey", header: "good", wantStatus: http.StatusOK, wantUser: "alice"},
		{name: "missing token", wantStatus: http.StatusUnauthorized},
		{name: "bad token", headerName: "Authorization", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotUserID = ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.headerName != "" {
				req.Header.Set(tc.headerName, tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status: want %d, got %d", tc.wantStatus, rec.Code)
			}
			if gotUserID != tc.wantUser {
				t.Fatalf("user id: want %q, got %q", tc.wantUser, gotUserID)
			}
		})
	}
}

func TestUserIDWithoutAuth(t *testing.T) {
	if got := UserID(context.Background()); got != "" {
		t.Fatalf("expected empty user id, got %q", got)
	}
}
