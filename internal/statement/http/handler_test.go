package statementhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/healthfin/healthfin/internal/access"
	"github.com/healthfin/healthfin/internal/periods"
	"github.com/healthfin/healthfin/internal/statement"
)

type stubGenerator struct {
	calls int
	req   statement.Request
	err   error
}

func (s *stubGenerator) Generate(_ context.Context, req statement.Request, _ access.UserContext) (statement.Statement, error) {
	s.calls++
	s.req = req
	if s.err != nil {
		return statement.Statement{}, s.err
	}
	return statement.Statement{
		Period:      periods.Period{ID: 3, Year: 2025},
		ProjectType: req.Filter.ProjectType,
		EntityType:  req.EntityType,
		Rows: []statement.ActivityRow{{
			Code:      "A",
			Name:      "Receipts",
			Category:  "A",
			IsSection: true,
			Values:    map[int64]decimal.Decimal{1: decimal.RequireFromString("150.50")},
			Total:     decimal.RequireFromString("150.50"),
		}},
	}, nil
}

func newRouter(gen Generator, limit int) http.Handler {
	r := chi.NewRouter()
	NewHandler(nil, gen, 0, limit).MountRoutes(r)
	return r
}

func get(router http.Handler, target string, user *access.UserContext) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if user != nil {
		req = req.WithContext(access.ContextWithUser(req.Context(), *user))
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestStatementDefaultsToExecution(t *testing.T) {
	gen := &stubGenerator{}
	rr := get(newRouter(gen, 0), "/api/statements?projectType=HIV&scope=facility&scopeId=4", &access.UserContext{UserID: "1"})

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "execution", gen.req.EntityType)
	require.Equal(t, "HIV", gen.req.Filter.ProjectType)

	var body struct {
		EntityType string `json:"entityType"`
		Rows       []struct {
			Values map[string]string `json:"values"`
			Total  string            `json:"total"`
		} `json:"rows"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	require.Equal(t, "execution", body.EntityType)
	require.Equal(t, "150.5", body.Rows[0].Values["1"])
	require.Equal(t, "150.5", body.Rows[0].Total)
}

func TestStatementMapsValidationErrors(t *testing.T) {
	gen := &stubGenerator{err: statement.ErrProjectTypeRequired}
	rr := get(newRouter(gen, 0), "/api/statements?entityType=Planning", &access.UserContext{UserID: "1"})

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "planning", gen.req.EntityType)
}

func TestStatementRateLimitedPerUser(t *testing.T) {
	gen := &stubGenerator{}
	router := newRouter(gen, 1)
	alice := &access.UserContext{UserID: "alice"}
	bob := &access.UserContext{UserID: "bob"}

	require.Equal(t, http.StatusOK, get(router, "/api/statements?projectType=TB", alice).Code)
	require.Equal(t, http.StatusTooManyRequests, get(router, "/api/statements?projectType=TB", alice).Code)
	require.Equal(t, http.StatusOK, get(router, "/api/statements?projectType=TB", bob).Code)
	require.Equal(t, 2, gen.calls)
}
