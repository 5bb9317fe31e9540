package dashboardhttp

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/healthfin/healthfin/internal/access"
	"github.com/healthfin/healthfin/internal/dashboard"
	"github.com/healthfin/healthfin/internal/periods"
	"github.com/healthfin/healthfin/internal/platform/httpx"
	"github.com/healthfin/healthfin/internal/shared"
)

const defaultRequestTimeout = 10 * time.Second

// Fetcher is the dashboard contract used by the handler.
type Fetcher interface {
	Fetch(ctx context.Context, components []string, filter access.ScopeFilter, user access.UserContext) (dashboard.Response, error)
}

var errorMapping = httpx.Mapping{
	access.ErrInvalidFilter:   httpx.ErrValidation,
	periods.ErrPeriodNotFound: httpx.ErrNotFound,
}

// Handler serves the dashboard API.
type Handler struct {
	logger  *slog.Logger
	fetcher Fetcher
	filters *shared.FilterParser
	timeout time.Duration
}

// NewHandler constructs the dashboard HTTP handler.
func NewHandler(logger *slog.Logger, fetcher Fetcher, timeout time.Duration) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Handler{logger: logger, fetcher: fetcher, filters: shared.NewFilterParser(), timeout: timeout}
}

// MountRoutes registers dashboard endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/api/dashboard", h.handleDashboard)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := access.UserFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	query := r.URL.Query()
	filter, err := h.filters.Parse(query)
	if err != nil {
		httpx.RespondError(w, errorMapping.Translate(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp, err := h.fetcher.Fetch(ctx, shared.SplitList(query.Get("components")), filter, user)
	if err != nil {
		mapped := errorMapping.Translate(err)
		if mapped == err {
			h.logger.Error("dashboard fetch", slog.String("user", user.UserID), slog.Any("error", err))
		}
		httpx.RespondError(w, mapped)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}
