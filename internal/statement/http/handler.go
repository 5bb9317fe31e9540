package statementhttp

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/healthfin/healthfin/internal/access"
	"github.com/healthfin/healthfin/internal/periods"
	"github.com/healthfin/healthfin/internal/platform/httpx"
	"github.com/healthfin/healthfin/internal/records"
	"github.com/healthfin/healthfin/internal/shared"
	"github.com/healthfin/healthfin/internal/statement"
)

const defaultRequestTimeout = 15 * time.Second

// Generator is the statement contract used by the handler.
type Generator interface {
	Generate(ctx context.Context, req statement.Request, user access.UserContext) (statement.Statement, error)
}

var errorMapping = httpx.Mapping{
	access.ErrInvalidFilter:   httpx.ErrValidation,
	periods.ErrPeriodNotFound: httpx.ErrNotFound,
}

// Handler serves statement endpoints.
type Handler struct {
	logger    *slog.Logger
	generator Generator
	filters   *shared.FilterParser
	timeout   time.Duration
	limit     int
}

// NewHandler constructs the statement HTTP handler. limit is the number of
// statements a user may request per minute; zero disables limiting.
func NewHandler(logger *slog.Logger, generator Generator, timeout time.Duration, limit int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Handler{logger: logger, generator: generator, filters: shared.NewFilterParser(), timeout: timeout, limit: limit}
}

// MountRoutes registers statement endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Group(func(gr chi.Router) {
		if h.limit > 0 {
			gr.Use(httprate.Limit(h.limit, time.Minute,
				httprate.WithKeyFuncs(rateLimitKey),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					httpx.RespondError(w, httpx.ErrRateLimited)
				}),
			))
		}
		gr.Get("/api/statements", h.handleStatement)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if user, ok := access.UserFromContext(r.Context()); ok {
		if id := strings.TrimSpace(user.UserID); id != "" {
			return "user:" + id, nil
		}
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}

func (h *Handler) handleStatement(w http.ResponseWriter, r *http.Request) {
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
	entityType := strings.ToLower(strings.TrimSpace(query.Get("entityType")))
	if entityType == "" {
		entityType = records.EntityExecution
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	stmt, err := h.generator.Generate(ctx, statement.Request{Filter: filter, EntityType: entityType}, user)
	if err != nil {
		mapped := errorMapping.Translate(err)
		if mapped == err {
			h.logger.Error("generate statement",
				slog.String("user", user.UserID),
				slog.String("projectType", filter.ProjectType),
				slog.Any("error", err))
		}
		httpx.RespondError(w, mapped)
		return
	}
	if len(stmt.MissingCatalog) > 0 {
		h.logger.Warn("statement facilities without catalog",
			slog.String("projectType", stmt.ProjectType),
			slog.Any("facilities", stmt.MissingCatalog))
	}
	httpx.JSON(w, http.StatusOK, stmt)
}
