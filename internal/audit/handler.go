package audit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stocklane-erp/stocklane/internal/platform/httpx"
	"github.com/stocklane-erp/stocklane/internal/rbac"
	"github.com/stocklane-erp/stocklane/internal/shared"
)

// Handler exposes read-only audit trail endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	gate    rbac.Gate
}

// NewHandler constructs the audit handler.
func NewHandler(logger *slog.Logger, service *Service, gate rbac.Gate) *Handler {
	return &Handler{logger: logger, service: service, gate: gate}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.gate.Require(shared.PermViewAuditLogs)).Get("/", h.list)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	actorID, _ := strconv.ParseInt(q.Get("actor_id"), 10, 64)
	limit, _ := strconv.Atoi(q.Get("limit"))
	entries, err := h.service.List(r.Context(), ListFilter{
		Entity:  q.Get("entity"),
		Action:  q.Get("action"),
		ActorID: actorID,
		Limit:   limit,
	})
	if err != nil {
		h.logger.Error("list audit entries", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	httpx.JSON(w, http.StatusOK, entries)
}
