package delivery

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stocklane-erp/stocklane/internal/platform/httpx"
	"github.com/stocklane-erp/stocklane/internal/rbac"
	"github.com/stocklane-erp/stocklane/internal/shared"
)

// Handler exposes delivery endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	gate      rbac.Gate
	validator *validator.Validate
}

// NewHandler constructs the delivery handler.
func NewHandler(logger *slog.Logger, service *Service, gate rbac.Gate) *Handler {
	return &Handler{logger: logger, service: service, gate: gate, validator: validator.New()}
}

// MountRoutes registers delivery routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.gate.Require(shared.PermViewDeliveries)).Get("/", h.list)
	r.With(h.gate.Require(shared.PermViewDeliveries)).Get("/{id}", h.get)
	r.With(h.gate.Require(shared.PermCreateDeliveries)).Post("/", h.create)
	r.With(h.gate.Require(shared.PermEditDeliveries)).Put("/{id}", h.update)
	r.With(h.gate.Require(shared.PermValidateDeliveries)).Post("/{id}/advance", h.advance)
	r.With(h.gate.Require(shared.PermDeleteDeliveries)).Delete("/{id}", h.delete)
}

type createRequest struct {
	OrderID int64  `json:"order_id" validate:"required,gt=0"`
	Address string `json:"address" validate:"required,max=512"`
	Note    string `json:"note"`
}

type updateRequest struct {
	Address string `json:"address" validate:"required,max=512"`
	Note    string `json:"note"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	deliveries, err := h.service.List(r.Context(), Status(r.URL.Query().Get("status")))
	if err != nil {
		h.fail(w, "list deliveries", err)
		return
	}
	if deliveries == nil {
		deliveries = []Delivery{}
	}
	httpx.JSON(w, http.StatusOK, deliveries)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	d, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get delivery", err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	d, err := h.service.Create(r.Context(), req.OrderID, req.Address, req.Note, actorID(r))
	if err != nil {
		h.fail(w, "create delivery", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, d)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	d, err := h.service.UpdateAddress(r.Context(), id, req.Address, req.Note, actorID(r))
	if err != nil {
		h.fail(w, "update delivery", err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) advance(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	d, err := h.service.Advance(r.Context(), id, actorID(r))
	if err != nil {
		h.fail(w, "advance delivery", err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id, actorID(r)); err != nil {
		h.fail(w, "delete delivery", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, ErrInvalidTransition) {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}

func actorID(r *http.Request) int64 {
	if identity := shared.IdentityFromContext(r.Context()); identity != nil {
		return identity.UserID
	}
	return 0
}
