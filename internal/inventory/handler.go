package inventory

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stocklane-erp/stocklane/internal/platform/httpx"
	"github.com/stocklane-erp/stocklane/internal/rbac"
	"github.com/stocklane-erp/stocklane/internal/shared"
)

// Handler exposes stock movement endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	gate      rbac.Gate
	validator *validator.Validate
}

// NewHandler constructs the inventory handler.
func NewHandler(logger *slog.Logger, service *Service, gate rbac.Gate) *Handler {
	return &Handler{logger: logger, service: service, gate: gate, validator: validator.New()}
}

// MountRoutes registers stock movement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.gate.Require(shared.PermViewStocks)).Get("/", h.list)
	r.With(h.gate.Require(shared.PermViewStocks)).Get("/{id}", h.get)
	r.With(h.gate.Require(shared.PermCreateStocks)).Post("/", h.create)
	r.With(h.gate.Require(shared.PermDeleteStocks)).Delete("/{id}", h.reverse)
}

type movementRequest struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Type      string `json:"type" validate:"required,oneof=IN OUT"`
	Quantity  int64  `json:"quantity" validate:"required,gt=0"`
	Note      string `json:"note"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	productID, _ := strconv.ParseInt(q.Get("product_id"), 10, 64)
	limit, _ := strconv.Atoi(q.Get("limit"))
	movements, err := h.service.ListMovements(r.Context(), MovementFilter{
		ProductID: productID,
		Type:      MovementType(q.Get("type")),
		Limit:     limit,
	})
	if err != nil {
		h.fail(w, "list movements", err)
		return
	}
	if movements == nil {
		movements = []Movement{}
	}
	httpx.JSON(w, http.StatusOK, movements)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	movement, err := h.service.GetMovement(r.Context(), id)
	if err != nil {
		h.fail(w, "get movement", err)
		return
	}
	httpx.JSON(w, http.StatusOK, movement)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	movement, err := h.service.CreateMovement(r.Context(), MovementInput{
		ProductID: req.ProductID,
		Type:      MovementType(req.Type),
		Quantity:  req.Quantity,
		Note:      req.Note,
		ActorID:   actorID(r),
	})
	if err != nil {
		h.fail(w, "create movement", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, movement)
}

func (h *Handler) reverse(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.ReverseMovement(r.Context(), id, actorID(r)); err != nil {
		h.fail(w, "reverse movement", err)
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
	if IsClientError(err) {
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
