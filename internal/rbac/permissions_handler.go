package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stocklane-erp/stocklane/internal/platform/httpx"
	"github.com/stocklane-erp/stocklane/internal/shared"
)

// PermissionsHandler exposes permission CRUD endpoints.
type PermissionsHandler struct {
	logger    *slog.Logger
	service   *Service
	gate      Gate
	validator *validator.Validate
}

// NewPermissionsHandler constructs a PermissionsHandler.
func NewPermissionsHandler(logger *slog.Logger, service *Service, gate Gate) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, service: service, gate: gate, validator: validator.New()}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.With(h.gate.Require(shared.PermViewPermissions)).Get("/", h.list)
	r.With(h.gate.Require(shared.PermViewPermissions)).Get("/{id}", h.get)
	r.With(h.gate.Require(shared.PermCreatePermissions)).Post("/", h.create)
	r.With(h.gate.Require(shared.PermEditPermissions)).Put("/{id}", h.update)
	r.With(h.gate.Require(shared.PermDeletePermissions)).Delete("/{id}", h.delete)
}

type permissionRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

func (h *PermissionsHandler) list(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		h.fail(w, "list permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, perms)
}

func (h *PermissionsHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	perm, err := h.service.GetPermission(r.Context(), id)
	if err != nil {
		h.fail(w, "get permission", err)
		return
	}
	httpx.JSON(w, http.StatusOK, perm)
}

func (h *PermissionsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req permissionRequest
	if !h.decode(w, r, &req) {
		return
	}
	perm, err := h.service.CreatePermission(r.Context(), req.Name, req.Description, actorID(r))
	if err != nil {
		h.fail(w, "create permission", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, perm)
}

func (h *PermissionsHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req permissionRequest
	if !h.decode(w, r, &req) {
		return
	}
	perm, err := h.service.UpdatePermission(r.Context(), id, req.Name, req.Description, actorID(r))
	if err != nil {
		h.fail(w, "update permission", err)
		return
	}
	httpx.JSON(w, http.StatusOK, perm)
}

func (h *PermissionsHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeletePermission(r.Context(), id, actorID(r)); err != nil {
		h.fail(w, "delete permission", err)
		return
	}
	httpx.NoContent(w)
}

func (h *PermissionsHandler) decode(w http.ResponseWriter, r *http.Request, req *permissionRequest) bool {
	if err := httpx.DecodeJSON(r, req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return false
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *PermissionsHandler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
