package rbac

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stocklane-erp/stocklane/internal/platform/httpx"
	"github.com/stocklane-erp/stocklane/internal/shared"
)

// RolesHandler exposes role CRUD and role-permission assignment endpoints.
type RolesHandler struct {
	logger    *slog.Logger
	service   *Service
	gate      Gate
	validator *validator.Validate
}

// NewRolesHandler constructs a RolesHandler.
func NewRolesHandler(logger *slog.Logger, service *Service, gate Gate) *RolesHandler {
	return &RolesHandler{logger: logger, service: service, gate: gate, validator: validator.New()}
}

// MountRoutes registers role routes. The permission gate runs before any
// lookup happens.
func (h *RolesHandler) MountRoutes(r chi.Router) {
	r.With(h.gate.Require(shared.PermViewRoles)).Get("/", h.list)
	r.With(h.gate.Require(shared.PermViewRoles)).Get("/{id}", h.get)
	r.With(h.gate.Require(shared.PermCreateRoles)).Post("/", h.create)
	r.With(h.gate.Require(shared.PermEditRoles)).Put("/{id}", h.update)
	r.With(h.gate.Require(shared.PermDeleteRoles)).Delete("/{id}", h.delete)

	r.With(h.gate.Require(shared.PermManagePermissions)).Get("/{id}/permissions", h.listAssignments)
	r.With(h.gate.Require(shared.PermManagePermissions)).Put("/{id}/permissions/{permID}", h.assign)
	r.With(h.gate.Require(shared.PermManagePermissions)).Delete("/{id}/permissions/{permID}", h.unassign)
}

type roleRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

func (h *RolesHandler) list(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.fail(w, "list roles", err)
		return
	}
	httpx.JSON(w, http.StatusOK, roles)
}

func (h *RolesHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		h.fail(w, "get role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *RolesHandler) create(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if !h.decode(w, r, &req) {
		return
	}
	role, err := h.service.CreateRole(r.Context(), req.Name, req.Description, actorID(r))
	if err != nil {
		h.fail(w, "create role", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *RolesHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req roleRequest
	if !h.decode(w, r, &req) {
		return
	}
	role, err := h.service.UpdateRole(r.Context(), id, req.Name, req.Description, actorID(r))
	if err != nil {
		h.fail(w, "update role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *RolesHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteRole(r.Context(), id, actorID(r)); err != nil {
		h.fail(w, "delete role", err)
		return
	}
	httpx.NoContent(w)
}

func (h *RolesHandler) listAssignments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	assignments, err := h.service.ListRoleAssignments(r.Context(), id)
	if err != nil {
		h.fail(w, "list assignments", err)
		return
	}
	httpx.JSON(w, http.StatusOK, assignments)
}

func (h *RolesHandler) assign(w http.ResponseWriter, r *http.Request) {
	roleID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	permID, ok := pathID(w, r, "permID")
	if !ok {
		return
	}
	if err := h.service.Assign(r.Context(), roleID, permID, actorID(r)); err != nil {
		h.fail(w, "assign permission", err)
		return
	}
	httpx.NoContent(w)
}

func (h *RolesHandler) unassign(w http.ResponseWriter, r *http.Request) {
	roleID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	permID, ok := pathID(w, r, "permID")
	if !ok {
		return
	}
	if err := h.service.Unassign(r.Context(), roleID, permID, actorID(r)); err != nil {
		h.fail(w, "unassign permission", err)
		return
	}
	httpx.NoContent(w)
}

func (h *RolesHandler) decode(w http.ResponseWriter, r *http.Request, req *roleRequest) bool {
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

func (h *RolesHandler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}

// pathID parses a positive int64 URL parameter, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid "+name)
		return 0, false
	}
	return id, true
}

// actorID extracts the acting user id from the request identity.
func actorID(r *http.Request) int64 {
	if identity := shared.IdentityFromContext(r.Context()); identity != nil {
		return identity.UserID
	}
	return 0
}
