package role

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/expense-tickets/internal/transport"
)

type ServiceAPI interface {
	Get(ctx context.Context, name string) (*Role, error)
	List(ctx context.Context) ([]*Role, error)
	Upsert(ctx context.Context, name string, permissions []string) (*Role, error)
	Delete(ctx context.Context, name string) (bool, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// ListRoles handles GET /roles
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.Service.List(r.Context())
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, roles)
}

// GetRole handles GET /roles/{name}
func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	rl, err := h.Service.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, rl)
}

// UpsertRole handles PUT /roles/{name}
func (h *Handler) UpsertRole(w http.ResponseWriter, r *http.Request) {
	var dto UpsertRoleDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	rl, err := h.Service.Upsert(r.Context(), chi.URLParam(r, "name"), dto.Permissions)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, rl)
}

// DeleteRole handles DELETE /roles/{name}. Unknown names answer 404.
func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	name := Canonicalize(chi.URLParam(r, "name"))
	deleted, err := h.Service.Delete(r.Context(), name)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	if !deleted {
		h.HandleServiceError(w, r, ErrRoleNotFound)
		return
	}
	h.WriteJSON(w, http.StatusOK, DeleteRoleResponse{Name: name, Deleted: true})
}
