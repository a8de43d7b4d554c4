// Package admin is the platform operator API for managing the tenant
// directory. It is mounted under the coordinator's bypass prefix: requests
// reach it only for platform administrators, on a connection whose bypass
// flag is on, so directory writes that RLS would otherwise block succeed
// here and nowhere else.
package admin

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wisbric/daybook/internal/audit"
	"github.com/wisbric/daybook/internal/httpserver"
	"github.com/wisbric/daybook/pkg/tenant"
)

// Handler serves the platform tenant management endpoints.
type Handler struct {
	logger *slog.Logger
	audit  *audit.Writer
}

// NewHandler creates the platform admin handler.
func NewHandler(logger *slog.Logger, auditWriter *audit.Writer) *Handler {
	return &Handler{logger: logger, audit: auditWriter}
}

// Routes mounts the tenant management endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/tenants", h.list)
	r.Post("/tenants", h.create)
	r.Get("/tenants/{id}", h.get)
	r.Post("/tenants/{id}/suspend", h.suspend)
	r.Post("/tenants/{id}/restore", h.restore)
	r.Delete("/tenants/{id}", h.remove)
	return r
}

// CreateTenantRequest is the JSON body for POST /tenants.
type CreateTenantRequest struct {
	Name string `json:"name" validate:"required,min=1,max=200"`
	Slug string `json:"slug" validate:"required,min=1,max=63,hostname_rfc1123,lowercase"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	params, err := httpserver.ParseOffsetParams(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	items, err := store.List(r.Context(), params.PageSize, params.Offset)
	if err != nil {
		h.logger.Error("listing tenants", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "internal server error")
		return
	}
	total, err := store.Count(r.Context())
	if err != nil {
		h.logger.Error("counting tenants", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "internal server error")
		return
	}

	httpserver.Respond(w, http.StatusOK, httpserver.NewOffsetPage(items, params, total))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateTenantRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	store, ok := h.store(w, r)
	if !ok {
		return
	}

	t, err := store.Create(r.Context(), req.Name, req.Slug)
	if err != nil {
		h.logger.Error("creating tenant", "slug", req.Slug, "error", err)
		httpserver.RespondError(w, http.StatusConflict, "conflict", "a tenant with this slug may already exist")
		return
	}

	h.audit.LogFromRequest(r, "tenant.create", "tenant", t.ID, nil)
	httpserver.Respond(w, http.StatusCreated, t)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tenantID(w, r)
	if !ok {
		return
	}
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	t, err := store.ByID(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, id, err, "fetching tenant")
		return
	}
	httpserver.Respond(w, http.StatusOK, t)
}

func (h *Handler) suspend(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, tenant.StatusSuspended, "tenant.suspend")
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, tenant.StatusActive, "tenant.restore")
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request, status tenant.Status, action string) {
	id, ok := h.tenantID(w, r)
	if !ok {
		return
	}
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	t, err := store.SetStatus(r.Context(), id, status)
	if err != nil {
		h.respondStoreError(w, id, err, "updating tenant status")
		return
	}

	h.audit.LogFromRequest(r, action, "tenant", t.ID, nil)
	httpserver.Respond(w, http.StatusOK, t)
}

// remove marks a tenant PENDING_DELETION. The row itself is purged later by
// the data removal job, after which Store.Delete drops it; the API never
// hard-deletes directly.
func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tenantID(w, r)
	if !ok {
		return
	}
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	t, err := store.SetStatus(r.Context(), id, tenant.StatusPendingDeletion)
	if err != nil {
		h.respondStoreError(w, id, err, "marking tenant for deletion")
		return
	}

	h.audit.LogFromRequest(r, "tenant.delete", "tenant", t.ID, nil)
	httpserver.Respond(w, http.StatusOK, t)
}

func (h *Handler) store(w http.ResponseWriter, r *http.Request) (*tenant.Store, bool) {
	conn := tenant.ConnFromContext(r.Context())
	if conn == nil {
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "internal server error")
		return nil, false
	}
	return tenant.NewStore(conn), true
}

func (h *Handler) tenantID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid tenant id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respondStoreError(w http.ResponseWriter, id uuid.UUID, err error, op string) {
	if errors.Is(err, pgx.ErrNoRows) {
		httpserver.RespondError(w, http.StatusNotFound, "not_found", "tenant not found")
		return
	}
	h.logger.Error(op, "tenant_id", id, "error", err)
	httpserver.RespondError(w, http.StatusInternalServerError, "internal", "internal server error")
}
