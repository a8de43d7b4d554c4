package entry

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wisbric/daybook/internal/audit"
	"github.com/wisbric/daybook/internal/auth"
	"github.com/wisbric/daybook/internal/httpserver"
	"github.com/wisbric/daybook/pkg/tenant"
)

// Handler serves the entry API.
type Handler struct {
	logger *slog.Logger
	audit  *audit.Writer
}

// NewHandler creates the entry API handler.
func NewHandler(logger *slog.Logger, auditWriter *audit.Writer) *Handler {
	return &Handler{logger: logger, audit: auditWriter}
}

// Routes mounts the entry endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.remove)
	return r
}

// CreateEntryRequest is the JSON body for POST /entries.
type CreateEntryRequest struct {
	Title     string `json:"title" validate:"required,min=1,max=300"`
	Body      string `json:"body" validate:"max=65536"`
	EntryDate string `json:"entry_date" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateEntryRequest is the JSON body for PUT /entries/{id}.
type UpdateEntryRequest struct {
	Title string `json:"title" validate:"required,min=1,max=300"`
	Body  string `json:"body" validate:"max=65536"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	conn := tenant.ConnFromContext(r.Context())
	if conn == nil {
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "internal server error")
		return
	}

	params, err := httpserver.ParseCursorParams(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	var (
		after   time.Time
		afterID uuid.UUID
	)
	if params.After != nil {
		after, afterID = params.After.CreatedAt, params.After.ID
	}

	items, err := NewStore(conn).ListAfter(r.Context(), after, afterID, params.Limit+1)
	if err != nil {
		h.logger.Error("listing entries", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "internal server error")
		return
	}

	page := httpserver.NewCursorPage(items, params.Limit, func(e Entry) httpserver.Cursor {
		return httpserver.Cursor{CreatedAt: e.CreatedAt, ID: e.ID}
	})
	httpserver.Respond(w, http.StatusOK, page)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateEntryRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	t := tenant.FromContext(r.Context())
	identity := auth.FromContext(r.Context())
	conn := tenant.ConnFromContext(r.Context())
	if t == nil || conn == nil || identity == nil || identity.UserID == nil {
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "internal server error")
		return
	}

	entryDate := time.Now().UTC()
	if req.EntryDate != "" {
		// Format already checked by validation.
		entryDate, _ = time.Parse("2006-01-02", req.EntryDate)
	}

	e, err := NewStore(conn).Create(r.Context(), t.ID, *identity.UserID, entryDate, req.Title, req.Body)
	if err != nil {
		h.logger.Error("creating entry", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "internal server error")
		return
	}

	h.audit.LogFromRequest(r, "entry.create", "entry", e.ID, nil)
	httpserver.Respond(w, http.StatusCreated, e)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	conn, id, ok := h.scoped(w, r)
	if !ok {
		return
	}

	e, err := NewStore(conn).ByID(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, id, err, "fetching entry")
		return
	}
	httpserver.Respond(w, http.StatusOK, e)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req UpdateEntryRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	conn, id, ok := h.scoped(w, r)
	if !ok {
		return
	}

	e, err := NewStore(conn).Update(r.Context(), id, req.Title, req.Body)
	if err != nil {
		h.respondStoreError(w, id, err, "updating entry")
		return
	}

	h.audit.LogFromRequest(r, "entry.update", "entry", e.ID, nil)
	httpserver.Respond(w, http.StatusOK, e)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	conn, id, ok := h.scoped(w, r)
	if !ok {
		return
	}

	if err := NewStore(conn).Delete(r.Context(), id); err != nil {
		h.respondStoreError(w, id, err, "deleting entry")
		return
	}

	h.audit.LogFromRequest(r, "entry.delete", "entry", id, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) scoped(w http.ResponseWriter, r *http.Request) (tenant.Conn, uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid entry id")
		return nil, uuid.Nil, false
	}
	conn := tenant.ConnFromContext(r.Context())
	if conn == nil {
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "internal server error")
		return nil, uuid.Nil, false
	}
	return conn, id, true
}

func (h *Handler) respondStoreError(w http.ResponseWriter, id uuid.UUID, err error, op string) {
	if errors.Is(err, pgx.ErrNoRows) {
		httpserver.RespondError(w, http.StatusNotFound, "not_found", "entry not found")
		return
	}
	h.logger.Error(op, "entry_id", id, "error", err)
	httpserver.RespondError(w, http.StatusInternalServerError, "internal", "internal server error")
}
