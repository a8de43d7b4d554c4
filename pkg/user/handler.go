package user

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wisbric/daybook/internal/auth"
	"github.com/wisbric/daybook/internal/httpserver"
	"github.com/wisbric/daybook/pkg/tenant"
)

// Handler serves the tenant-scoped user API. Every query runs on the
// request's scoped connection, so listings and lookups can never cross the
// caller's tenant boundary.
type Handler struct {
	logger *slog.Logger
}

// NewHandler creates the user API handler.
func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{logger: logger}
}

// Routes mounts the user endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/me", h.me)
	r.Get("/{id}", h.get)
	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	conn := tenant.ConnFromContext(r.Context())
	if conn == nil {
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "internal server error")
		return
	}

	params, err := httpserver.ParseOffsetParams(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	store := NewStore(conn)
	items, err := store.List(r.Context(), params.PageSize, params.Offset)
	if err != nil {
		h.logger.Error("listing users", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "internal server error")
		return
	}
	total, err := store.Count(r.Context())
	if err != nil {
		h.logger.Error("counting users", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "internal server error")
		return
	}

	httpserver.Respond(w, http.StatusOK, httpserver.NewOffsetPage(items, params, total))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	conn := tenant.ConnFromContext(r.Context())
	if conn == nil {
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "internal server error")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid user id")
		return
	}

	u, err := NewStore(conn).ByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "user not found")
			return
		}
		h.logger.Error("fetching user", "user_id", id, "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "internal server error")
		return
	}

	httpserver.Respond(w, http.StatusOK, u)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	identity := auth.FromContext(r.Context())
	if identity == nil || identity.UserID == nil {
		httpserver.RespondError(w, http.StatusNotFound, "not_found", "no user record for this identity")
		return
	}

	conn := tenant.ConnFromContext(r.Context())
	if conn == nil {
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "internal server error")
		return
	}

	u, err := NewStore(conn).ByID(r.Context(), *identity.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "no user record for this identity")
			return
		}
		h.logger.Error("fetching current user", "user_id", identity.UserID, "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "internal server error")
		return
	}

	httpserver.Respond(w, http.StatusOK, u)
}
