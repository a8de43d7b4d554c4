package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/wisbric/daybook/internal/httpserver"
	"github.com/wisbric/daybook/pkg/tenant"
)

// Record is an audit log row as returned by the API.
type Record struct {
	ID         uuid.UUID       `json:"id"`
	UserID     *uuid.UUID      `json:"user_id,omitempty"`
	Subject    string          `json:"subject,omitempty"`
	Action     string          `json:"action"`
	Resource   string          `json:"resource"`
	ResourceID *uuid.UUID      `json:"resource_id,omitempty"`
	Detail     json.RawMessage `json:"detail,omitempty"`
	IPAddress  *string         `json:"ip_address,omitempty"`
	UserAgent  *string         `json:"user_agent,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Handler serves the tenant-scoped audit log. Reads go through the request's
// scoped connection; the RLS policy limits them to the caller's own tenant.
type Handler struct {
	logger *slog.Logger
}

// NewHandler creates the audit API handler.
func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{logger: logger}
}

// Routes mounts the audit endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	return r
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

	records, err := listRecords(r.Context(), conn, params)
	if err != nil {
		h.logger.Error("listing audit log", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "internal server error")
		return
	}

	page := httpserver.NewCursorPage(records, params.Limit, func(rec Record) httpserver.Cursor {
		return httpserver.Cursor{CreatedAt: rec.CreatedAt, ID: rec.ID}
	})
	httpserver.Respond(w, http.StatusOK, page)
}

const recordColumns = `id, user_id, subject, action, resource, resource_id, detail, ip_address, user_agent, created_at`

// listRecords fetches limit+1 rows so the page envelope can tell whether
// more exist. Keyset pagination on (created_at, id), newest first.
func listRecords(ctx context.Context, conn tenant.Conn, params httpserver.CursorParams) ([]Record, error) {
	sql := `SELECT ` + recordColumns + ` FROM audit_log
		 ORDER BY created_at DESC, id DESC LIMIT $1`
	args := []any{params.Limit + 1}
	if params.After != nil {
		sql = `SELECT ` + recordColumns + ` FROM audit_log
		 WHERE (created_at, id) < ($2, $3)
		 ORDER BY created_at DESC, id DESC LIMIT $1`
		args = append(args, params.After.CreatedAt, params.After.ID)
	}

	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec        Record
			userID     pgtype.UUID
			resourceID pgtype.UUID
		)
		if err := rows.Scan(&rec.ID, &userID, &rec.Subject, &rec.Action, &rec.Resource,
			&resourceID, &rec.Detail, &rec.IPAddress, &rec.UserAgent, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if userID.Valid {
			id := uuid.UUID(userID.Bytes)
			rec.UserID = &id
		}
		if resourceID.Valid {
			id := uuid.UUID(resourceID.Bytes)
			rec.ResourceID = &id
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
