package httpserver

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultPageSize applies when the client sends no size parameter.
	DefaultPageSize = 25
	// MaxPageSize caps the per-page item count for both pagination styles.
	MaxPageSize = 100
)

// positiveQueryInt reads an integer query parameter that must be >= 1.
// The second return is false when the parameter is absent.
func positiveQueryInt(q url.Values, name string) (int, bool, error) {
	v := q.Get(name)
	if v == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, true, fmt.Errorf("%s must be a positive integer", name)
	}
	return n, true, nil
}

// Cursor is a position in a keyset-paginated result set, a (created_at, id)
// pair matching the compound index the queries scan.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// EncodeCursor renders a cursor as an opaque URL-safe token.
func EncodeCursor(c Cursor) string {
	raw := strconv.FormatInt(c.CreatedAt.UnixMicro(), 10) + ":" + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by EncodeCursor.
func DecodeCursor(s string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, fmt.Errorf("decoding cursor: %w", err)
	}

	tsPart, idPart, ok := strings.Cut(string(raw), ":")
	if !ok {
		return Cursor{}, fmt.Errorf("invalid cursor format")
	}

	usec, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid cursor timestamp: %w", err)
	}
	id, err := uuid.Parse(idPart)
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid cursor id: %w", err)
	}

	return Cursor{CreatedAt: time.UnixMicro(usec).UTC(), ID: id}, nil
}

// CursorParams are the parsed query parameters for keyset pagination.
// A nil After starts from the newest row.
type CursorParams struct {
	After *Cursor
	Limit int
}

// ParseCursorParams reads limit and after from the request query.
func ParseCursorParams(r *http.Request) (CursorParams, error) {
	p := CursorParams{Limit: DefaultPageSize}
	q := r.URL.Query()

	n, present, err := positiveQueryInt(q, "limit")
	if err != nil {
		return p, err
	}
	if present {
		p.Limit = min(n, MaxPageSize)
	}

	if v := q.Get("after"); v != "" {
		c, err := DecodeCursor(v)
		if err != nil {
			return p, fmt.Errorf("invalid cursor: %w", err)
		}
		p.After = &c
	}

	return p, nil
}

// CursorPage is the response envelope for keyset-paginated listings.
type CursorPage[T any] struct {
	Items      []T     `json:"items"`
	NextCursor *string `json:"next_cursor,omitempty"`
	HasMore    bool    `json:"has_more"`
}

// NewCursorPage wraps a result set fetched with limit+1 rows. The extra row,
// when present, signals another page and is trimmed from the output;
// cursorFn extracts the keyset position of the last returned item.
func NewCursorPage[T any](items []T, limit int, cursorFn func(T) Cursor) CursorPage[T] {
	page := CursorPage[T]{Items: items}
	if len(items) <= limit {
		return page
	}

	page.Items = items[:limit]
	page.HasMore = true
	token := EncodeCursor(cursorFn(page.Items[len(page.Items)-1]))
	page.NextCursor = &token
	return page
}

// OffsetParams are the parsed query parameters for page/page_size pagination.
type OffsetParams struct {
	Page     int
	PageSize int
	Offset   int
}

// ParseOffsetParams reads page and page_size from the request query.
func ParseOffsetParams(r *http.Request) (OffsetParams, error) {
	p := OffsetParams{Page: 1, PageSize: DefaultPageSize}
	q := r.URL.Query()

	if n, present, err := positiveQueryInt(q, "page"); err != nil {
		return p, err
	} else if present {
		p.Page = n
	}

	if n, present, err := positiveQueryInt(q, "page_size"); err != nil {
		return p, err
	} else if present {
		p.PageSize = min(n, MaxPageSize)
	}

	p.Offset = (p.Page - 1) * p.PageSize
	return p, nil
}

// OffsetPage is the response envelope for offset-paginated listings.
type OffsetPage[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// NewOffsetPage wraps a result set together with the total row count.
func NewOffsetPage[T any](items []T, params OffsetParams, totalItems int) OffsetPage[T] {
	page := OffsetPage[T]{
		Items:      items,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalItems: totalItems,
	}
	if params.PageSize > 0 {
		page.TotalPages = (totalItems + params.PageSize - 1) / params.PageSize
	}
	return page
}
