package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCursorRoundTrip(t *testing.T) {
	original := Cursor{
		CreatedAt: time.Date(2026, 2, 3, 9, 15, 0, 0, time.UTC),
		ID:        uuid.MustParse("3f1c6a52-9d74-4f0b-8a2e-5b1d9c0e7f21"),
	}

	decoded, err := DecodeCursor(EncodeCursor(original))
	if err != nil {
		t.Fatalf("DecodeCursor() error = %v", err)
	}
	if !decoded.CreatedAt.Equal(original.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", decoded.CreatedAt, original.CreatedAt)
	}
	if decoded.ID != original.ID {
		t.Errorf("ID = %v, want %v", decoded.ID, original.ID)
	}
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"not base64", "!!!invalid!!!"},
		{"no separator", "MTIzNDU2"},
		{"bad timestamp", "YWJjOjU1MGU4NDAwLWUyOWItNDFkNC1hNzE2LTQ0NjY1NTQ0MDAwMA"},
		{"bad uuid", "MTIzNDU2Nzg5MDpub3QtYS11dWlk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeCursor(tt.input); err == nil {
				t.Errorf("DecodeCursor(%q) = nil error, want error", tt.input)
			}
		})
	}
}

func TestParseCursorParams(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantLimit int
		wantErr   bool
	}{
		{name: "defaults", query: "", wantLimit: DefaultPageSize},
		{name: "custom limit", query: "limit=50", wantLimit: 50},
		{name: "limit at max", query: "limit=100", wantLimit: MaxPageSize},
		{name: "limit above max is capped", query: "limit=500", wantLimit: MaxPageSize},
		{name: "zero limit", query: "limit=0", wantErr: true},
		{name: "negative limit", query: "limit=-1", wantErr: true},
		{name: "non-numeric limit", query: "limit=abc", wantErr: true},
		{name: "invalid cursor", query: "after=invalid", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			p, err := ParseCursorParams(r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCursorParams() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if p.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", p.Limit, tt.wantLimit)
			}
			if p.After != nil {
				t.Errorf("After = %+v, want nil", p.After)
			}
		})
	}
}

func TestParseCursorParamsWithValidCursor(t *testing.T) {
	c := Cursor{
		CreatedAt: time.Date(2026, 7, 14, 18, 30, 0, 0, time.UTC),
		ID:        uuid.New(),
	}

	r := httptest.NewRequest(http.MethodGet, "/?after="+EncodeCursor(c)+"&limit=10", nil)
	p, err := ParseCursorParams(r)
	if err != nil {
		t.Fatalf("ParseCursorParams() error = %v", err)
	}
	if p.After == nil {
		t.Fatal("After = nil, want cursor")
	}
	if !p.After.CreatedAt.Equal(c.CreatedAt) {
		t.Errorf("After.CreatedAt = %v, want %v", p.After.CreatedAt, c.CreatedAt)
	}
	if p.Limit != 10 {
		t.Errorf("Limit = %d, want 10", p.Limit)
	}
}

func TestNewCursorPage(t *testing.T) {
	type row struct {
		ID        uuid.UUID
		CreatedAt time.Time
	}
	cursorFn := func(r row) Cursor {
		return Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	}
	rows := func(n int) []row {
		out := make([]row, n)
		for i := range out {
			out[i] = row{ID: uuid.New(), CreatedAt: time.Now()}
		}
		return out
	}

	tests := []struct {
		name       string
		fetched    int
		limit      int
		wantItems  int
		wantMore   bool
		wantCursor bool
	}{
		{name: "full page plus sentinel row", fetched: 6, limit: 5, wantItems: 5, wantMore: true, wantCursor: true},
		{name: "partial page", fetched: 3, limit: 5, wantItems: 3},
		{name: "exactly limit", fetched: 5, limit: 5, wantItems: 5},
		{name: "empty", fetched: 0, limit: 5, wantItems: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := NewCursorPage(rows(tt.fetched), tt.limit, cursorFn)
			if len(page.Items) != tt.wantItems {
				t.Errorf("len(Items) = %d, want %d", len(page.Items), tt.wantItems)
			}
			if page.HasMore != tt.wantMore {
				t.Errorf("HasMore = %v, want %v", page.HasMore, tt.wantMore)
			}
			if (page.NextCursor != nil) != tt.wantCursor {
				t.Errorf("NextCursor present = %v, want %v", page.NextCursor != nil, tt.wantCursor)
			}
		})
	}
}

func TestParseOffsetParams(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		wantPage     int
		wantPageSize int
		wantOffset   int
		wantErr      bool
	}{
		{name: "defaults", query: "", wantPage: 1, wantPageSize: DefaultPageSize, wantOffset: 0},
		{name: "custom page and size", query: "page=3&page_size=10", wantPage: 3, wantPageSize: 10, wantOffset: 20},
		{name: "page_size capped", query: "page_size=500", wantPage: 1, wantPageSize: MaxPageSize, wantOffset: 0},
		{name: "zero page", query: "page=0", wantErr: true},
		{name: "negative page", query: "page=-1", wantErr: true},
		{name: "non-numeric page_size", query: "page_size=abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			p, err := ParseOffsetParams(r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOffsetParams() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if p.Page != tt.wantPage || p.PageSize != tt.wantPageSize || p.Offset != tt.wantOffset {
				t.Errorf("params = %+v, want page=%d page_size=%d offset=%d",
					p, tt.wantPage, tt.wantPageSize, tt.wantOffset)
			}
		})
	}
}

func TestNewOffsetPage(t *testing.T) {
	type row struct{ Name string }

	tests := []struct {
		name           string
		itemCount      int
		totalItems     int
		wantTotalPages int
	}{
		{name: "first of several pages", itemCount: 10, totalItems: 25, wantTotalPages: 3},
		{name: "single page", itemCount: 3, totalItems: 3, wantTotalPages: 1},
		{name: "exact multiple", itemCount: 10, totalItems: 10, wantTotalPages: 1},
		{name: "empty", itemCount: 0, totalItems: 0, wantTotalPages: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := OffsetParams{Page: 1, PageSize: 10}
			page := NewOffsetPage(make([]row, tt.itemCount), params, tt.totalItems)

			if len(page.Items) != tt.itemCount {
				t.Errorf("len(Items) = %d, want %d", len(page.Items), tt.itemCount)
			}
			if page.TotalPages != tt.wantTotalPages {
				t.Errorf("TotalPages = %d, want %d", page.TotalPages, tt.wantTotalPages)
			}
			if page.TotalItems != tt.totalItems {
				t.Errorf("TotalItems = %d, want %d", page.TotalItems, tt.totalItems)
			}
		})
	}
}
