// Package pagination implements keyset paging over (created_at DESC, id DESC).
// Cursors are opaque to clients: base64url of a small JSON document.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

type Params struct {
	Limit  int
	Cursor string
}

// Cursor identifies the last row of the previous page.
type Cursor struct {
	CreatedAt time.Time `json:"t"`
	ID        uuid.UUID `json:"id"`
}

type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

// LimitWithBuffer asks for one row past the page so Paginate can tell
// whether another page exists.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// Paginate cuts rows, fetched with LimitWithBuffer, down to the page and
// points NextCursor at the last row kept.
func Paginate[T any](rows []T, limit int, cursorOf func(T) Cursor) Page[T] {
	limit = NormalizeLimit(limit)
	if len(rows) <= limit {
		return Page[T]{Items: rows}
	}
	rows = rows[:limit]
	return Page[T]{Items: rows, NextCursor: EncodeCursor(cursorOf(rows[limit-1]))}
}

func EncodeCursor(c Cursor) string {
	c.CreatedAt = c.CreatedAt.UTC()
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// ParseCursor returns nil for a blank value, meaning the first page.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	if c.CreatedAt.IsZero() || c.ID == uuid.Nil {
		return nil, errors.New("incomplete cursor")
	}
	return &c, nil
}
