package pagination

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

var ErrInvalidCursor = errors.New("invalid_cursor")

// ParseToken decodes a page token into its snowflake id and creation time.
// An empty token yields ok=false and no error.
func ParseToken(token string) (id snowflake.ID, createdAt time.Time, ok bool, err error) {
	if strings.TrimSpace(token) == "" {
		return 0, time.Time{}, false, nil
	}
	cursor, err := DecodeCursor(token)
	if err != nil {
		return 0, time.Time{}, false, ErrInvalidCursor
	}
	createdAt, err = time.Parse(time.RFC3339Nano, cursor.CreatedAt)
	if err != nil {
		return 0, time.Time{}, false, ErrInvalidCursor
	}
	id, err = snowflake.ParseString(strings.TrimSpace(cursor.ID))
	if err != nil || id == 0 {
		return 0, time.Time{}, false, ErrInvalidCursor
	}
	return id, createdAt, true, nil
}

// Token encodes the cursor for a row; it returns "" if encoding fails.
func Token(id snowflake.ID, createdAt time.Time) string {
	token, err := EncodeCursor(Cursor{
		ID:        id.String(),
		CreatedAt: createdAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return ""
	}
	return token
}
