package schema

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a fresh id for a keyed table: the table prefix followed by
// eight hex characters, e.g. act-1f3a9c02.
func NewID(t Table) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return t.IDPrefix() + "-" + hex[:8]
}
