package ids

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// CreateULID returns a time-sortable ULID encoded as a 26-character string.
func CreateULID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	return id.String()
}

// NewActorID returns an actor identifier nested under parent, for example
// "target01hx.../console01hx...". An empty parent yields a root-level id.
func NewActorID(parent, typeName string) string {
	local := typeName + strings.ToLower(CreateULID())
	if parent == "" {
		return local
	}
	return parent + "/" + local
}
