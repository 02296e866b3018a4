package weft

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// IDGen produces component ids for declarations that carry none of their
// own. It is injected into the Page so tests can substitute a
// deterministic source.
type IDGen interface {
	NewID() string
}

// UUIDGen generates random, collision-free ids. This is the production
// source.
type UUIDGen struct{}

func (UUIDGen) NewID() string {
	return "c" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// SeqIDGen generates ids from a monotonic counter with a fixed prefix.
// Intended for tests, where stable ids make assertions readable.
type SeqIDGen struct {
	Prefix string

	mu sync.Mutex
	n  int
}

func NewSeqIDGen(prefix string) *SeqIDGen {
	if prefix == "" {
		prefix = "c"
	}
	return &SeqIDGen{Prefix: prefix}
}

func (g *SeqIDGen) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s%d", g.Prefix, g.n)
}
