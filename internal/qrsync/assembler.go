package qrsync

import (
	"sort"
	"strings"

	"github.com/roach88/bruch/internal/apperr"
)

// Status describes a partially received transfer.
type Status struct {
	Received int   `json:"received"`
	Total    int   `json:"total"`
	Missing  []int `json:"missing"`
}

// Complete reports whether every envelope has arrived.
func (s Status) Complete() bool {
	return s.Total > 0 && s.Received == s.Total
}

// Assembler collects envelopes of one transfer in any order.
// Re-scanning an envelope already received is a no-op.
//
// Assembler is not safe for concurrent use.
type Assembler struct {
	total  int
	chunks map[int]string
}

// NewAssembler creates an empty Assembler.
func NewAssembler() *Assembler {
	return &Assembler{chunks: make(map[int]string)}
}

// Add records env and returns the updated status.
//
// An envelope whose total disagrees with earlier envelopes, or whose data
// differs from an earlier envelope with the same index, belongs to another
// transfer and is rejected with a Validation error.
func (a *Assembler) Add(env Envelope) (Status, error) {
	if a.total == 0 {
		a.total = env.Total
	}
	if env.Total != a.total {
		return a.Status(), apperr.Validation("assemble sync",
			"envelope %d claims %d chunks, transfer has %d", env.Chunk, env.Total, a.total)
	}
	if prev, ok := a.chunks[env.Chunk]; ok && prev != env.Data {
		return a.Status(), apperr.Validation("assemble sync",
			"envelope %d conflicts with an earlier scan", env.Chunk)
	}
	a.chunks[env.Chunk] = env.Data
	return a.Status(), nil
}

// Status reports received and missing indices.
func (a *Assembler) Status() Status {
	missing := []int{}
	for i := 1; i <= a.total; i++ {
		if _, ok := a.chunks[i]; !ok {
			missing = append(missing, i)
		}
	}
	return Status{Received: len(a.chunks), Total: a.total, Missing: missing}
}

// Payload concatenates the data of every envelope in index order.
func (a *Assembler) Payload() (string, error) {
	st := a.Status()
	if !st.Complete() {
		return "", apperr.Validation("assemble sync",
			"transfer incomplete: %d of %d chunks", st.Received, st.Total)
	}

	indices := make([]int, 0, len(a.chunks))
	for i := range a.chunks {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	var b strings.Builder
	for _, i := range indices {
		b.WriteString(a.chunks[i])
	}
	return b.String(), nil
}

// Reset discards every received envelope.
func (a *Assembler) Reset() {
	a.total = 0
	a.chunks = make(map[int]string)
}
