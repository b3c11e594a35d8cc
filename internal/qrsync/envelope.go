// Package qrsync moves an article catalog between devices as a sequence of
// QR code texts.
//
// The sender serializes the catalog as one compact JSON array and splits it
// into envelopes of at most DefaultChunkSize bytes. Each envelope is a small
// JSON object {"chunk":i,"total":n,"data":"..."} that fits in one QR code.
// The receiver scans envelopes in any order, reassembles the payload, and
// merges the articles into its own catalog.
package qrsync

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/roach88/bruch/internal/apperr"
	"github.com/roach88/bruch/internal/models"
)

// DefaultChunkSize is the largest data segment carried by one envelope.
const DefaultChunkSize = 2500

// MaxChunks bounds the number of envelopes in one transfer. At the default
// chunk size it allows a catalog of about 2.5 MB.
const MaxChunks = 1000

// ErrMalformedEnvelope is wrapped by every DecodeEnvelope failure.
var ErrMalformedEnvelope = errors.New("malformed sync envelope")

// Envelope is one QR code worth of a sync transfer.
type Envelope struct {
	// Chunk is the 1-based position of Data in the payload.
	Chunk int `json:"chunk"`

	// Total is the number of envelopes in the transfer.
	Total int `json:"total"`

	// Data is a contiguous segment of the serialized catalog.
	Data string `json:"data"`
}

// Text returns the QR text for the envelope.
func (e Envelope) Text() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("marshal envelope %d/%d: %w", e.Chunk, e.Total, err)
	}
	return string(b), nil
}

// Encode serializes articles and splits the result into envelopes.
//
// Segments are at most chunkSize bytes and never split a UTF-8 sequence,
// so every Data field is valid text. A payload that fits in one segment
// produces a single envelope with Total 1.
func Encode(articles []models.Article, chunkSize int) ([]Envelope, error) {
	if chunkSize < utf8.UTFMax {
		return nil, apperr.Validation("encode sync", "chunk size %d is below %d bytes", chunkSize, utf8.UTFMax)
	}
	if articles == nil {
		articles = []models.Article{}
	}
	payload, err := json.Marshal(articles)
	if err != nil {
		return nil, fmt.Errorf("encode sync: %w", err)
	}

	segments := split(string(payload), chunkSize)
	if len(segments) > MaxChunks {
		return nil, apperr.Validation("encode sync",
			"catalog needs %d envelopes, at most %d are allowed; raise the chunk size", len(segments), MaxChunks)
	}
	envelopes := make([]Envelope, len(segments))
	for i, seg := range segments {
		envelopes[i] = Envelope{Chunk: i + 1, Total: len(segments), Data: seg}
	}
	return envelopes, nil
}

// split cuts s into consecutive pieces of at most size bytes, backing each
// cut off to the nearest rune boundary.
func split(s string, size int) []string {
	if len(s) <= size {
		return []string{s}
	}
	var parts []string
	for len(s) > size {
		cut := size
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		parts = append(parts, s[:cut])
		s = s[cut:]
	}
	if s != "" {
		parts = append(parts, s)
	}
	return parts
}

// wireEnvelope detects missing fields on decode.
type wireEnvelope struct {
	Chunk *int    `json:"chunk"`
	Total *int    `json:"total"`
	Data  *string `json:"data"`
}

// DecodeEnvelope parses one scanned QR text.
//
// The text must be a JSON object with integer chunk and total and a
// non-empty string data, with 1 <= chunk <= total <= MaxChunks. Anything else fails
// with a Validation error wrapping ErrMalformedEnvelope.
func DecodeEnvelope(text string) (Envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal([]byte(text), &w); err != nil {
		return Envelope{}, malformed("not an envelope: %v", err)
	}
	switch {
	case w.Chunk == nil:
		return Envelope{}, malformed("missing chunk")
	case w.Total == nil:
		return Envelope{}, malformed("missing total")
	case w.Data == nil || *w.Data == "":
		return Envelope{}, malformed("missing data")
	case *w.Total < 1:
		return Envelope{}, malformed("total %d is below 1", *w.Total)
	case *w.Total > MaxChunks:
		return Envelope{}, malformed("total %d exceeds %d", *w.Total, MaxChunks)
	case *w.Chunk < 1 || *w.Chunk > *w.Total:
		return Envelope{}, malformed("chunk %d outside 1..%d", *w.Chunk, *w.Total)
	}
	return Envelope{Chunk: *w.Chunk, Total: *w.Total, Data: *w.Data}, nil
}

func malformed(format string, args ...any) error {
	return &apperr.Error{
		Kind:    apperr.KindValidation,
		Op:      "decode envelope",
		Message: fmt.Sprintf(format, args...),
		Err:     ErrMalformedEnvelope,
	}
}
