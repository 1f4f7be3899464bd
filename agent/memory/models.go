// Package memory implements the per-identity long-term memory store and the
// policy agent that gates every write and mediates every recall.
package memory

import "time"

// Kind classifies a long-term memory entry. Wire values are fixed; they are
// what lands in the persisted JSON files.
type Kind string

const (
	KindUserPreference      Kind = "preferencia_usuario"
	KindDecision            Kind = "decisao_tomada"
	KindAmbiguityResolution Kind = "resolucao_ambiguidade"
	KindInteractionSummary  Kind = "resumo_interacao"
)

// Valid reports whether k is one of the allow-listed kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindUserPreference, KindDecision, KindAmbiguityResolution, KindInteractionSummary:
		return true
	}
	return false
}

// Entry is one durable semantic memory. Entries are immutable once written;
// a correction is a new entry with a bumped version, never an in-place edit.
type Entry struct {
	Identity    string         `json:"user_id"`
	Kind        Kind           `json:"tipo"`
	Content     string         `json:"conteudo"`
	Domain      string         `json:"dominio,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Version     int            `json:"version"`
	EmbeddingID string         `json:"embedding_id"`
}
