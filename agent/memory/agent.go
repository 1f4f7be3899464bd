package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/insigna-ai/maestro/agent/contract"
)

const (
	minContentLen = 10
	maxContentLen = 2000
	maxSummaryLen = 500

	dedupThreshold  = 0.9
	dedupCandidates = 3
)

// sensitiveTokens blocks credentials and personal identifiers from ever
// reaching the durable store, regardless of entry kind.
var sensitiveTokens = []string{
	"senha", "password", "token", "secret", "api_key",
	"cpf", "rg", "cartao", "credit_card",
}

// sqlKeywords: two or more matches means the content looks like a raw
// query, which is never memorized.
var sqlKeywords = []string{"select ", "insert ", "update ", "delete ", "from "}

// Agent is the policy layer over one identity's long-term store. It decides
// what may be written, deduplicates near-identical entries and mediates all
// recall. Only the orchestration pipeline should hold one.
type Agent struct {
	identity string
	store    *Store

	writeLog []WriteOp
	readLog  []ReadOp
}

// WriteOp and ReadOp are audit records of memory operations within this
// process lifetime.
type WriteOp struct {
	Timestamp      time.Time
	Action         string
	Kind           Kind
	Domain         string
	ContentPreview string
	EmbeddingID    string
}

type ReadOp struct {
	Timestamp    time.Time
	QueryPreview string
	Results      int
}

var _ contract.Memorizer = (*Agent)(nil)

func NewAgent(identity string, store *Store) *Agent {
	return &Agent{identity: identity, store: store}
}

// ShouldMemorize applies the write gate. Order matters: size and content
// checks run before the kind allow-list so sensitive material is rejected
// no matter what kind it claims to be.
func (a *Agent) ShouldMemorize(content string, kind Kind) bool {
	trimmed := strings.TrimSpace(content)
	if len(trimmed) < minContentLen {
		return false
	}

	lower := strings.ToLower(content)
	for _, token := range sensitiveTokens {
		if strings.Contains(lower, token) {
			log.Info().Str("token", token).Msg("memory write blocked: sensitive content")
			return false
		}
	}

	sqlHits := 0
	for _, kw := range sqlKeywords {
		if strings.Contains(lower, kw) {
			sqlHits++
		}
	}
	if sqlHits >= 2 {
		log.Info().Msg("memory write blocked: looks like raw SQL")
		return false
	}

	if len(content) > maxContentLen {
		log.Info().Int("len", len(content)).Msg("memory write blocked: content too long")
		return false
	}

	switch kind {
	case KindAmbiguityResolution, KindUserPreference, KindDecision:
		return true
	case KindInteractionSummary:
		return len(content) < maxSummaryLen
	}
	return false
}

// Memorize writes content if the gate admits it. Near-duplicates (token
// Jaccard above the threshold against an existing entry of the same kind
// and domain) are not rewritten; the existing identifier is returned, which
// makes the write idempotent. The boolean reports whether an identifier is
// available at all.
func (a *Agent) Memorize(ctx context.Context, content string, kind Kind, domain string, metadata map[string]any) (string, bool) {
	if !a.ShouldMemorize(content, kind) {
		log.Debug().Str("kind", string(kind)).Msg("memory write rejected by gate")
		return "", false
	}

	if existing, ok := a.findDuplicate(ctx, content, kind, domain); ok {
		log.Info().Str("embedding_id", existing.EmbeddingID).Msg("memory write deduplicated")
		a.logWrite(existing, "deduplicated")
		return existing.EmbeddingID, true
	}

	entry := Entry{
		Identity:  a.identity,
		Kind:      kind,
		Content:   content,
		Domain:    domain,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}
	id, err := a.store.Add(ctx, entry)
	if err != nil {
		log.Error().Err(err).Msg("memory write failed")
		return "", false
	}
	entry.EmbeddingID = id
	a.logWrite(entry, "created")
	return id, true
}

func (a *Agent) findDuplicate(ctx context.Context, content string, kind Kind, domain string) (Entry, bool) {
	for _, entry := range a.store.Search(ctx, content, dedupCandidates, kind, domain) {
		if jaccard(content, entry.Content) > dedupThreshold {
			return entry, true
		}
	}
	return Entry{}, false
}

// jaccard computes token-set similarity between two texts.
func jaccard(a, b string) float64 {
	wordsA := wordSet(a)
	wordsB := wordSet(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	intersection := 0
	for w := range wordsA {
		if wordsB[w] {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Recall returns the most relevant entries for a query, optionally filtered
// by kind and domain.
func (a *Agent) Recall(ctx context.Context, query string, limit int, kind Kind, domain string) []Entry {
	results := a.store.Search(ctx, query, limit, kind, domain)
	a.logRead(query, len(results))
	return results
}

// RecallAmbiguityResolutions returns prior ambiguity resolutions relevant
// to the query.
func (a *Agent) RecallAmbiguityResolutions(ctx context.Context, query, domain string) []Entry {
	return a.Recall(ctx, query, 10, KindAmbiguityResolution, domain)
}

func (a *Agent) RecallUserPreferences() []Entry {
	return a.store.ByKind(KindUserPreference, "")
}

func (a *Agent) RecallDecisions(domain string) []Entry {
	return a.store.ByKind(KindDecision, domain)
}

// MemorizeAmbiguityResolution records one resolved term.
func (a *Agent) MemorizeAmbiguityResolution(ctx context.Context, term, resolution, domain string) (string, bool) {
	content := fmt.Sprintf("%s refere-se a %s", term, resolution)
	return a.Memorize(ctx, content, KindAmbiguityResolution, domain, map[string]any{
		"term":       term,
		"resolution": resolution,
	})
}

func (a *Agent) MemorizeUserPreference(ctx context.Context, preference, category string) (string, bool) {
	var metadata map[string]any
	if category != "" {
		metadata = map[string]any{"category": category}
	}
	return a.Memorize(ctx, preference, KindUserPreference, "", metadata)
}

func (a *Agent) MemorizeDecision(ctx context.Context, decision, domain, note string) (string, bool) {
	var metadata map[string]any
	if note != "" {
		metadata = map[string]any{"context": note}
	}
	return a.Memorize(ctx, decision, KindDecision, domain, metadata)
}

// RecallResolutions implements contract.Memorizer for the pipeline's
// memory recall stage.
func (a *Agent) RecallResolutions(ctx context.Context, query string, limit int) []contract.MemoryContextEntry {
	entries := a.RecallAmbiguityResolutions(ctx, query, "")
	if len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]contract.MemoryContextEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, contract.MemoryContextEntry{
			Kind:    "ambiguidade",
			Content: entry.Content,
			Domain:  entry.Domain,
		})
	}
	return out
}

// MemorizeResolution implements contract.Memorizer for the persistence
// stage.
func (a *Agent) MemorizeResolution(ctx context.Context, term, resolution, domain string) (string, bool) {
	return a.MemorizeAmbiguityResolution(ctx, term, resolution, domain)
}

func (a *Agent) logWrite(entry Entry, action string) {
	a.writeLog = append(a.writeLog, WriteOp{
		Timestamp:      time.Now().UTC(),
		Action:         action,
		Kind:           entry.Kind,
		Domain:         entry.Domain,
		ContentPreview: preview(entry.Content),
		EmbeddingID:    entry.EmbeddingID,
	})
}

func (a *Agent) logRead(query string, results int) {
	a.readLog = append(a.readLog, ReadOp{
		Timestamp:    time.Now().UTC(),
		QueryPreview: preview(query),
		Results:      results,
	})
}

func preview(text string) string {
	if len(text) > 100 {
		return text[:100]
	}
	return text
}

// WriteLog and ReadLog return copies of the audit trails.
func (a *Agent) WriteLog() []WriteOp {
	out := make([]WriteOp, len(a.writeLog))
	copy(out, a.writeLog)
	return out
}

func (a *Agent) ReadLog() []ReadOp {
	out := make([]ReadOp, len(a.readLog))
	copy(out, a.readLog)
	return out
}

// Stats summarizes the identity's memory for observability surfaces.
func (a *Agent) Stats() map[string]any {
	return map[string]any{
		"user_id":               a.identity,
		"total_memories":        a.store.Count(),
		"write_operations":      len(a.writeLog),
		"read_operations":       len(a.readLog),
		"ambiguity_resolutions": len(a.store.ByKind(KindAmbiguityResolution, "")),
		"user_preferences":      len(a.RecallUserPreferences()),
		"decisions":             len(a.RecallDecisions("")),
	}
}
