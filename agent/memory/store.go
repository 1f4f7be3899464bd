package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/viterin/vek/vek32"
)

// Store is the append-mostly long-term memory log of one identity, backed
// by a single JSON file plus an in-memory similarity index. The index is
// rebuilt from scratch after every write: O(n) per write, acceptable at
// per-user memory scale but a known limit for anything larger.
//
// A Store is not safe for concurrent writers; callers must keep at most
// one in-flight query per identity.
type Store struct {
	identity string
	dir      string
	embedder Embedder

	entries []Entry
	index   [][]float32
}

type storeFile struct {
	Identity    string    `json:"user_id"`
	LastUpdated time.Time `json:"last_updated"`
	Entries     []Entry   `json:"entries"`
}

func NewStore(dir, identity string, embedder Embedder) (*Store, error) {
	if strings.TrimSpace(identity) == "" {
		return nil, fmt.Errorf("memory store requires an identity")
	}
	if embedder == nil {
		embedder = HashEmbedder{}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create memory dir: %w", err)
	}

	s := &Store{identity: identity, dir: dir, embedder: embedder}
	if err := s.load(); err != nil {
		return nil, err
	}
	s.rebuildIndex(context.Background())
	return s, nil
}

func (s *Store) filePath() string {
	return filepath.Join(s.dir, fmt.Sprintf("memory_%s.json", s.identity))
}

func (s *Store) load() error {
	raw, err := os.ReadFile(s.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read memory file: %w", err)
	}

	var f storeFile
	if err := json.Unmarshal(raw, &f); err != nil {
		// A corrupt file must not take the pipeline down; start empty.
		log.Error().Err(err).Str("identity", s.identity).Msg("memory file corrupt, starting empty")
		s.entries = nil
		return nil
	}
	s.entries = f.Entries
	log.Debug().Str("identity", s.identity).Int("entries", len(s.entries)).Msg("memory loaded")
	return nil
}

func (s *Store) save() error {
	f := storeFile{
		Identity:    s.identity,
		LastUpdated: time.Now().UTC(),
		Entries:     s.entries,
	}
	raw, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal memory file: %w", err)
	}
	if err := os.WriteFile(s.filePath(), raw, 0o644); err != nil {
		return fmt.Errorf("write memory file: %w", err)
	}
	return nil
}

func (s *Store) embed(ctx context.Context, text string) []float32 {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		log.Warn().Err(err).Msg("embedding failed, using hash fallback")
		vec, _ = HashEmbedder{}.Embed(ctx, text)
	}
	return vec
}

func (s *Store) rebuildIndex(ctx context.Context) {
	index := make([][]float32, len(s.entries))
	for i, entry := range s.entries {
		index[i] = s.embed(ctx, entry.Content)
	}
	s.index = index
}

// Add appends a new entry, persists the log and rebuilds the index.
// Returns the entry's embedding identifier.
func (s *Store) Add(ctx context.Context, entry Entry) (string, error) {
	entry.Identity = s.identity
	entry.EmbeddingID = "mem_" + uuid.NewString()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.Version == 0 {
		entry.Version = 1
	}
	if entry.Metadata == nil {
		entry.Metadata = map[string]any{}
	}

	s.entries = append(s.entries, entry)
	if err := s.save(); err != nil {
		s.entries = s.entries[:len(s.entries)-1]
		return "", err
	}
	s.rebuildIndex(ctx)

	log.Info().
		Str("identity", s.identity).
		Str("kind", string(entry.Kind)).
		Str("domain", entry.Domain).
		Msg("memory entry added")
	return entry.EmbeddingID, nil
}

// Search returns the limit entries most relevant to query, optionally
// filtered by kind and domain. Ranking is cosine similarity over the
// embedding index when usable, otherwise lexical word overlap.
func (s *Store) Search(ctx context.Context, query string, limit int, kind Kind, domain string) []Entry {
	if len(s.entries) == 0 || limit <= 0 {
		return nil
	}

	candidates := make([]candidate, 0, len(s.entries))
	for i, entry := range s.entries {
		if kind != "" && entry.Kind != kind {
			continue
		}
		if domain != "" && entry.Domain != domain {
			continue
		}
		candidates = append(candidates, candidate{pos: i, entry: entry})
	}
	if len(candidates) == 0 {
		return nil
	}

	if len(s.index) == len(s.entries) {
		if out, ok := s.vectorSearch(ctx, query, candidates, limit); ok {
			return out
		}
	}

	return lexicalSearch(query, candidates, limit)
}

func (s *Store) vectorSearch(ctx context.Context, query string, candidates []candidate, limit int) ([]Entry, bool) {
	queryVec := s.embed(ctx, query)

	type scored struct {
		score float32
		entry Entry
	}
	hits := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		vec := s.index[c.pos]
		if len(vec) != len(queryVec) {
			// Mixed embedding dimensions (endpoint vs hash fallback);
			// the lexical path handles this batch.
			return nil, false
		}
		hits = append(hits, scored{score: vek32.CosineSimilarity(queryVec, vec), entry: c.entry})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]Entry, 0, limit)
	for i := 0; i < len(hits) && i < limit; i++ {
		out = append(out, hits[i].entry)
	}
	return out, true
}

type candidate struct {
	pos   int
	entry Entry
}

func lexicalSearch(query string, candidates []candidate, limit int) []Entry {
	queryWords := wordSet(query)
	type scored struct {
		score int
		entry Entry
	}
	hits := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		overlap := 0
		for w := range wordSet(c.entry.Content) {
			if queryWords[w] {
				overlap++
			}
		}
		if overlap > 0 {
			hits = append(hits, scored{score: overlap, entry: c.entry})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]Entry, 0, limit)
	for i := 0; i < len(hits) && i < limit; i++ {
		out = append(out, hits[i].entry)
	}
	return out
}

func wordSet(text string) map[string]bool {
	set := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[w] = true
	}
	return set
}

// ByKind returns every entry of one kind, optionally filtered by domain.
func (s *Store) ByKind(kind Kind, domain string) []Entry {
	var out []Entry
	for _, entry := range s.entries {
		if entry.Kind != kind {
			continue
		}
		if domain != "" && entry.Domain != domain {
			continue
		}
		out = append(out, entry)
	}
	return out
}

func (s *Store) Count() int {
	return len(s.entries)
}

// Clear wipes the identity's memory log. Administrative use only.
func (s *Store) Clear() error {
	s.entries = nil
	s.index = nil
	if err := s.save(); err != nil {
		return err
	}
	log.Warn().Str("identity", s.identity).Msg("memory cleared")
	return nil
}
