package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/Benny93/notegraph-go/internal/graph"
)

// prefixToken indexes note titles: t:<token>\x00<id> -> frequency.
const prefixToken = "t:"

// SearchResult is one note matched by a title search.
type SearchResult struct {
	ID    string  `json:"file"`
	Title string  `json:"title,omitempty"`
	Score float64 `json:"score"`
}

// Searcher finds notes by the words of their title or file name.
type Searcher interface {
	SearchTitles(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

var (
	splitWords = regexp.MustCompile(`[^\p{L}\p{N}]+`)
	splitCamel = regexp.MustCompile(`(\p{Ll})(\p{Lu})`)
)

// tokenize splits text into lowercase search tokens.
// Handles separators and camelCase: "DailyNote_2024-01" -> daily, note, 2024, 01.
func tokenize(text string) []string {
	text = splitCamel.ReplaceAllString(text, "$1 $2")

	var tokens []string
	for _, part := range splitWords.Split(text, -1) {
		if part != "" {
			tokens = append(tokens, strings.ToLower(part))
		}
	}
	return tokens
}

// noteTokens counts the tokens of a note's title and file name stem.
func noteTokens(n graph.Note) map[string]int {
	stem := strings.TrimSuffix(filepath.Base(n.ID), filepath.Ext(n.ID))

	freq := make(map[string]int)
	for _, token := range tokenize(n.Title + " " + stem) {
		freq[token]++
	}
	return freq
}

// indexTitle writes the token entries for one note.
func indexTitle(wb *badger.WriteBatch, n graph.Note) error {
	for token, freq := range noteTokens(n) {
		if err := wb.Set(tokenKey(token, n.ID), []byte(strconv.Itoa(freq))); err != nil {
			return err
		}
	}
	return nil
}

func tokenKey(token, id string) []byte {
	return []byte(prefixToken + token + sep + id)
}

// rankResults orders results by score descending, then identifier, and
// applies limit when positive.
func rankResults(scores map[string]float64, title func(id string) string, limit int) []SearchResult {
	results := make([]SearchResult, 0, len(scores))
	for id, score := range scores {
		results = append(results, SearchResult{ID: id, Title: title(id), Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// SearchTitles scores notes by how often the query's tokens appear in their
// title and file name.
func (b *BadgerBackend) SearchTitles(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	scores := make(map[string]float64)
	titles := make(map[string]string)

	err := b.db.View(func(txn *badger.Txn) error {
		for _, token := range tokenize(query) {
			if err := ctx.Err(); err != nil {
				return err
			}

			prefix := prefixToken + token + sep
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(prefix)
			it := txn.NewIterator(opts)

			for it.Rewind(); it.Valid(); it.Next() {
				item := it.Item()
				id := strings.TrimPrefix(string(item.Key()), prefix)

				var freq int
				err := item.Value(func(val []byte) error {
					var err error
					freq, err = strconv.Atoi(string(val))
					return err
				})
				if err != nil {
					it.Close()
					return fmt.Errorf("reading title token %q for %s: %w", token, id, err)
				}
				scores[id] += float64(freq)
			}
			it.Close()
		}

		for id := range scores {
			n, err := getNote(txn, id)
			if err != nil {
				return err
			}
			if n != nil {
				titles[id] = n.Title
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rankResults(scores, func(id string) string { return titles[id] }, limit), nil
}

// SearchTitles implements Searcher by scanning every note.
func (m *MemoryBackend) SearchTitles(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	g := m.graph()
	queryTokens := tokenize(query)

	scores := make(map[string]float64)
	for _, n := range g.Notes() {
		freq := noteTokens(n)
		for _, token := range queryTokens {
			if f := freq[token]; f > 0 {
				scores[n.ID] += float64(f)
			}
		}
	}

	return rankResults(scores, func(id string) string { return g.GetNote(id).Title }, limit), nil
}
