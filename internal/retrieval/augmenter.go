// Package retrieval merges semantic ranking with keyword and conversation
// cues into the context list used to answer a chat query.
package retrieval

import (
	"sort"
	"strings"
	"unicode"

	"docchat-platform/internal/similarity"
	"docchat-platform/models"
)

const (
	SemanticTopK      = 5
	ContextualTopK    = 3
	MaxContext        = 8
	KeywordMatchScore = 0.5
)

// Context-dependency cues: anaphora and translation requests that refer back
// to the conversation rather than to fresh document content.
// Ordinary function words ("it", "that", "these") are left out because
// plain document questions use them constantly.
var contextCues = map[string]bool{
	"this": true, "previous": true, "earlier": true,
	"translate": true, "translation": true,
}

var translationCues = []string{"translate", "translation", "in english", "in spanish", "in french", "in german"}

// Match is one retrieved chunk with its similarity to the query.
type Match struct {
	Chunk      *models.Chunk
	Similarity float64
	Keyword    bool
}

// Intent describes which heuristics a query triggers.
type Intent struct {
	ContextDependent bool
	Translation      bool
	Terms            []string
}

// Augmenter performs hybrid retrieval over a candidate chunk set.
type Augmenter struct {
	// tracked maps a lower-cased term to the literal needles searched for it
	tracked map[string][]string
	order   []string
}

// DefaultTrackedTerms is used when no vocabulary is configured.
var DefaultTrackedTerms = map[string][]string{
	"contract": {"agreement"},
	"invoice":  {"bill"},
}

// NewAugmenter builds an Augmenter for the given term vocabulary. Each term
// also matches its synonyms.
func NewAugmenter(terms map[string][]string) *Augmenter {
	if len(terms) == 0 {
		terms = DefaultTrackedTerms
	}
	a := &Augmenter{tracked: make(map[string][]string, len(terms))}
	for term, synonyms := range terms {
		key := strings.ToLower(strings.TrimSpace(term))
		if key == "" {
			continue
		}
		needles := []string{key}
		for _, s := range synonyms {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				needles = append(needles, s)
			}
		}
		a.tracked[key] = needles
		a.order = append(a.order, key)
	}
	sort.Strings(a.order)
	return a
}

// Classify inspects the query for context cues and tracked terms.
func (a *Augmenter) Classify(query string) Intent {
	lower := strings.ToLower(query)
	var intent Intent

	for _, w := range words(lower) {
		if contextCues[w] {
			intent.ContextDependent = true
			break
		}
	}
	for _, cue := range translationCues {
		if strings.Contains(lower, cue) {
			intent.Translation = true
			break
		}
	}
	for _, term := range a.order {
		if strings.Contains(lower, term) {
			intent.Terms = append(intent.Terms, term)
		}
	}
	return intent
}

// Augment returns semantic matches first, by descending similarity,
// followed by keyword matches, deduplicated by chunk id and capped at
// MaxContext entries.
func (a *Augmenter) Augment(query string, queryVector []float32, candidates []*models.Chunk) []Match {
	intent := a.Classify(query)

	ranked := similarity.Rank(queryVector, candidates, SemanticTopK).Matches
	if intent.ContextDependent && len(ranked) > ContextualTopK {
		ranked = ranked[:ContextualTopK]
	}

	out := make([]Match, 0, MaxContext)
	seen := make(map[string]bool, MaxContext)
	for _, r := range ranked {
		out = append(out, Match{Chunk: r.Item, Similarity: r.Similarity})
		seen[r.Item.ID] = true
	}

	if len(intent.Terms) == 0 || intent.Translation {
		return out
	}

	var needles []string
	for _, term := range intent.Terms {
		needles = append(needles, a.tracked[term]...)
	}

	for _, c := range candidates {
		if len(out) >= MaxContext {
			break
		}
		if seen[c.ID] || !containsAny(strings.ToLower(c.Content), needles) {
			continue
		}
		out = append(out, Match{Chunk: c, Similarity: KeywordMatchScore, Keyword: true})
		seen[c.ID] = true
	}
	return out
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
}
