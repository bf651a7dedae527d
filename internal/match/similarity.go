package match

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// maxVocabularyTerms caps the fitted vocabulary, mirroring the profile
// vectorizer this engine replaces.
const maxVocabularyTerms = 1000

var tokenPattern = regexp.MustCompile(`[a-z0-9]{2,}`)

// Common English stop words, removed before building term vectors.
var stopWords = map[string]struct{}{
	"a": {}, "about": {}, "above": {}, "after": {}, "again": {}, "against": {},
	"all": {}, "also": {}, "am": {}, "an": {}, "and": {}, "any": {}, "are": {},
	"as": {}, "at": {}, "be": {}, "because": {}, "been": {}, "before": {},
	"being": {}, "below": {}, "between": {}, "both": {}, "but": {}, "by": {},
	"can": {}, "cannot": {}, "could": {}, "did": {}, "do": {}, "does": {},
	"doing": {}, "down": {}, "during": {}, "each": {}, "few": {}, "for": {},
	"from": {}, "further": {}, "had": {}, "has": {}, "have": {}, "having": {},
	"he": {}, "her": {}, "here": {}, "hers": {}, "herself": {}, "him": {},
	"himself": {}, "his": {}, "how": {}, "i": {}, "if": {}, "in": {},
	"into": {}, "is": {}, "it": {}, "its": {}, "itself": {}, "just": {},
	"me": {}, "more": {}, "most": {}, "my": {}, "myself": {}, "no": {},
	"nor": {}, "not": {}, "now": {}, "of": {}, "off": {}, "on": {},
	"once": {}, "only": {}, "or": {}, "other": {}, "our": {}, "ours": {},
	"ourselves": {}, "out": {}, "over": {}, "own": {}, "same": {}, "she": {},
	"should": {}, "so": {}, "some": {}, "such": {}, "than": {}, "that": {},
	"the": {}, "their": {}, "theirs": {}, "them": {}, "themselves": {},
	"then": {}, "there": {}, "these": {}, "they": {}, "this": {}, "those": {},
	"through": {}, "to": {}, "too": {}, "under": {}, "until": {}, "up": {},
	"very": {}, "was": {}, "we": {}, "were": {}, "what": {}, "when": {},
	"where": {}, "which": {}, "while": {}, "who": {}, "whom": {}, "why": {},
	"will": {}, "with": {}, "would": {}, "you": {}, "your": {}, "yours": {},
	"yourself": {}, "yourselves": {},
}

// Vectorizer builds a sparse term-weighted vector space from a single
// profile document and projects opportunity text into it. Fit once per
// profile; out-of-vocabulary terms contribute zero weight.
type Vectorizer struct {
	vocab   map[string]int
	profile []float64
}

// NewVectorizer returns an unfitted vectorizer. Similarity is 0 until
// Fit succeeds with non-empty text.
func NewVectorizer() *Vectorizer {
	return &Vectorizer{}
}

// Fit builds the vocabulary and the normalized profile vector from the
// profile's aggregate text. Fitting with empty or stop-word-only text
// leaves the vectorizer unfitted.
func (v *Vectorizer) Fit(profileText string) {
	v.vocab = nil
	v.profile = nil

	counts := termCounts(profileText)
	if len(counts) == 0 {
		return
	}

	// Highest-frequency terms first; ties broken alphabetically so the
	// capped vocabulary is deterministic.
	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > maxVocabularyTerms {
		terms = terms[:maxVocabularyTerms]
	}

	v.vocab = make(map[string]int, len(terms))
	for i, term := range terms {
		v.vocab[term] = i
	}

	vec := make([]float64, len(terms))
	for term, idx := range v.vocab {
		vec[idx] = float64(counts[term])
	}
	normalize(vec)
	v.profile = vec
}

// Fitted reports whether a profile vector exists.
func (v *Vectorizer) Fitted() bool {
	return len(v.profile) > 0
}

// Similarity returns the cosine similarity between the fitted profile
// vector and the given text, in [0,1]. Unfitted vectorizers and empty
// projections score 0.
func (v *Vectorizer) Similarity(text string) float64 {
	if !v.Fitted() {
		return 0.0
	}

	vec := make([]float64, len(v.profile))
	found := false
	for term, count := range termCounts(text) {
		if idx, ok := v.vocab[term]; ok {
			vec[idx] = float64(count)
			found = true
		}
	}
	if !found {
		return 0.0
	}

	normalize(vec)
	dot := 0.0
	for i, w := range vec {
		dot += w * v.profile[i]
	}
	if dot < 0 {
		return 0.0
	}
	if dot > 1 {
		return 1.0
	}
	return dot
}

// termCounts tokenizes text into lowercase unigrams and bigrams with stop
// words removed, returning raw term frequencies.
func termCounts(text string) map[string]int {
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	filtered := tokens[:0]
	for _, tok := range tokens {
		if _, stop := stopWords[tok]; !stop {
			filtered = append(filtered, tok)
		}
	}

	counts := make(map[string]int, len(filtered)*2)
	for i, tok := range filtered {
		counts[tok]++
		if i+1 < len(filtered) {
			counts[tok+" "+filtered[i+1]]++
		}
	}
	return counts
}

func normalize(vec []float64) {
	sum := 0.0
	for _, w := range vec {
		sum += w * w
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= norm
	}
}
