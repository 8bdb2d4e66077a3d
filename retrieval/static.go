package retrieval

import (
	"context"
	"sort"
	"strings"
	"unicode"
)

// StaticRetriever scores documents by keyword overlap with the query. It is
// the no-dependency fallback when no embedding backend is available.
type StaticRetriever struct {
	docs []Document
	topK int
}

// NewStaticRetriever builds a keyword retriever over docs.
func NewStaticRetriever(docs []Document) *StaticRetriever {
	return &StaticRetriever{docs: docs, topK: defaultTopK}
}

// Query returns the documents sharing the most terms with text, best first.
// Documents with no overlap are omitted; no overlap at all yields empty
// results.
func (r *StaticRetriever) Query(ctx context.Context, text string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	terms := tokenize(text)
	if len(terms) == 0 {
		return nil, nil
	}

	type scored struct {
		doc   Document
		score int
	}
	var ranked []scored
	for _, doc := range r.docs {
		docTerms := tokenize(doc.Excerpt + " " + doc.Source)
		score := 0
		for term := range terms {
			if docTerms[term] {
				score++
			}
		}
		if score > 0 {
			ranked = append(ranked, scored{doc: doc, score: score})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	n := len(ranked)
	if n > r.topK {
		n = r.topK
	}
	out := make([]Document, 0, n)
	for _, s := range ranked[:n] {
		out = append(out, s.doc)
	}
	return out, nil
}

// stopwords excluded from keyword matching; overlap on these says nothing
// about relevance.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "about": true,
	"for": true, "in": true, "is": true, "it": true, "my": true,
	"of": true, "on": true, "or": true, "the": true, "to": true,
	"with": true, "write": true, "email": true, "me": true,
}

func tokenize(text string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	terms := make(map[string]bool, len(fields))
	for _, f := range fields {
		if len(f) < 2 || stopwords[f] {
			continue
		}
		terms[f] = true
	}
	return terms
}
