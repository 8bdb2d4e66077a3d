package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	// EmbeddingModel is the Gemini model used to embed documents and queries.
	EmbeddingModel = "text-embedding-004"

	defaultTopK     = 3
	defaultMinScore = 0.3
)

// embedder is the narrow slice of the Gemini SDK the retriever uses.
// Tests substitute a mock implementation.
type embedder interface {
	embed(ctx context.Context, text string) ([]float32, error)
}

type indexedDoc struct {
	doc Document
	vec []float32
}

// VectorRetriever ranks documents by cosine similarity between Gemini
// embeddings of the query and of each seeded document. The index is built
// once at construction; queries embed only the query text.
type VectorRetriever struct {
	embedder embedder
	index    []indexedDoc
	topK     int
	minScore float64
}

// NewVectorRetriever embeds docs and builds the in-memory index. A failure
// here (bad key, unreachable backend) is the capability signal NewRetriever
// uses to fall back.
func NewVectorRetriever(ctx context.Context, apiKey string, docs []Document) (*VectorRetriever, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("retrieval: creating embedding client: %w", err)
	}
	return newVectorRetriever(ctx, &geminiEmbedder{model: client.EmbeddingModel(EmbeddingModel)}, docs)
}

func newVectorRetriever(ctx context.Context, emb embedder, docs []Document) (*VectorRetriever, error) {
	index := make([]indexedDoc, 0, len(docs))
	for _, doc := range docs {
		vec, err := emb.embed(ctx, doc.Excerpt)
		if err != nil {
			return nil, fmt.Errorf("retrieval: embedding seed document %q: %w", doc.Source, err)
		}
		index = append(index, indexedDoc{doc: doc, vec: vec})
	}
	return &VectorRetriever{
		embedder: emb,
		index:    index,
		topK:     defaultTopK,
		minScore: defaultMinScore,
	}, nil
}

// Query embeds the request and returns the top-scoring documents above the
// similarity floor. A failed query embedding degrades to empty results
// rather than an error.
func (r *VectorRetriever) Query(ctx context.Context, text string) ([]Document, error) {
	qvec, err := r.embedder.embed(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, nil
	}

	type scored struct {
		doc   Document
		score float64
	}
	ranked := make([]scored, 0, len(r.index))
	for _, entry := range r.index {
		s := cosine(qvec, entry.vec)
		if s >= r.minScore {
			ranked = append(ranked, scored{doc: entry.doc, score: s})
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

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

type geminiEmbedder struct {
	model *genai.EmbeddingModel
}

func (g *geminiEmbedder) embed(ctx context.Context, text string) ([]float32, error) {
	res, err := g.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}
	return res.Embedding.Values, nil
}
