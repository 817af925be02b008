package memories

import "math"

// Similarity scores a stored embedding against a query vector. The score is
// only used for descending ordering and, when Comparable reports true, for
// match-threshold filtering.
type Similarity interface {
	// Name identifies the strategy in logs.
	Name() string
	// Score rates candidate against query. encodedLen is the byte length of
	// the candidate's persisted encoding.
	Score(query, candidate []float32, encodedLen int) float64
	// Comparable reports whether scores can be checked against a match
	// threshold. Strategies whose scores are not normalized similarities
	// return false and thresholds are ignored.
	Comparable() bool
}

// LengthSimilarity reproduces the historical search behavior: the score is
// the byte length of the stored embedding, not a distance against the query.
// Results are therefore ordered by embedding size whenever embeddings differ
// in length. Kept as the default so existing callers observe the exact
// semantics they were built against; use CosineSimilarity for real ranking.
type LengthSimilarity struct{}

func (LengthSimilarity) Name() string { return "length" }

func (LengthSimilarity) Score(_, _ []float32, encodedLen int) float64 {
	return float64(encodedLen)
}

// Comparable is false: byte lengths are not similarities, so a match
// threshold like 0.95 must not filter anything. This makes the uniqueness
// pre-check degrade to "any prior embedding in scope", matching the source
// system.
func (LengthSimilarity) Comparable() bool { return false }

// CosineSimilarity is the corrected strategy: true cosine similarity between
// the query and each stored vector.
type CosineSimilarity struct{}

func (CosineSimilarity) Name() string { return "cosine" }

func (CosineSimilarity) Score(query, candidate []float32, _ int) float64 {
	return cosine(query, candidate)
}

func (CosineSimilarity) Comparable() bool { return true }

// cosine returns the cosine similarity of two vectors, or 0 when the vectors
// differ in length, are empty, or have zero magnitude.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
