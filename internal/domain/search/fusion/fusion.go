// Package fusion holds the storage-independent ranking contract:
// candidate ranking, cosine similarity and Reciprocal Rank Fusion.
package fusion

import (
	"math"
	"slices"
	"strings"
)

const (
	// K is the RRF smoothing constant. It is fixed.
	K = 60
	// PoolSize caps each candidate pool before fusion.
	PoolSize = 100
)

// Hit is a candidate identified by document key with a method-specific score.
type Hit struct {
	Key   string
	Score float64
}

// Fused is a fusion output row.
type Fused struct {
	Key         string
	Score       float64
	LexicalRank int // 1-based, 0 if absent
	VectorRank  int // 1-based, 0 if absent
}

// Rank sorts hits in place by score descending, key ascending, and returns them.
// The position of a hit after Rank is its 1-based rank minus one.
func Rank(hits []Hit) []Hit {
	slices.SortFunc(hits, compareHits)
	return hits
}

// Top ranks hits and truncates to n.
func Top(hits []Hit, n int) []Hit {
	Rank(hits)
	if n >= 0 && len(hits) > n {
		hits = hits[:n]
	}
	return hits
}

func compareHits(a, b Hit) int {
	if a.Score != b.Score {
		if a.Score > b.Score {
			return -1
		}
		return 1
	}
	return strings.Compare(a.Key, b.Key)
}

// Contribution is the RRF term for a 1-based rank.
func Contribution(rank int) float64 {
	return 1.0 / float64(K+rank)
}

// Fuse combines two pools with Reciprocal Rank Fusion. Each pool is ranked
// and capped at PoolSize first. A document scores the sum of 1/(K+rank) over
// the pools it appears in; ties are broken by key. At most limit rows are returned.
func Fuse(lexical, vector []Hit, limit int) []Fused {
	lexical = Top(slices.Clone(lexical), PoolSize)
	vector = Top(slices.Clone(vector), PoolSize)

	merged := make(map[string]*Fused, len(lexical)+len(vector))
	get := func(key string) *Fused {
		if f, ok := merged[key]; ok {
			return f
		}
		f := &Fused{Key: key}
		merged[key] = f
		return f
	}

	for i, h := range lexical {
		f := get(h.Key)
		f.LexicalRank = i + 1
	}
	for i, h := range vector {
		f := get(h.Key)
		f.VectorRank = i + 1
	}

	out := make([]Fused, 0, len(merged))
	for _, f := range merged {
		// Summed in a fixed order so equal rank pairs give bit-identical scores.
		var score float64
		if f.LexicalRank > 0 {
			score += Contribution(f.LexicalRank)
		}
		if f.VectorRank > 0 {
			score += Contribution(f.VectorRank)
		}
		f.Score = score
		out = append(out, *f)
	}

	slices.SortFunc(out, func(a, b Fused) int {
		return compareHits(Hit{a.Key, a.Score}, Hit{b.Key, b.Score})
	})

	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Cosine returns the cosine similarity of a and b, 0 when either is empty,
// zero-length or the dimensions differ.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
