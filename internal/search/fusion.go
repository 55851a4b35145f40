package search

import (
	"sort"

	"github.com/recallhq/recall/pkg/types"
)

// scoredID is one candidate after fusion, before content fetch
type scoredID struct {
	id    string
	score float64
}

// fuse merges the lexical and semantic rankings into one ordered candidate
// list using the configured method.
func fuse(lexical, semantic ranked, opts types.SearchOptions) ([]scoredID, error) {
	switch opts.Fusion {
	case types.FusionRRF:
		return rrfFuse([]ranked{lexical, semantic}, opts.RRFK), nil
	case types.FusionWeighted:
		return weightedFuse(lexical, semantic, opts.LexicalWeight, opts.SemanticWeight), nil
	default:
		return nil, types.ErrUnknownFusion
	}
}

// rrfFuse implements Reciprocal Rank Fusion:
//
//	score(id) = sum over lists of 1 / (k + rank_in_list + 1)
//
// with zero-based ranks. Only positions matter, so the two stages' unlike
// score scales cannot skew the merge.
func rrfFuse(lists []ranked, k int) []scoredID {
	scores := make(map[string]float64)
	for _, list := range lists {
		for rank, id := range list.ids {
			scores[id] += 1.0 / float64(k+rank+1)
		}
	}
	return sortScored(scores)
}

// weightedFuse computes a weighted linear sum of the stages' own scores.
// Unlike RRF this is scale-sensitive: the lexical term ratio and cosine
// similarity both happen to live in [0,1], which is what makes it usable.
func weightedFuse(lexical, semantic ranked, lexWeight, semWeight float64) []scoredID {
	scores := make(map[string]float64)
	for id, s := range lexical.scores {
		scores[id] += lexWeight * s
	}
	for id, s := range semantic.scores {
		scores[id] += semWeight * s
	}
	return sortScored(scores)
}

// sortScored orders candidates by score descending, ID ascending on ties
// so fusion output is deterministic.
func sortScored(scores map[string]float64) []scoredID {
	out := make([]scoredID, 0, len(scores))
	for id, score := range scores {
		out = append(out, scoredID{id: id, score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].id < out[j].id
	})
	return out
}
