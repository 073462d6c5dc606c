package services

import (
	"sort"

	"github.com/custodia-labs/sercha-engine/internal/core/domain"
)

// DefaultRRFConstant dampens the gap between adjacent ranks so near-top
// results from either modality compete on comparable footing.
const DefaultRRFConstant = 60

// DefaultCandidateMultiplier scales the candidate universe each
// sub-ranker produces relative to the requested top-k. Requesting exactly
// top-k from each sub-ranker starves the fusion of candidates that rank
// moderately in both lists. Workload-dependent; tunable via config.
const DefaultCandidateMultiplier = 2

// fuseReciprocalRank merges two independently produced 1-based rank lists
// with Reciprocal Rank Fusion:
//
//	score(e) = 1/(k + rank_vector(e)) + 1/(k + rank_text(e))
//
// where an entity absent from a list contributes zero for that list - it
// keeps its single fixed term and is not penalised further. Output is
// sorted by score descending, ties broken by entity id ascending, so the
// fusion is deterministic and order-stable for fixed inputs.
func fuseReciprocalRank(vectorRanked, textRanked []domain.RankedEntity, k int) []domain.FusedEntity {
	if k <= 0 {
		k = DefaultRRFConstant
	}

	scores := make(map[string]float64, len(vectorRanked)+len(textRanked))
	for _, e := range vectorRanked {
		scores[e.EntityID] += 1.0 / float64(k+e.Rank)
	}
	for _, e := range textRanked {
		scores[e.EntityID] += 1.0 / float64(k+e.Rank)
	}

	fused := make([]domain.FusedEntity, 0, len(scores))
	for id, score := range scores {
		fused = append(fused, domain.FusedEntity{EntityID: id, Score: score})
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return fused[i].EntityID < fused[j].EntityID
	})

	return fused
}

// rankVectorHits converts vector hits into a 1-based rank list, ordered
// by ascending distance with ties broken by entity id for stability.
func rankVectorHits(hits []vectorHit) []domain.RankedEntity {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].distance != hits[j].distance {
			return hits[i].distance < hits[j].distance
		}
		return hits[i].entityID < hits[j].entityID
	})

	ranked := make([]domain.RankedEntity, len(hits))
	for i, h := range hits {
		ranked[i] = domain.RankedEntity{EntityID: h.entityID, Rank: i + 1}
	}
	return ranked
}

// rankTextHits converts lexical hits into a 1-based rank list, ordered by
// descending relevance with ties broken by entity id.
func rankTextHits(hits []textHit) []domain.RankedEntity {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].entityID < hits[j].entityID
	})

	ranked := make([]domain.RankedEntity, len(hits))
	for i, h := range hits {
		ranked[i] = domain.RankedEntity{EntityID: h.entityID, Rank: i + 1}
	}
	return ranked
}

// vectorHit and textHit are the services' internal views of sub-ranker
// output, decoupled from the port types.
type vectorHit struct {
	entityID string
	distance float64
}

type textHit struct {
	entityID string
	score    float64
}
