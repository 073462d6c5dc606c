package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-engine/internal/core/domain"
	"github.com/custodia-labs/sercha-engine/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-engine/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-engine/internal/logger"
)

// Ensure HybridSearchService implements the interface.
var _ driving.SearchService = (*HybridSearchService)(nil)

// DefaultTopK is the result cap applied when options leave TopK unset.
const DefaultTopK = 10

// DefaultRankerAttempts bounds retry of a single sub-ranker call on
// transient storage failure.
const DefaultRankerAttempts = 3

// SearchConfig tunes the hybrid search service.
type SearchConfig struct {
	// RRFConstant is the k constant of reciprocal rank fusion.
	// Zero means DefaultRRFConstant.
	RRFConstant int

	// CandidateMultiplier scales sub-ranker candidate counts relative to
	// the requested top-k. Zero means DefaultCandidateMultiplier.
	CandidateMultiplier int

	// RetryAttempts bounds retries of one sub-ranker call. Zero means
	// DefaultRankerAttempts.
	RetryAttempts int

	// RetryDelay is the base backoff between attempts. Zero means the
	// built-in default.
	RetryDelay time.Duration
}

// HybridSearchService fuses vector and lexical rankings over one search
// space. The two sub-rankers are independent reads and run concurrently;
// fusion and aggregation are pure in-memory merges with no I/O.
type HybridSearchService struct {
	docStore    driven.DocumentStore
	searchIndex driven.SearchEngine
	vectorIndex driven.VectorIndex
	embedder    driven.EmbeddingService
	cfg         SearchConfig
}

// NewHybridSearchService creates a new hybrid search service.
// vectorIndex and embedder may be nil, in which case only explicitly
// requested text-only searches succeed.
func NewHybridSearchService(
	docStore driven.DocumentStore,
	searchIndex driven.SearchEngine,
	vectorIndex driven.VectorIndex,
	embedder driven.EmbeddingService,
	cfg SearchConfig,
) *HybridSearchService {
	return &HybridSearchService{
		docStore:    docStore,
		searchIndex: searchIndex,
		vectorIndex: vectorIndex,
		embedder:    embedder,
		cfg:         cfg,
	}
}

// Search performs hybrid search and returns at most opts.TopK distinct
// documents, best first.
func (s *HybridSearchService) Search(
	ctx context.Context, spaceID, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	logger.Section("Search Execution")
	logger.Debug("Space: %s, Query: %q", spaceID, query)

	query = strings.TrimSpace(query)
	if spaceID == "" {
		return nil, fmt.Errorf("%w: space id is required", domain.ErrInvalidInput)
	}
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	for _, t := range opts.DocumentTypes {
		if !t.Valid() {
			// Fail closed rather than silently ignoring the filter.
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownDocumentType, t)
		}
	}
	if err := ctx.Err(); err != nil {
		// An expired request fails whole; partial results are never
		// returned.
		return nil, err
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	multiplier := opts.CandidateMultiplier
	if multiplier <= 0 {
		multiplier = s.cfg.CandidateMultiplier
	}
	if multiplier <= 0 {
		multiplier = DefaultCandidateMultiplier
	}

	// Each sub-ranker produces more candidates than the final top-k so
	// the fusion has overlap to work with.
	candidateLimit := topK * multiplier

	kind := domain.KindChunk
	if opts.Granularity == domain.GranularityDocuments {
		kind = domain.KindDocument
	}

	filter := domain.RankFilter{
		SpaceID:       spaceID,
		DocumentTypes: opts.DocumentTypes,
		UpdatedAfter:  opts.UpdatedAfter,
		UpdatedBefore: opts.UpdatedBefore,
	}

	logger.Debug("Granularity: %s, top_k: %d, candidate limit: %d", kind, topK, candidateLimit)

	var vectorRanked, textRanked []domain.RankedEntity
	var err error

	if opts.TextOnly {
		logger.Info("Text-only mode requested")
		textRanked, err = s.textSearch(ctx, kind, query, candidateLimit, filter)
		if err != nil {
			return nil, err
		}
	} else {
		vectorRanked, textRanked, err = s.hybridRank(ctx, kind, query, candidateLimit, filter)
		if err != nil {
			return nil, err
		}
	}

	fused := fuseReciprocalRank(vectorRanked, textRanked, s.cfg.RRFConstant)
	logger.Debug("Fused candidates: %d", len(fused))

	var docRanking []domain.FusedEntity
	if kind == domain.KindChunk {
		docRanking, err = aggregateChunks(ctx, s.docStore, spaceID, fused, topK)
		if err != nil {
			return nil, fmt.Errorf("aggregate: %w", err)
		}
	} else {
		docRanking = fused
		if len(docRanking) > topK {
			docRanking = docRanking[:topK]
		}
	}

	results, err := hydrateDocuments(ctx, s.docStore, spaceID, docRanking)
	if err != nil {
		return nil, fmt.Errorf("hydrate results: %w", err)
	}

	logger.Info("Final results: %d", len(results))
	return results, nil
}

// hybridRank embeds the query once and runs the vector and lexical
// rankers concurrently. Either sub-ranker failing fails the request:
// silently dropping one modality would break the fused ranking's
// assumptions, and the explicit fallback is TextOnly mode.
func (s *HybridSearchService) hybridRank(
	ctx context.Context,
	kind domain.EntityKind,
	query string,
	limit int,
	filter domain.RankFilter,
) (vectorRanked, textRanked []domain.RankedEntity, err error) {
	if s.embedder == nil {
		return nil, nil, domain.ErrEmbeddingUnavailable
	}
	if s.vectorIndex == nil {
		return nil, nil, domain.ErrVectorIndexUnavailable
	}

	// One embedding call per request; both granularities reuse it.
	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	logger.Debug("Query embedding: %d dimensions", len(queryVec))

	var vectorErr, textErr error

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		vectorRanked, vectorErr = s.vectorSearch(ctx, kind, queryVec, limit, filter)
	}()

	go func() {
		defer wg.Done()
		textRanked, textErr = s.textSearch(ctx, kind, query, limit, filter)
	}()

	wg.Wait()

	if vectorErr != nil {
		return nil, nil, fmt.Errorf("vector search: %w", vectorErr)
	}
	if textErr != nil {
		return nil, nil, fmt.Errorf("keyword search: %w", textErr)
	}

	logger.Debug("Sub-rankers: %d vector, %d keyword candidates",
		len(vectorRanked), len(textRanked))

	return vectorRanked, textRanked, nil
}

// vectorSearch runs the semantic sub-ranker and assigns 1-based ranks.
func (s *HybridSearchService) vectorSearch(
	ctx context.Context,
	kind domain.EntityKind,
	queryVec []float32,
	limit int,
	filter domain.RankFilter,
) ([]domain.RankedEntity, error) {
	return s.rankWithRetry(ctx, func() ([]domain.RankedEntity, error) {
		hits, err := s.vectorIndex.Search(ctx, kind, queryVec, limit, filter)
		if err != nil {
			return nil, err
		}

		internal := make([]vectorHit, len(hits))
		for i, h := range hits {
			internal[i] = vectorHit{entityID: h.EntityID, distance: h.Distance}
		}
		return rankVectorHits(internal), nil
	})
}

// textSearch runs the lexical sub-ranker and assigns 1-based ranks.
func (s *HybridSearchService) textSearch(
	ctx context.Context,
	kind domain.EntityKind,
	query string,
	limit int,
	filter domain.RankFilter,
) ([]domain.RankedEntity, error) {
	if s.searchIndex == nil {
		return nil, domain.ErrSearchUnavailable
	}

	return s.rankWithRetry(ctx, func() ([]domain.RankedEntity, error) {
		hits, err := s.searchIndex.Search(ctx, kind, query, limit, filter)
		if err != nil {
			return nil, err
		}

		internal := make([]textHit, len(hits))
		for i, h := range hits {
			internal[i] = textHit{entityID: h.EntityID, score: h.Score}
		}
		return rankTextHits(internal), nil
	})
}

// rankWithRetry runs one sub-ranker call, retrying bounded times on
// transient storage failure only. Rankers are pure reads, so a retried
// call is safe to repeat; any other error fails the request immediately.
func (s *HybridSearchService) rankWithRetry(
	ctx context.Context, rank func() ([]domain.RankedEntity, error),
) ([]domain.RankedEntity, error) {
	attempts := s.cfg.RetryAttempts
	if attempts <= 0 {
		attempts = DefaultRankerAttempts
	}
	delay := s.cfg.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}

	var ranked []domain.RankedEntity
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		ranked, err = rank()
		if err == nil {
			return ranked, nil
		}
		if !errors.Is(err, domain.ErrStorage) {
			return nil, err
		}
		if attempt < attempts {
			logger.Warn("Ranker attempt %d/%d failed: %v", attempt, attempts, err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * delay):
			}
		}
	}
	return nil, err
}
