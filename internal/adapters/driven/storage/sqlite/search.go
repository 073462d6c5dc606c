package sqlite

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/custodia-labs/sercha-engine/internal/core/domain"
	"github.com/custodia-labs/sercha-engine/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-engine/internal/summarizer"
)

// searchEngine implements driven.SearchEngine on top of the FTS5 mirror
// tables. bm25 assigns smaller values to better matches, so results are
// ordered ascending and the score exposed to callers is its negation.
type searchEngine struct {
	store *Store
}

var _ driven.SearchEngine = (*searchEngine)(nil)

// queryTokenRe extracts word tokens from the raw query.
var queryTokenRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

// Search ranks chunks or documents lexically within a space. A query
// that reduces to no usable tokens yields an empty result.
func (s *searchEngine) Search(
	ctx context.Context, kind domain.EntityKind, query string, limit int, filter domain.RankFilter,
) ([]driven.SearchHit, error) {
	match := buildMatchQuery(query)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		return nil, nil
	}

	var sqlQuery string
	switch kind {
	case domain.KindChunk:
		sqlQuery = `
			SELECT c.id, bm25(chunks_fts) AS rank
			FROM chunks_fts
			JOIN chunks c ON c.id = chunks_fts.chunk_id
			JOIN documents d ON d.id = c.document_id
			WHERE chunks_fts MATCH ? AND d.space_id = ?`
	case domain.KindDocument:
		sqlQuery = `
			SELECT d.id, bm25(documents_fts) AS rank
			FROM documents_fts
			JOIN documents d ON d.id = documents_fts.document_id
			WHERE documents_fts MATCH ? AND d.space_id = ?`
	default:
		return nil, fmt.Errorf("%w: unknown entity kind %q", domain.ErrInvalidInput, kind)
	}

	args := []any{match, filter.SpaceID}

	if len(filter.DocumentTypes) > 0 {
		placeholders := make([]string, len(filter.DocumentTypes))
		for i, dt := range filter.DocumentTypes {
			placeholders[i] = "?"
			args = append(args, string(dt))
		}
		sqlQuery += " AND d.document_type IN (" + strings.Join(placeholders, ", ") + ")"
	}
	if !filter.UpdatedAfter.IsZero() {
		sqlQuery += " AND d.updated_at >= ?"
		args = append(args, filter.UpdatedAfter)
	}
	if !filter.UpdatedBefore.IsZero() {
		sqlQuery += " AND d.updated_at <= ?"
		args = append(args, filter.UpdatedBefore)
	}

	// id tie-break keeps equal-score orderings stable across runs.
	sqlQuery += " ORDER BY rank ASC, 1 ASC LIMIT ?"
	args = append(args, limit)

	rows, err := s.store.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, storageErr("querying full-text index", err)
	}
	defer rows.Close()

	var hits []driven.SearchHit //nolint:prealloc // size unknown from query
	for rows.Next() {
		var hit driven.SearchHit
		var rank float64
		if err := rows.Scan(&hit.EntityID, &rank); err != nil {
			return nil, storageErr("scanning search hit", err)
		}
		hit.Score = -rank
		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating search hits", err)
	}

	return hits, nil
}

// buildMatchQuery turns free text into an FTS5 MATCH expression. Tokens
// are lowercased, stopwords dropped, the rest quoted and OR-joined so
// any matching term qualifies a candidate and bm25 does the ranking.
func buildMatchQuery(query string) string {
	stop := summarizer.Stopwords()
	tokens := queryTokenRe.FindAllString(strings.ToLower(query), -1)

	var quoted []string
	for _, tok := range tokens {
		if _, ok := stop[tok]; ok {
			continue
		}
		quoted = append(quoted, `"`+tok+`"`)
	}
	return strings.Join(quoted, " OR ")
}
