package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/f1-penalty-rag/internal/core/domain"
	"github.com/kirillkom/f1-penalty-rag/internal/core/ports"
)

const (
	specificTopN    = 5
	historicalTopN  = 10
	historicalLimit = 4
	regulatoryTopN  = 3
)

// RetrievalComposer builds the three-tier context for one query.
type RetrievalComposer struct {
	vectors     ports.VectorStore
	collections Collections
}

func NewRetrievalComposer(vectors ports.VectorStore, collections Collections) *RetrievalComposer {
	return &RetrievalComposer{vectors: vectors, collections: collections}
}

// Compose fails with domain.ErrCollectionUnavailable when the decisions
// collection is missing or empty.
func (c *RetrievalComposer) Compose(ctx context.Context, meta domain.DocumentMetadata, embedding []float32) (domain.RetrievalContext, error) {
	var out domain.RetrievalContext

	count, err := c.vectors.Count(ctx, c.collections.Decisions)
	if err != nil {
		return out, ensureKind(domain.ErrCollectionUnavailable, "count decisions", err)
	}
	if count == 0 {
		return out, domain.WrapError(domain.ErrCollectionUnavailable, "compose context",
			fmt.Errorf("collection %q is empty", c.collections.Decisions))
	}

	specificHits, err := c.query(ctx, c.collections.Decisions, embedding, specificTopN, SpecificFilter(meta))
	if err != nil {
		return out, err
	}
	out.Specific = documents(specificHits)

	historicalHits, err := c.query(ctx, c.collections.Decisions, embedding, historicalTopN, nil)
	if err != nil {
		return out, err
	}
	out.Historical = dedupePrecedents(historicalHits, out.Specific, historicalLimit)

	regulatoryHits, err := c.query(ctx, c.collections.Regulations, embedding, regulatoryTopN, RegulatoryFilter(meta))
	if err != nil {
		return out, err
	}
	out.Regulatory = documents(regulatoryHits)

	return out, nil
}

func (c *RetrievalComposer) query(ctx context.Context, collection string, embedding []float32, topN int, filter domain.MetadataFilter) ([]domain.CollectionHit, error) {
	hits, err := c.vectors.Query(ctx, collection, embedding, topN, filter)
	if err != nil {
		return nil, ensureKind(domain.ErrCollectionUnavailable, "query "+collection, err)
	}
	return hits, nil
}

// SpecificFilter matches every present field among location, year and
// car number. It is nil when none is present.
func SpecificFilter(meta domain.DocumentMetadata) domain.MetadataFilter {
	filter := domain.MetadataFilter{}
	if meta.Location != "" {
		filter["location"] = meta.Location
	}
	if meta.Year != "" {
		filter["year"] = meta.Year
	}
	if meta.CarNum != "" {
		filter["car_num"] = meta.CarNum
	}
	if len(filter) == 0 {
		return nil
	}
	return filter
}

// RegulatoryFilter restricts regulations to the query year when known.
func RegulatoryFilter(meta domain.DocumentMetadata) domain.MetadataFilter {
	if meta.Year == "" {
		return nil
	}
	return domain.MetadataFilter{"year": meta.Year}
}

func documents(hits []domain.CollectionHit) []string {
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.Document)
	}
	return out
}

// dedupePrecedents keeps ranked hits whose text is not in specific and whose
// chunk id (or text when the id is missing) was not seen yet.
func dedupePrecedents(hits []domain.CollectionHit, specific []string, limit int) []string {
	inSpecific := make(map[string]struct{}, len(specific))
	for _, s := range specific {
		inSpecific[s] = struct{}{}
	}

	out := make([]string, 0, limit)
	seen := make(map[string]struct{}, len(hits))
	for _, h := range hits {
		if len(out) == limit {
			break
		}
		if _, ok := inSpecific[h.Document]; ok {
			continue
		}
		marker := h.ID
		if marker == "" {
			marker = h.Document
		}
		if _, ok := seen[marker]; ok {
			continue
		}
		seen[marker] = struct{}{}
		out = append(out, h.Document)
	}
	return out
}
