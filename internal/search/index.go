package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/studenthub/campus-search/internal/storage"
)

// indexedDocument carries the searchable fields of a record. URL and the
// other attributes are deliberately not indexed.
type indexedDocument struct {
	Title      string
	Section    string
	Subject    string
	Semester   string
	SearchText string
}

// generation is one internally consistent store+index pair. It is immutable
// once built; ingestion builds a replacement and swaps the pointer.
type generation struct {
	records []*storage.ContentRecord
	idx     bleve.Index
}

func buildIndexMapping() mapping.IndexMapping {
	textField := bleve.NewTextFieldMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("Title", textField)
	docMapping.AddFieldMappingsAt("Section", textField)
	docMapping.AddFieldMappingsAt("Subject", textField)
	docMapping.AddFieldMappingsAt("Semester", textField)
	docMapping.AddFieldMappingsAt("SearchText", textField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}

// newGeneration builds an in-memory index over the records. Documents are
// keyed by position in the slice, so the generation can be built before the
// store assigns final ids.
func newGeneration(records []*storage.ContentRecord) (*generation, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}

	batch := idx.NewBatch()
	for pos, rec := range records {
		doc := indexedDocument{
			Title:      rec.Title,
			Section:    rec.Section,
			Subject:    rec.Subject,
			Semester:   rec.Semester,
			SearchText: rec.SearchText,
		}
		if err := batch.Index(strconv.Itoa(pos), doc); err != nil {
			idx.Close()
			return nil, fmt.Errorf("batch index %d: %w", pos, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		idx.Close()
		return nil, fmt.Errorf("commit batch: %w", err)
	}

	return &generation{records: records, idx: idx}, nil
}

func (g *generation) close() {
	if g.idx != nil {
		g.idx.Close()
	}
}

// matchSet returns the positions of records matching any of the terms in any
// indexed field. A single matching term qualifies a record.
func (g *generation) matchSet(terms []string) (map[int]struct{}, error) {
	queries := make([]query.Query, 0, len(terms))
	for _, term := range terms {
		queries = append(queries, bleve.NewMatchQuery(term))
	}
	q := bleve.NewDisjunctionQuery(queries...)

	size := len(g.records)
	if size == 0 {
		size = 1
	}
	req := bleve.NewSearchRequestOptions(q, size, 0, false)

	res, err := g.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	set := make(map[int]struct{}, len(res.Hits))
	for _, hit := range res.Hits {
		pos, err := strconv.Atoi(hit.ID)
		if err != nil {
			continue
		}
		set[pos] = struct{}{}
	}
	return set, nil
}

// reservedChars are stripped from raw queries before tokenizing; they carry
// syntax meaning in full-text engines and arrive in copy-pasted titles.
var reservedChars = strings.NewReplacer(`"`, "", "(", "", ")", "", "*", "")

// queryTerms sanitizes a raw query and splits it into terms. An empty result
// means the text filter is absent.
func queryTerms(raw string) []string {
	return strings.Fields(reservedChars.Replace(raw))
}
