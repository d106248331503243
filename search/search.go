// Package search maintains an in-memory full-text index over film entries.
package search

import (
	"context"
	"strings"

	bleve "github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Search is the Bleve-based search index.
type Search struct {
	index bleve.Index
}

// Document is the document we store in Bleve per film.
type Document struct {
	// Film ID
	ID string `json:"id"`
	// Owning user ID, every query is scoped to one owner
	OwnerID string `json:"owner_id"`
	Title   string `json:"title"`
	// TitleExact is helper field to make exact title match more accurate
	TitleExact string   `json:"title_exact"`
	Tagline    string   `json:"tagline"`
	Director   string   `json:"director"`
	Genre      string   `json:"genre"`
	Actors     []string `json:"actors"`
	Year       int      `json:"year"`
}

// New creates a new in-memory index.
func New() (*Search, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, err
	}
	return &Search{
		index: idx,
	}, nil
}

// buildIndexMapping builds the Bleve index field mapping configuration.
func buildIndexMapping() mapping.IndexMapping {
	m := bleve.NewIndexMapping()

	doc := bleve.NewDocumentMapping()

	// text mapping for title, tagline, director, actors
	text := bleve.NewTextFieldMapping()
	text.Analyzer = "en"
	// Not storing the full text, only indexing. We only care about getting
	// a match and then retrieving IDs.
	text.Store = false
	text.Index = true

	// keyword mapping for exact matches like IDs
	keyword := bleve.NewTextFieldMapping()
	keyword.Analyzer = "keyword"
	keyword.Store = true
	keyword.Index = true

	doc.AddFieldMappingsAt("id", keyword)
	doc.AddFieldMappingsAt("owner_id", keyword)
	doc.AddFieldMappingsAt("title", text)
	doc.AddFieldMappingsAt("title_exact", keyword)
	doc.AddFieldMappingsAt("tagline", text)
	doc.AddFieldMappingsAt("director", text)
	doc.AddFieldMappingsAt("genre", text)
	doc.AddFieldMappingsAt("actors", text)

	m.DefaultMapping = doc

	return m
}

// Index indexes or updates a document.
func (b *Search) Index(ctx context.Context, doc Document) error {
	doc.TitleExact = strings.ToLower(doc.Title)
	return b.index.Index(doc.ID, doc)
}

// Delete removes a document from the index.
func (b *Search) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// Search runs a fuzzy search across a single owner's films.
//
// - ownerID scopes the result set, results never cross owners.
// - searchTerm is the raw user input.
// - size is maximum number of results to return.
func (b *Search) Search(ctx context.Context, ownerID, searchTerm string, size int) ([]string, error) {
	searchTerm = strings.ToLower(strings.TrimSpace(searchTerm))
	if searchTerm == "" || ownerID == "" {
		return nil, nil
	}

	// Weights for boosting certain query types and fields.
	const (
		boostTitleExact       = 50.0 // strongest: exact match on title_exact field
		boostTitlePhrase      = 12.0 // very strong: exact phrase in title
		boostTitlePrefix      = 6.0  // very strong: prefix on whole query against title
		boostTitleTokenPrefix = 5.0  // strong: prefix on first token against title
		boostTitleField       = 3.0  // strong: fuzzy/prefix on title tokens
		boostOtherFields      = 1.0  // default for other fields
	)

	boolQuery := bleve.NewBooleanQuery()

	// Restrict results to the owner's films.
	ownerQuery := bleve.NewTermQuery(ownerID)
	ownerQuery.SetField("owner_id")
	boolQuery.AddMust(ownerQuery)

	// Exact-match on title_exact with very large boost, bubbles exact
	// title matches to the top.
	termExact := bleve.NewTermQuery(searchTerm)
	termExact.SetField("title_exact")
	termExact.SetBoost(boostTitleExact)
	boolQuery.AddShould(termExact)

	// Phrase match on title
	matchPhrase := bleve.NewMatchPhraseQuery(searchTerm)
	matchPhrase.SetField("title")
	matchPhrase.SetBoost(boostTitlePhrase)
	boolQuery.AddShould(matchPhrase)

	// Prefix on the full query against title, helps when users type the
	// beginning of a title: "star wa" -> matches "Star Wars".
	prefixFull := bleve.NewPrefixQuery(searchTerm)
	prefixFull.SetField("title")
	prefixFull.SetBoost(boostTitlePrefix)
	boolQuery.AddShould(prefixFull)

	tokens := strings.Fields(searchTerm)
	if len(tokens) > 0 {
		prefixFirst := bleve.NewPrefixQuery(tokens[0])
		prefixFirst.SetField("title")
		prefixFirst.SetBoost(boostTitleTokenPrefix)
		boolQuery.AddShould(prefixFirst)
	}

	// Token-wise fuzzy + prefix queries across fields
	for _, tok := range tokens {
		// Fuzziness heuristic
		fuzz := 1
		if len(tok) >= 6 {
			fuzz = 2
		}

		for _, f := range []string{"title", "tagline", "director", "genre", "actors"} {
			fq := bleve.NewFuzzyQuery(tok)
			fq.SetField(f)
			fq.SetFuzziness(fuzz)
			if f == "title" {
				fq.SetBoost(boostTitleField)
			} else {
				fq.SetBoost(boostOtherFields)
			}
			boolQuery.AddShould(fq)

			pq := bleve.NewPrefixQuery(tok)
			pq.SetField(f)
			if f == "title" {
				pq.SetBoost(boostTitleField)
			} else {
				pq.SetBoost(boostOtherFields)
			}
			boolQuery.AddShould(pq)
		}
	}

	// Owner restriction is a must, at least one should-clause has to match too.
	boolQuery.SetMinShould(1)

	req := bleve.NewSearchRequestOptions(boolQuery, size, 0, false)
	req.Fields = []string{"id", "title"}
	req.SortBy([]string{"-_score"})

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}

	var foundIDs []string
	for _, h := range res.Hits {
		foundIDs = append(foundIDs, h.ID)
	}
	return foundIDs, nil
}

// Close closes the underlying index.
func (b *Search) Close() error {
	return b.index.Close()
}
