package api

import (
	"github.com/starford/linkmark/internal/index"
	"github.com/starford/linkmark/internal/linkservice"
	"github.com/starford/linkmark/internal/models"
)

// LinkRecord is one extracted link (aliased from the domain layer).
type LinkRecord = models.LinkRecord

// DocumentDetail is the per-document response type (aliased from the domain layer).
type DocumentDetail = linkservice.DocumentDetail

// LinkListResponse wraps paginated link listings.
type LinkListResponse struct {
	Links []LinkRecord `json:"links" validate:"required"`
	Total int          `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// StatsResponse is the index summary.
type StatsResponse = index.Stats

// BacklinksResponse lists the documents linking to a URL.
type BacklinksResponse struct {
	URL       string   `json:"url" example:"https://example.com" validate:"required"`
	Documents []string `json:"documents" validate:"required"`
}
