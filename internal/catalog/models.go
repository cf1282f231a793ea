package catalog

import "github.com/lehigh-university-libraries/lccn-resolver/internal/models"

// SearchResult is one entry of the search endpoint's results array
type SearchResult struct {
	Title      string            `json:"title"`
	NumberLCCN models.StringList `json:"number_lccn"`
	NumberOCLC models.StringList `json:"number_oclc"`
}

// SearchResponse is the search endpoint payload
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// ItemResponse is the item endpoint payload
type ItemResponse struct {
	Item struct {
		Title string `json:"title"`
	} `json:"item"`
}
