package models

// Chamber identifies the originating chamber of a bill.
type Chamber string

const (
	ChamberHouse  Chamber = "House"
	ChamberSenate Chamber = "Senate"
)

// BillRecord is the canonical representation of one piece of legislation.
// BillID is the sole identity: two records with the same BillID are the same
// bill regardless of field differences. All other fields are optional because
// upstream data is inconsistently populated.
type BillRecord struct {
	BillID         string   `json:"bill_id"`
	Title          string   `json:"title"`
	Summary        string   `json:"summary"`
	Sponsor        string   `json:"sponsor"`
	Chamber        Chamber  `json:"chamber"`
	IntroducedDate string   `json:"introduced_date"`
	LatestAction   string   `json:"latest_action"`
	Status         string   `json:"status"`
	Topics         []string `json:"topics"`
	SourceURL      string   `json:"source_url"`

	// Raw identity parts kept for URL generation and detail lookups.
	BillType   string `json:"bill_type"`
	BillNumber string `json:"bill_number"`
	Congress   string `json:"congress"`
}

// PageResult is one page of a result set plus navigation metadata. It is
// derived on every request and never stored.
type PageResult struct {
	Items      []BillRecord `json:"items"`
	PageNumber int          `json:"page_number"`
	PageSize   int          `json:"page_size"`
	TotalCount int          `json:"total_count"`
	HasNext    bool         `json:"has_next"`
	HasPrev    bool         `json:"has_prev"`

	// Stale is set when the page was served from an expired cache entry
	// because the upstream refresh failed.
	Stale bool `json:"stale,omitempty"`
}
