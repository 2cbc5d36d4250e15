package domain

import "time"

// WatchlistMetadata describes one downloaded copy of the consolidated list
type WatchlistMetadata struct {
	DownloadDate      time.Time `json:"download_date"`
	OriginalURL       string    `json:"original_url"`
	FileName          string    `json:"file_name"`
	FileSize          int64     `json:"file_size"`
	FileHashSHA256    string    `json:"file_hash_sha256"`
	ListDateOfIssue   string    `json:"un_list_date_of_issue"`
	IndividualEntries int       `json:"individual_entries"`
	EntityEntries     int       `json:"entity_entries"`
	TotalEntries      int       `json:"total_entries"`
}

// Watchlist is the parsed, in-memory form of the consolidated list
type Watchlist struct {
	Metadata    WatchlistMetadata `json:"metadata"`
	Individuals []IdentityRecord  `json:"individuals"`
}

