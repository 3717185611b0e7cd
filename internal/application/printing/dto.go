package printing

import "time"

// SaveResponse describes an artifact written to the output directory
type SaveResponse struct {
	Kind      string    `json:"kind"`
	ID        string    `json:"id"`
	FileName  string    `json:"file_name"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	PageCount int       `json:"page_count"`
	Replaced  string    `json:"replaced,omitempty"`
	Mirrored  bool      `json:"mirrored"`
	SavedAt   time.Time `json:"saved_at"`
}

// DocumentKindResponse describes a registered document kind
type DocumentKindResponse struct {
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

// PaperSizeResponse represents a paper size option
type PaperSizeResponse struct {
	Code   string  `json:"code"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// CleanupResponse reports a retention sweep
type CleanupResponse struct {
	Deleted   int `json:"deleted"`
	Forgotten int `json:"forgotten"`
}

// DownloadURLResponse is a presigned link to a mirrored artifact
type DownloadURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
