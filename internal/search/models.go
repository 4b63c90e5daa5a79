package search

type TrackItem struct {
	Title        string `json:"title"`
	Artist       string `json:"artist"`          // channel / artist name
	Provider     string `json:"provider"`        // "youtube" or "spotify"
	VideoID      string `json:"videoId"`         // provider track reference
	ThumbnailURL string `json:"thumbnailUrl"`    // best available artwork
	Album        string `json:"album,omitempty"` // spotify only
	PreviewURL   string `json:"previewUrl,omitempty"`
	Duration     int    `json:"duration,omitempty"` // seconds
}

type SearchResponse struct {
	Items []TrackItem `json:"items"`
}
