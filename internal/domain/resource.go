package domain

// Resource is a single search hit returned by the pansou service.
// Fields are immutable once received.
type Resource struct {
	// Note is the human-readable title of the resource. Some sources fill
	// Title instead, so renderers should go through DisplayTitle.
	Note string `json:"note"`

	// Title is an alternative title field used by a subset of sources.
	Title string `json:"title"`

	// URL is the share or download link. Known schemes: magnet:,
	// thunder://, http(s)://. May be empty.
	URL string `json:"url"`

	// Password is the optional extraction code for cloud-drive shares.
	Password string `json:"password,omitempty"`

	// Source identifies where the hit came from, prefixed "tg:" for
	// Telegram channels or "plugin:" for plugin sources.
	Source string `json:"source"`

	// Datetime is an ISO-like timestamp string; only the date part is
	// shown to users.
	Datetime string `json:"datetime"`
}

// DisplayTitle returns the best available title for rendering.
func (r Resource) DisplayTitle() string {
	if r.Note != "" {
		return r.Note
	}
	if r.Title != "" {
		return r.Title
	}
	return "无标题"
}

// Date returns the date portion of the Datetime field.
func (r Resource) Date() string {
	if len(r.Datetime) > 10 {
		return r.Datetime[:10]
	}
	return r.Datetime
}

// SearchResult is the payload of a successful search: hits grouped by
// storage-provider type.
type SearchResult struct {
	Total        int                   `json:"total"`
	MergedByType map[string][]Resource `json:"merged_by_type"`
}

// Session is the per-user browsing state created from one search result.
// A new search by the same user overwrites the previous session.
type Session struct {
	Keyword       string                `json:"keyword"`
	ResultsByType map[string][]Resource `json:"results_by_type"`
	Total         int                   `json:"total"`
}

// Resources returns the resource list for a provider type, or nil if the
// session has no hits of that type.
func (s Session) Resources(resourceType string) []Resource {
	return s.ResultsByType[resourceType]
}
