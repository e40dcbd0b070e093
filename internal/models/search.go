package models

// SearchResult is the outcome of a nearest-available-station resolution.
// A nil Station means no station with data was found.
type SearchResult struct {
	Station   *Station `json:"station,omitempty"`
	Distance  float64  `json:"distance"`
	Series    *Series  `json:"series,omitempty"`
	Attempted []string `json:"attempted"`
}

// NotFound is the result returned when the search gave up.
func NotFound() SearchResult {
	return SearchResult{}
}

func (r SearchResult) Found() bool {
	return r.Station != nil && r.Series != nil
}
