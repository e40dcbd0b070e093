package models

// Parameter is a measurable weather quantity published by the provider.
type Parameter struct {
	Key     string `json:"key"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// Label is the display text used to pick a parameter, e.g. "Byvind, max, 1 gång/tim".
func (p Parameter) Label() string {
	return p.Title + ", " + p.Summary
}

// Station is an observation site. The set of stations depends on the parameter
// it was listed for.
type Station struct {
	Key       string  `json:"key"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
