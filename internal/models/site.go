package models

// Site is a named location from the static site table.
type Site struct {
	ID        string  `json:"site" yaml:"site" dynamodbav:"site"`
	Latitude  float64 `json:"lat" yaml:"lat" dynamodbav:"lat"`
	Longitude float64 `json:"lng" yaml:"lng" dynamodbav:"lng"`
}
