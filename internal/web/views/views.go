// Package views renders the HTML pages of the web interface.
package views

import (
	"embed"
	"html/template"
	"io"
	"strconv"
	"time"

	"github.com/bbernstein/metobs/internal/models"
)

//go:embed templates/*.html
var files embed.FS

var pages = template.Must(template.New("").Funcs(template.FuncMap{
	"formatTime":  formatTime,
	"formatValue": formatValue,
}).ParseFS(files, "templates/*.html"))

// Page names
const (
	Home           = "home.html"
	WeatherForm    = "get_weather_data.html"
	WeatherResult  = "weather_data_returned.html"
	Parameters     = "parameters.html"
	StationsForm   = "stations.html"
	StationsResult = "stations_returned.html"
	Map            = "map.html"
)

type WeatherFormData struct {
	Sites      []models.Site
	Parameters []models.Parameter
	Periods    []models.Period
}

type WeatherResultData struct {
	Site          string
	Parameter     string
	StationsAsked string
	Station       string
	Distance      string
	// Chart is a data: URL, or empty when there is nothing to plot.
	Chart      template.URL
	ChartTitle string
	Rows       []models.ObservationPoint
}

type ParametersData struct {
	Parameters []models.Parameter
}

type StationsData struct {
	Parameters []models.Parameter
	Stations   []models.Station
}

// Marker is a station pin on the map.
type Marker struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Infobox string  `json:"infobox"`
}

type MapData struct {
	ParameterKey string
	Parameters   []models.Parameter
	Markers      []Marker
	CenterLat    float64
	CenterLng    float64
	Zoom         int
}

// Render executes the named page into w.
func Render(w io.Writer, name string, data interface{}) error {
	return pages.ExecuteTemplate(w, name, data)
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
