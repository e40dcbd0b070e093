package chart

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"

	"github.com/bbernstein/metobs/internal/models"
)

const (
	width  = 1200
	height = 600

	dataURLPrefix = "data:image/png;base64,"
)

// ErrNotEnoughPoints is returned when fewer than two points are given; a line needs two.
var ErrNotEnoughPoints = errors.New("at least two points are needed to draw a chart")

// Render draws points as a line chart and returns it as a PNG data URL
// ready for an <img src>.
func Render(points []models.ObservationPoint, xLabel, yLabel, title string) (string, error) {
	if len(points) < 2 {
		return "", ErrNotEnoughPoints
	}

	xs := make([]time.Time, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.Time
		ys[i] = p.Value
	}

	graph := gochart.Chart{
		Title:  title,
		Width:  width,
		Height: height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: gochart.XAxis{
			Name:           xLabel,
			ValueFormatter: gochart.TimeValueFormatterWithFormat(timeFormat(xs)),
		},
		YAxis: gochart.YAxis{
			Name:  yLabel,
			Range: valueRange(ys),
		},
		Series: []gochart.Series{
			gochart.TimeSeries{
				Name:    yLabel,
				XValues: xs,
				YValues: ys,
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return "", fmt.Errorf("rendering chart: %w", err)
	}

	return dataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// valueRange pads a flat series so the y axis never has a zero span.
// Nil lets go-chart pick the range from the data.
func valueRange(ys []float64) gochart.Range {
	lo, hi := ys[0], ys[0]
	for _, y := range ys[1:] {
		lo = min(lo, y)
		hi = max(hi, y)
	}
	if lo != hi {
		return nil
	}
	return &gochart.ContinuousRange{Min: lo - 1, Max: hi + 1}
}

func timeFormat(xs []time.Time) string {
	first, last := xs[0], xs[0]
	for _, x := range xs[1:] {
		if x.Before(first) {
			first = x
		}
		if x.After(last) {
			last = x
		}
	}
	if last.Sub(first) > 72*time.Hour {
		return "2006-01-02"
	}
	return "01-02 15:04"
}
