// Package series prepares observation series for display.
package series

import (
	"sort"

	"github.com/bbernstein/metobs/internal/models"
)

// MonthsChartSkip is how many leading points of a latest-months series are
// left out of the chart. The provider returns a long history for that period.
const MonthsChartSkip = 100

// SortDescending returns a copy of points ordered newest first.
func SortDescending(points []models.ObservationPoint) []models.ObservationPoint {
	sorted := make([]models.ObservationPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.After(sorted[j].Time)
	})
	return sorted
}

// ChartWindow returns the points to plot for period, in provider order.
// The table view always shows the full series.
func ChartWindow(points []models.ObservationPoint, period models.Period) []models.ObservationPoint {
	if period != models.PeriodLatestMonths {
		return points
	}
	if len(points) <= MonthsChartSkip {
		return []models.ObservationPoint{}
	}
	return points[MonthsChartSkip:]
}
