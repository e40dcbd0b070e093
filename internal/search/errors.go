package search

import (
	"fmt"
	"strings"
)

// UnknownSiteError is returned when the requested site is not in the site table.
type UnknownSiteError struct {
	SiteID string
}

func (e *UnknownSiteError) Error() string {
	return fmt.Sprintf("unknown site %q", e.SiteID)
}

// UnknownParameterError is returned when parameter text matches no parameter,
// or matches several. Candidates holds the labels of the ambiguous matches.
type UnknownParameterError struct {
	Text       string
	Candidates []string
}

func (e *UnknownParameterError) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("no weather parameter matches %q", e.Text)
	}
	return fmt.Sprintf("weather parameter %q is ambiguous, it matches: %s", e.Text, strings.Join(e.Candidates, "; "))
}

type InvalidPeriodError struct {
	Period string
}

func (e *InvalidPeriodError) Error() string {
	return fmt.Sprintf("invalid period %q: must be one of latest-hour, latest-day, latest-months", e.Period)
}
