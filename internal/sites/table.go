package sites

import (
	"fmt"
	"strings"

	"github.com/bbernstein/metobs/internal/models"
)

// Table is the read-only set of named sites a search can start from.
// It is built once at start-up and shared between requests.
type Table struct {
	sites []models.Site
	byID  map[string]int
}

// NewTable validates sites and indexes them by ID. Input order is kept for listing.
func NewTable(sites []models.Site) (*Table, error) {
	t := &Table{
		sites: make([]models.Site, 0, len(sites)),
		byID:  make(map[string]int, len(sites)),
	}

	for i, s := range sites {
		s.ID = strings.TrimSpace(s.ID)
		if s.ID == "" {
			return nil, fmt.Errorf("site at index %d: empty site id", i)
		}
		if _, dup := t.byID[s.ID]; dup {
			return nil, fmt.Errorf("site at index %d: duplicate site id %q", i, s.ID)
		}
		if s.Latitude < -90 || s.Latitude > 90 {
			return nil, fmt.Errorf("site %q: latitude %v out of range", s.ID, s.Latitude)
		}
		if s.Longitude < -180 || s.Longitude > 180 {
			return nil, fmt.Errorf("site %q: longitude %v out of range", s.ID, s.Longitude)
		}

		t.byID[s.ID] = len(t.sites)
		t.sites = append(t.sites, s)
	}

	return t, nil
}

func (t *Table) Lookup(id string) (models.Site, bool) {
	i, ok := t.byID[id]
	if !ok {
		return models.Site{}, false
	}
	return t.sites[i], true
}

// All returns a copy of the sites in the order they were loaded.
func (t *Table) All() []models.Site {
	out := make([]models.Site, len(t.sites))
	copy(out, t.sites)
	return out
}

func (t *Table) Len() int {
	return len(t.sites)
}
