package sites

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bbernstein/metobs/internal/models"
)

var requiredColumns = []string{"site", "lat", "lng"}

// Parse decodes a site list, picking the format from the file name extension.
func Parse(name string, r io.Reader) ([]models.Site, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".csv":
		return ParseCSV(r)
	case ".yaml", ".yml":
		return ParseYAML(r)
	default:
		return nil, fmt.Errorf("unsupported site file %q: want .csv, .yaml or .yml", name)
	}
}

// ParseCSV reads a header row naming at least site, lat and lng. Other columns are ignored.
func ParseCSV(r io.Reader) ([]models.Site, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("site file is empty")
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing column %q in header", col)
		}
	}

	var sites []models.Site
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading line %d: %w", line, err)
		}

		site, err := siteFromRecord(record, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		sites = append(sites, site)
	}

	return sites, nil
}

func siteFromRecord(record []string, index map[string]int) (models.Site, error) {
	field := func(col string) string {
		i := index[col]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	lat, err := strconv.ParseFloat(field("lat"), 64)
	if err != nil {
		return models.Site{}, fmt.Errorf("invalid lat %q: %w", field("lat"), err)
	}
	lng, err := strconv.ParseFloat(field("lng"), 64)
	if err != nil {
		return models.Site{}, fmt.Errorf("invalid lng %q: %w", field("lng"), err)
	}

	return models.Site{ID: field("site"), Latitude: lat, Longitude: lng}, nil
}

// ParseYAML reads a list of {site, lat, lng} mappings.
func ParseYAML(r io.Reader) ([]models.Site, error) {
	var sites []models.Site
	if err := yaml.NewDecoder(r).Decode(&sites); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("site file is empty")
		}
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}
	return sites, nil
}
