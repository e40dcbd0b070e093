package smhi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

type versionResponse struct {
	Resource []struct {
		Key     string `json:"key"`
		Title   string `json:"title"`
		Summary string `json:"summary"`
	} `json:"resource"`
}

type parameterResponse struct {
	Station []struct {
		Key       string  `json:"key"`
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"station"`
}

type dataResponse struct {
	Value []struct {
		Date  int64        `json:"date"`
		Value numberOrText `json:"value"`
	} `json:"value"`
}

// numberOrText accepts values encoded either as JSON numbers or as numeric
// strings; SMHI sends strings.
type numberOrText float64

func (n *numberOrText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return fmt.Errorf("missing value")
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("parsing value %q: %w", s, err)
		}
		*n = numberOrText(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = numberOrText(f)
	return nil
}
