// Package standings defines the FPL classic-league standings payload and
// the per-manager records extracted from it.
package standings

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed indicates a body that decoded as JSON but does not carry
// the standings.results structure. Pages past the end of a league answer
// 200 with such bodies, so the condition is terminal rather than retryable.
var ErrMalformed = errors.New("malformed standings payload")

// Entry is one manager's row in the standings results, as sent by the API.
type Entry struct {
	PlayerName string `json:"player_name"`
	EntryName  string `json:"entry_name"`
	Entry      int64  `json:"entry"`
}

// Record is the output line written for one manager. Struct field order
// fixes the emitted key order.
type Record struct {
	FullName string `json:"Full Name"`
	TeamName string `json:"Team Name"`
	PlayerID int64  `json:"Player ID"`
}

// page mirrors the wire layout {"standings":{"results":[...]}}.
// RawMessage keeps an absent results key distinguishable from an empty one.
type page struct {
	Standings *struct {
		Results json.RawMessage `json:"results"`
	} `json:"standings"`
}

// ParsePage decodes one standings page body into output records.
//
// A body that is not valid JSON returns a plain decode error, which callers
// treat as retryable. Valid JSON without standings.results (key absent or
// null) returns an error wrapping ErrMalformed. An empty results list is a
// valid page with zero records.
func ParsePage(body []byte) ([]Record, error) {
	var p page
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode standings page: %w", err)
	}

	if p.Standings == nil || len(p.Standings.Results) == 0 || string(p.Standings.Results) == "null" {
		return nil, fmt.Errorf("%w: missing standings.results", ErrMalformed)
	}

	var entries []Entry
	if err := json.Unmarshal(p.Standings.Results, &entries); err != nil {
		return nil, fmt.Errorf("%w: results is not a list: %v", ErrMalformed, err)
	}

	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, Record{
			FullName: e.PlayerName,
			TeamName: e.EntryName,
			PlayerID: e.Entry,
		})
	}
	return records, nil
}
