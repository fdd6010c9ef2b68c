package standings

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParsePage_Success(t *testing.T) {
	body := []byte(`{
		"standings": {
			"results": [
				{"player_name": "Jane Smith", "entry_name": "Smith XI", "entry": 1234567, "rank": 1},
				{"player_name": "Álvaro García", "entry_name": "Los Blancos", "entry": 7654321, "rank": 2}
			]
		},
		"league": {"id": 314}
	}`)

	records, err := ParsePage(body)
	if err != nil {
		t.Fatalf("ParsePage() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("ParsePage() returned %d records, want 2", len(records))
	}

	want := Record{FullName: "Jane Smith", TeamName: "Smith XI", PlayerID: 1234567}
	if records[0] != want {
		t.Errorf("records[0] = %+v, want %+v", records[0], want)
	}
	if records[1].FullName != "Álvaro García" {
		t.Errorf("records[1].FullName = %q, want %q", records[1].FullName, "Álvaro García")
	}
}

func TestParsePage_EmptyResults(t *testing.T) {
	body := []byte(`{"standings": {"results": []}}`)

	records, err := ParsePage(body)
	if err != nil {
		t.Fatalf("ParsePage() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("ParsePage() returned %d records, want 0", len(records))
	}
}

func TestParsePage_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"error detail body", `{"detail": "Not found."}`},
		{"standings null", `{"standings": null}`},
		{"standings without results", `{"standings": {"has_next": false}}`},
		{"results null", `{"standings": {"results": null}}`},
		{"results not a list", `{"standings": {"results": {"player_name": "x"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePage([]byte(tt.body))
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("ParsePage() error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestParsePage_InvalidJSON(t *testing.T) {
	// An undecodable body is a transport-level problem, not a malformed
	// page: it must not classify as ErrMalformed.
	_, err := ParsePage([]byte(`<html>502 Bad Gateway</html>`))

	if err == nil {
		t.Fatal("ParsePage() error = nil, want decode error")
	}
	if errors.Is(err, ErrMalformed) {
		t.Errorf("ParsePage() error = %v, must not be ErrMalformed", err)
	}
}

func TestRecord_JSONShape(t *testing.T) {
	data, err := json.Marshal(Record{FullName: "José Mourinho", TeamName: "Park the Bus", PlayerID: 42})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	want := `{"Full Name":"José Mourinho","Team Name":"Park the Bus","Player ID":42}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}
