package crhoy_test

import (
	"testing"
	"time"

	"tico/internal/crhoy"
)

const sampleIndex = `{
  "ultimas": [
    {
      "id": 101,
      "url": "https://www.crhoy.com/nacionales/a101",
      "date": "Febrero 6, 2025",
      "hour": " 9:01 am ",
      "categories": [[12, "nacionales"]]
    },
    {
      "id": 102,
      "url": "https://www.crhoy.com/deportes/futbol/a102",
      "date": "Junio 1, 2024",
      "hour": "12:30 pm",
      "categories": [[3, "deportes"], [7, "futbol"]]
    },
    {
      "id": 103,
      "url": "https://www.crhoy.com/sucesos/a103",
      "date": "Junio 1, 2024",
      "hour": "12:05 am",
      "categories": [[9, "sucesos"]]
    }
  ]
}`

func TestParseIndex(t *testing.T) {
	loc := time.FixedZone("CST", -6*60*60)
	entries, err := crhoy.ParseIndex([]byte(sampleIndex), loc)
	if err != nil {
		t.Fatalf("ParseIndex failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	first := entries[0]
	if first.ID != 101 {
		t.Errorf("unexpected id: %d", first.ID)
	}
	if want := time.Date(2025, 2, 6, 9, 1, 0, 0, loc); !first.PublishedAt.Equal(want) {
		t.Errorf("unexpected timestamp: %v, want %v", first.PublishedAt, want)
	}
	if first.CategoryPath != "nacionales" {
		t.Errorf("unexpected category path: %q", first.CategoryPath)
	}

	// Hierarchical categories join into one slash path; noon pm stays 12.
	second := entries[1]
	if second.CategoryPath != "deportes/futbol" {
		t.Errorf("unexpected category path: %q", second.CategoryPath)
	}
	if want := time.Date(2024, 6, 1, 12, 30, 0, 0, loc); !second.PublishedAt.Equal(want) {
		t.Errorf("unexpected noon timestamp: %v", second.PublishedAt)
	}

	// 12:05 am is five past midnight.
	third := entries[2]
	if want := time.Date(2024, 6, 1, 0, 5, 0, 0, loc); !third.PublishedAt.Equal(want) {
		t.Errorf("unexpected midnight timestamp: %v", third.PublishedAt)
	}
}

func TestParseIndexRejectsMalformedDates(t *testing.T) {
	loc := time.UTC
	cases := []string{
		`{"ultimas": [{"id": 1, "url": "u", "date": "Smarch 1, 2024", "hour": "9:00 am", "categories": []}]}`,
		`{"ultimas": [{"id": 1, "url": "u", "date": "Junio 1, 2024", "hour": "morning", "categories": []}]}`,
		`{"ultimas": [{"id": 1, "url": "u", "date": "Junio 1", "hour": "9:00 am", "categories": []}]}`,
	}
	for _, raw := range cases {
		if _, err := crhoy.ParseIndex([]byte(raw), loc); err == nil {
			t.Errorf("expected parse error for %s", raw)
		}
	}
}

func TestParseIndexEmptyDay(t *testing.T) {
	entries, err := crhoy.ParseIndex([]byte(`{"ultimas": []}`), time.UTC)
	if err != nil {
		t.Fatalf("ParseIndex failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}
