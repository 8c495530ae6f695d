package crhoy

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// IndexEntry is one article reference extracted from a day's index.
type IndexEntry struct {
	ID           int64
	URL          string
	PublishedAt  time.Time
	CategoryPath string
}

// spanishMonths maps lowercase Spanish month names to month numbers.
var spanishMonths = map[string]time.Month{
	"enero":      time.January,
	"febrero":    time.February,
	"marzo":      time.March,
	"abril":      time.April,
	"mayo":       time.May,
	"junio":      time.June,
	"julio":      time.July,
	"agosto":     time.August,
	"septiembre": time.September,
	"octubre":    time.October,
	"noviembre":  time.November,
	"diciembre":  time.December,
}

// rawIndex mirrors the upstream JSON: a list of articles under "ultimas",
// each with a Spanish-formatted date, a 12-hour clock string, and a list of
// [id, slug] category pairs forming a hierarchical path.
type rawIndex struct {
	Ultimas []rawIndexEntry `json:"ultimas"`
}

type rawIndexEntry struct {
	ID         int64               `json:"id"`
	URL        string              `json:"url"`
	Date       string              `json:"date"`
	Hour       string              `json:"hour"`
	Categories [][]json.RawMessage `json:"categories"`
}

// ParseIndex decodes a day's index JSON into entries with timestamps in the
// given source timezone.
func ParseIndex(data []byte, loc *time.Location) ([]IndexEntry, error) {
	var raw rawIndex
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}

	entries := make([]IndexEntry, 0, len(raw.Ultimas))
	for _, item := range raw.Ultimas {
		ts, err := parseTimestamp(item.Date, item.Hour, loc)
		if err != nil {
			return nil, fmt.Errorf("article %d: %w", item.ID, err)
		}
		path, err := categoryPath(item.Categories)
		if err != nil {
			return nil, fmt.Errorf("article %d: %w", item.ID, err)
		}
		entries = append(entries, IndexEntry{
			ID:           item.ID,
			URL:          item.URL,
			PublishedAt:  ts,
			CategoryPath: path,
		})
	}
	return entries, nil
}

// parseTimestamp combines the index date ("Febrero 6, 2025") and hour
// (" 9:01 am ") fields.
func parseTimestamp(date, hour string, loc *time.Location) (time.Time, error) {
	parts := strings.Fields(strings.ToLower(strings.ReplaceAll(date, ",", "")))
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("malformed date %q", date)
	}
	month, ok := spanishMonths[parts[0]]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown month %q", parts[0])
	}
	day, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed day %q", parts[1])
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed year %q", parts[2])
	}

	clock := strings.ToLower(strings.TrimSpace(hour))
	isPM := strings.Contains(clock, "pm")
	clock = strings.TrimSpace(strings.NewReplacer("am", "", "pm", "").Replace(clock))
	hhmm := strings.SplitN(clock, ":", 2)
	if len(hhmm) != 2 {
		return time.Time{}, fmt.Errorf("malformed hour %q", hour)
	}
	hh, err := strconv.Atoi(strings.TrimSpace(hhmm[0]))
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed hour %q", hour)
	}
	mm, err := strconv.Atoi(strings.TrimSpace(hhmm[1]))
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed minutes %q", hour)
	}
	if isPM && hh != 12 {
		hh += 12
	} else if !isPM && hh == 12 {
		hh = 0
	}

	return time.Date(year, month, day, hh, mm, 0, 0, loc), nil
}

// categoryPath joins the URL-compatible slugs (second element of each
// [id, slug] pair) with "/" into a single hierarchical path, e.g.
// "deportes/futbol".
func categoryPath(categories [][]json.RawMessage) (string, error) {
	slugs := make([]string, 0, len(categories))
	for _, pair := range categories {
		if len(pair) < 2 {
			return "", fmt.Errorf("malformed category pair")
		}
		var slug string
		if err := json.Unmarshal(pair[1], &slug); err != nil {
			return "", fmt.Errorf("malformed category slug: %w", err)
		}
		slugs = append(slugs, slug)
	}
	return strings.Join(slugs, "/"), nil
}
