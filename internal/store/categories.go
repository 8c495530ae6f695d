package store

import (
	"context"
	"fmt"
)

// UnknownCategory is the fallback smart category recorded when analysis
// fails. The row always exists and is never deleted.
const UnknownCategory = "__unknown__"

// SmartCategory is an LLM-curated topic label.
type SmartCategory struct {
	Category    string
	Description string
	Ignore      bool
}

// seedCategories is the predefined set installed into an empty database.
var seedCategories = []SmartCategory{
	{
		Category:    UnknownCategory,
		Description: "Internal category used only for database tracking of news articles that have not yet been assigned a proper category",
		Ignore:      true,
	},
	{
		Category:    "lifestyle",
		Description: "news related to people's way of life, their choices, values and stories of their life",
	},
	{
		Category:    "entertainment",
		Description: "news and articles related to entertainment such as movies, music, TV and live events",
	},
	{
		Category:    "crime",
		Description: "news about criminal activities and law enforcement",
		Ignore:      true,
	},
	{
		Category:    "government",
		Description: "news related to the actions and decisions of the government at all levels, including municipalities, courts, and other governmental bodies",
	},
	{
		Category:    "economy",
		Description: "news about the economy, prices, taxes, banking, and the financial situation of the country",
	},
	{
		Category:    "weather",
		Description: "news related to weather conditions, forecasts, and climate-related events",
	},
	{
		Category:    "infrastructure",
		Description: "news about roads, public works, utilities, and construction projects",
	},
	{
		Category:    "health",
		Description: "news related to healthcare, hospitals, medical services, and public health",
	},
	{
		Category:    "tourism",
		Description: "news about tourism, national parks, beaches, and attractions",
	},
}

func (s *Store) seedSmartCategories(ctx context.Context) error {
	for _, cat := range seedCategories {
		if err := s.UpsertSmartCategory(ctx, cat); err != nil {
			return err
		}
	}
	return nil
}

// SmartCategories returns all smart categories ordered by name.
func (s *Store) SmartCategories(ctx context.Context) ([]SmartCategory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, description, ignore FROM smart_categories ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("query smart categories: %w", err)
	}
	defer rows.Close()

	var categories []SmartCategory
	for rows.Next() {
		var (
			cat    SmartCategory
			ignore int
		)
		if err := rows.Scan(&cat.Category, &cat.Description, &ignore); err != nil {
			return nil, err
		}
		cat.Ignore = ignore != 0
		categories = append(categories, cat)
	}
	return categories, rows.Err()
}

// UpsertSmartCategory inserts the category if absent. Existing rows keep
// their description and ignore flag, so concurrent insertion by the
// downloader and operator edits never fight.
func (s *Store) UpsertSmartCategory(ctx context.Context, cat SmartCategory) error {
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO smart_categories (category, description, ignore) VALUES (?, ?, ?)
         ON CONFLICT (category) DO NOTHING`,
		cat.Category, cat.Description, boolToInt(cat.Ignore)); err != nil {
		return fmt.Errorf("upsert smart category: %w", err)
	}
	return nil
}
