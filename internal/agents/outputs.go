package agents

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"tico/internal/llm"
)

// Relation describes how an article relates to Costa Rica. Wire values match
// the classifier schema.
type Relation string

const (
	RelationDirect   Relation = "directly"
	RelationIndirect Relation = "indirectly"
	RelationNone     Relation = "na"
)

// flexBool tolerates the quoted booleans smaller models tend to emit.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(s)))
		if err != nil {
			return fmt.Errorf("boolean %q: %w", s, err)
		}
		*b = flexBool(parsed)
		return nil
	}
	var v bool
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*b = flexBool(v)
	return nil
}

// flexInt tolerates quoted numbers.
type flexInt int

func (i *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("integer %q: %w", s, err)
		}
		*i = flexInt(parsed)
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*i = flexInt(v)
	return nil
}

// classifiedArticle is the classifier's declared output.
type classifiedArticle struct {
	Relation Relation
}

func (c *classifiedArticle) SchemaDescription() string {
	return `{"a_chain_of_thought": "string", "b_related": "one of: directly, indirectly, na"}`
}

func (c *classifiedArticle) Decode(raw string) error {
	var payload struct {
		Related string `json:"b_related"`
	}
	if err := llm.DecodeJSON(raw, &payload); err != nil {
		return err
	}
	switch Relation(strings.ToLower(strings.TrimSpace(payload.Related))) {
	case RelationDirect:
		c.Relation = RelationDirect
	case RelationIndirect:
		c.Relation = RelationIndirect
	case RelationNone:
		c.Relation = RelationNone
	default:
		return fmt.Errorf("unknown relation %q", payload.Related)
	}
	return nil
}

// CategorySuggestion is one ranked candidate from the labeler.
type CategorySuggestion struct {
	Category string
	Rank     int
}

// labeledArticle is the labeler's declared output.
type labeledArticle struct {
	NoCategory  bool
	Suggestions []CategorySuggestion
}

func (l *labeledArticle) SchemaDescription() string {
	return `{"a_chain_of_thought": "string", "b_no_category": "boolean", "c_existing_categories_list": [{"a_category": "string", "b_rank": "integer 0-100"}]}`
}

func (l *labeledArticle) Decode(raw string) error {
	var payload struct {
		NoCategory flexBool `json:"b_no_category"`
		Categories []struct {
			Category string  `json:"a_category"`
			Rank     flexInt `json:"b_rank"`
		} `json:"c_existing_categories_list"`
	}
	if err := llm.DecodeJSON(raw, &payload); err != nil {
		return err
	}
	l.NoCategory = bool(payload.NoCategory)
	l.Suggestions = l.Suggestions[:0]
	for _, item := range payload.Categories {
		category := strings.TrimSpace(item.Category)
		if category == "" {
			continue
		}
		l.Suggestions = append(l.Suggestions, CategorySuggestion{
			Category: category,
			Rank:     int(item.Rank),
		})
	}
	return nil
}

// top returns the best-ranked suggestion, ok=false when there is none.
func (l *labeledArticle) top() (CategorySuggestion, bool) {
	if l.NoCategory || len(l.Suggestions) == 0 {
		return CategorySuggestion{}, false
	}
	best := l.Suggestions[0]
	for _, suggestion := range l.Suggestions[1:] {
		if suggestion.Rank > best.Rank {
			best = suggestion
		}
	}
	return best, true
}

// namedCategory is the namer's declared output.
type namedCategory struct {
	Name        string
	Description string
}

func (n *namedCategory) SchemaDescription() string {
	return `{"a_chain_of_thought": "string", "b_category": "string", "d_category_description": "string"}`
}

func (n *namedCategory) Decode(raw string) error {
	var payload struct {
		Category    string `json:"b_category"`
		Description string `json:"d_category_description"`
	}
	if err := llm.DecodeJSON(raw, &payload); err != nil {
		return err
	}
	n.Name = strings.TrimSpace(payload.Category)
	n.Description = strings.TrimSpace(payload.Description)
	if n.Name == "" {
		return fmt.Errorf("empty category name")
	}
	return nil
}

// finalizedLabel is the label finalizer's declared output; the category is
// an alias that the caller maps back to the real name.
type finalizedLabel struct {
	Category  string
	NewChosen bool
}

func (f *finalizedLabel) SchemaDescription() string {
	return `{"a_chain_of_thought": "string", "b_new_chosen": "boolean", "c_category": "string"}`
}

func (f *finalizedLabel) Decode(raw string) error {
	var payload struct {
		NewChosen flexBool `json:"b_new_chosen"`
		Category  string   `json:"c_category"`
	}
	if err := llm.DecodeJSON(raw, &payload); err != nil {
		return err
	}
	f.NewChosen = bool(payload.NewChosen)
	f.Category = strings.TrimSpace(payload.Category)
	if f.Category == "" {
		return fmt.Errorf("empty category")
	}
	return nil
}

// articleSummary is the summarizer's declared output.
type articleSummary struct {
	Summary string
}

func (s *articleSummary) SchemaDescription() string {
	return `{"a_chain_of_thought": "string", "b_news_summary": "string"}`
}

func (s *articleSummary) Decode(raw string) error {
	var payload struct {
		Summary string `json:"b_news_summary"`
	}
	if err := llm.DecodeJSON(raw, &payload); err != nil {
		return err
	}
	s.Summary = strings.TrimSpace(payload.Summary)
	if s.Summary == "" {
		return fmt.Errorf("empty summary")
	}
	return nil
}

// translatedSummary is the translator's declared output.
type translatedSummary struct {
	Translated string
}

func (t *translatedSummary) SchemaDescription() string {
	return `{"translated_summary": "string"}`
}

func (t *translatedSummary) Decode(raw string) error {
	var payload struct {
		Translated string `json:"translated_summary"`
	}
	if err := llm.DecodeJSON(raw, &payload); err != nil {
		return err
	}
	t.Translated = strings.TrimSpace(payload.Translated)
	if t.Translated == "" {
		return fmt.Errorf("empty translation")
	}
	return nil
}
