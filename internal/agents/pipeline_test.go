package agents_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"tico/internal/agents"
	"tico/internal/llm"
	"tico/internal/ratelimit"
	"tico/internal/testsupport"
)

// scriptedEngine hands each agent a canned raw response keyed by agent ID.
type scriptedEngine struct {
	responses map[string]string
	failures  map[string]error
	calls     []string
	prompts   map[string]string
	systems   map[string]string
}

func newScriptedEngine() *scriptedEngine {
	return &scriptedEngine{
		responses: make(map[string]string),
		failures:  make(map[string]error),
		prompts:   make(map[string]string),
		systems:   make(map[string]string),
	}
}

type scriptedAgent struct {
	engine *scriptedEngine
	cfg    llm.AgentConfig
}

func (s *scriptedAgent) Generate(_ context.Context, prompt string, out llm.StructuredOutput) error {
	s.engine.calls = append(s.engine.calls, s.cfg.AgentID)
	s.engine.prompts[s.cfg.AgentID] = prompt
	s.engine.systems[s.cfg.AgentID] = s.cfg.SystemPrompt
	if err, ok := s.engine.failures[s.cfg.AgentID]; ok {
		return err
	}
	raw, ok := s.engine.responses[s.cfg.AgentID]
	if !ok {
		return fmt.Errorf("no scripted response for %s", s.cfg.AgentID)
	}
	return out.Decode(raw)
}

func (e *scriptedEngine) builder(cfg llm.AgentConfig) agents.Generator {
	return &scriptedAgent{engine: e, cfg: cfg}
}

func newTestPipeline(t *testing.T, engine *scriptedEngine) *agents.Pipeline {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return agents.NewPipeline(cfg, nil, ratelimit.NewRegistry(), nil,
		agents.WithAgentBuilder(engine.builder),
		agents.WithRandInt(func(n int) int { return 0 }),
	)
}

func TestCategorizeNotApplicableShortCircuits(t *testing.T) {
	engine := newScriptedEngine()
	engine.responses["classifier"] = `{"b_related": "na"}`

	pipeline := newTestPipeline(t, engine)
	result, err := pipeline.Categorize(context.Background(), "s1", "articulo", map[string]string{})
	if err != nil {
		t.Fatalf("Categorize failed: %v", err)
	}
	if result.Relation != agents.RelationNone || result.Category != "" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(engine.calls) != 1 {
		t.Fatalf("na classification must stop the pipeline, calls: %v", engine.calls)
	}
}

func TestCategorizeChoosesExistingCategory(t *testing.T) {
	engine := newScriptedEngine()
	engine.responses["classifier"] = `{"b_related": "directly"}`
	engine.responses["labeler"] = `{"b_no_category": "false", "c_existing_categories_list": [
        {"a_category": "government", "b_rank": "90"},
        {"a_category": "economy", "b_rank": 70}
    ]}`
	engine.responses["namer"] = `{"b_category": "government/budget", "d_category_description": "budget news"}`
	// randInt pinned to 0: existing=CAT000, proposal=CAT001.
	engine.responses["label_finalizer"] = `{"b_new_chosen": false, "c_category": "CAT000"}`

	existing := map[string]string{
		"government": "government news",
		"economy":    "economy news",
	}

	pipeline := newTestPipeline(t, engine)
	result, err := pipeline.Categorize(context.Background(), "s1", "articulo", existing)
	if err != nil {
		t.Fatalf("Categorize failed: %v", err)
	}
	if result.Relation != agents.RelationDirect {
		t.Errorf("unexpected relation: %v", result.Relation)
	}
	if result.Category != "government" || result.New {
		t.Fatalf("expected existing category government, got %+v", result)
	}

	wantOrder := []string{"classifier", "labeler", "namer", "label_finalizer"}
	if strings.Join(engine.calls, ",") != strings.Join(wantOrder, ",") {
		t.Fatalf("unexpected agent order: %v", engine.calls)
	}
	// The finalizer sees aliases, never the real names.
	if strings.Contains(engine.systems["label_finalizer"], "government") {
		t.Error("finalizer prompt leaked a real category name")
	}
}

func TestCategorizeAdoptsNewCategory(t *testing.T) {
	engine := newScriptedEngine()
	engine.responses["classifier"] = `{"b_related": "indirectly"}`
	engine.responses["labeler"] = `{"b_no_category": false, "c_existing_categories_list": [
        {"a_category": "government", "b_rank": 40}
    ]}`
	engine.responses["namer"] = `{"b_category": "weather/storms", "d_category_description": "storm coverage"}`
	engine.responses["label_finalizer"] = `{"b_new_chosen": true, "c_category": "CAT001"}`

	pipeline := newTestPipeline(t, engine)
	result, err := pipeline.Categorize(context.Background(), "s1", "articulo",
		map[string]string{"government": "government news"})
	if err != nil {
		t.Fatalf("Categorize failed: %v", err)
	}
	if result.Category != "weather/storms" || !result.New {
		t.Fatalf("expected new category adoption, got %+v", result)
	}
	if result.Description != "storm coverage" {
		t.Errorf("unexpected description: %q", result.Description)
	}
}

func TestCategorizeNoExistingSuggestionSkipsFinalizer(t *testing.T) {
	engine := newScriptedEngine()
	engine.responses["classifier"] = `{"b_related": "directly"}`
	engine.responses["labeler"] = `{"b_no_category": true, "c_existing_categories_list": []}`
	engine.responses["namer"] = `{"b_category": "tourism/parks", "d_category_description": "park news"}`

	pipeline := newTestPipeline(t, engine)
	result, err := pipeline.Categorize(context.Background(), "s1", "articulo",
		map[string]string{"government": "government news"})
	if err != nil {
		t.Fatalf("Categorize failed: %v", err)
	}
	if result.Category != "tourism/parks" || !result.New {
		t.Fatalf("unexpected result: %+v", result)
	}
	for _, call := range engine.calls {
		if call == "label_finalizer" {
			t.Fatal("finalizer must not run without an existing suggestion")
		}
	}
}

func TestCategorizePropagatesAgentFailure(t *testing.T) {
	engine := newScriptedEngine()
	engine.responses["classifier"] = `{"b_related": "directly"}`
	engine.failures["labeler"] = errors.New("engine exploded")

	pipeline := newTestPipeline(t, engine)
	if _, err := pipeline.Categorize(context.Background(), "s1", "articulo", map[string]string{}); err == nil {
		t.Fatal("expected labeler failure to propagate")
	}
}

func TestSummarizeTranslatesConfiguredLanguages(t *testing.T) {
	engine := newScriptedEngine()
	engine.responses["summarizer"] = `{"b_news_summary": "Electricity rates drop in April."}`
	engine.responses["translator_ru"] = `{"translated_summary": "Тарифы на электричество снизятся в апреле."}`

	pipeline := newTestPipeline(t, engine)
	result, err := pipeline.Summarize(context.Background(), "s1", "articulo", []string{"ru"})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if result.Translations["en"] != "Electricity rates drop in April." {
		t.Errorf("unexpected english summary: %q", result.Translations["en"])
	}
	if result.Translations["ru"] != "Тарифы на электричество снизятся в апреле." {
		t.Errorf("unexpected translation: %q", result.Translations["ru"])
	}

	// The translator receives the work item with article and summary, and a
	// system prompt naming the language.
	if !strings.Contains(engine.prompts["translator_ru"], `"summary"`) {
		t.Error("translator work item missing summary field")
	}
	if !strings.Contains(engine.systems["translator_ru"], "Russian") {
		t.Error("translator system prompt should name the target language")
	}
}
