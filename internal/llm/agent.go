package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tico/internal/files"
	"tico/internal/logging"
	"tico/internal/ratelimit"
	"tico/internal/services"
)

// StructuredOutput is implemented by each agent's declared response shape.
type StructuredOutput interface {
	// SchemaDescription documents the expected JSON fields; the supplementary
	// model uses it to reparse free text into the schema.
	SchemaDescription() string
	// Decode fills the value from the model's raw output.
	Decode(raw string) error
}

// SupplementaryModel configures the secondary model that converts free-text
// responses into the declared schema for engines whose primary model lacks
// native structured output.
type SupplementaryModel struct {
	Model   string
	Limiter *ratelimit.Limiter
}

// AgentConfig describes one configured agent.
type AgentConfig struct {
	SessionID     string
	AgentID       string
	Model         string
	Temperature   float64
	MaxTokens     int
	SystemPrompt  string
	Limiter       *ratelimit.Limiter
	Supplementary *SupplementaryModel

	KeepRawResponses bool
	RawResponsesDir  string

	Logger *slog.Logger
}

// Agent is a configured wrapper over the engine client with its own linear
// chat history.
type Agent struct {
	client  *Client
	cfg     AgentConfig
	logger  *slog.Logger
	history []Message
}

// NewAgent builds an agent bound to the given client.
func NewAgent(client *Client, cfg AgentConfig) *Agent {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With(
		logging.String(logging.FieldAgent, cfg.AgentID),
		logging.String(logging.FieldModel, cfg.Model),
	)
	return &Agent{client: client, cfg: cfg, logger: logger}
}

// HistoryLen reports the number of turns kept in the conversation.
func (a *Agent) HistoryLen() int {
	return len(a.history)
}

// Generate sends prompt as the next user turn, decodes the response into
// out, and appends both turns to history. On any failure the prompt is
// removed from history so a retry does not compound, and the error carries
// the generation marker.
func (a *Agent) Generate(ctx context.Context, prompt string, out StructuredOutput) error {
	if a.cfg.Limiter != nil {
		if err := a.cfg.Limiter.Acquire(ctx, a.logger); err != nil {
			return services.Wrap(services.ErrGeneration, "llm", a.cfg.AgentID, "rate limiter interrupted", err)
		}
	}

	a.history = append(a.history, Message{Role: "user", Content: prompt})

	messages := make([]Message, 0, len(a.history)+1)
	if a.cfg.SystemPrompt != "" {
		messages = append(messages, Message{Role: "system", Content: a.cfg.SystemPrompt})
	}
	messages = append(messages, a.history...)

	content, err := a.client.Complete(ctx, Request{
		Model:       a.cfg.Model,
		Messages:    messages,
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
		JSONOnly:    a.cfg.Supplementary == nil,
	})
	if err != nil {
		a.popPrompt()
		return services.Wrap(services.ErrGeneration, "llm", a.cfg.AgentID, "generate", err)
	}

	a.dumpRawResponse(content)

	structured := content
	if a.cfg.Supplementary != nil {
		structured, err = a.reparse(ctx, content, out)
		if err != nil {
			a.popPrompt()
			return err
		}
	}

	if err := out.Decode(structured); err != nil {
		a.popPrompt()
		return services.Wrap(services.ErrGeneration, "llm", a.cfg.AgentID, "decode response", err)
	}

	a.history = append(a.history, Message{Role: "assistant", Content: content})
	return nil
}

// reparse asks the supplementary model to convert free text into the
// declared schema at temperature zero.
func (a *Agent) reparse(ctx context.Context, content string, out StructuredOutput) (string, error) {
	supp := a.cfg.Supplementary
	if supp.Limiter != nil {
		if err := supp.Limiter.Acquire(ctx, a.logger); err != nil {
			return "", services.Wrap(services.ErrGeneration, "llm", a.cfg.AgentID, "rate limiter interrupted", err)
		}
	}

	system := "You convert text into JSON. Respond with a single JSON object matching the schema, nothing else.\n\nSchema:\n" +
		out.SchemaDescription()
	structured, err := a.client.Complete(ctx, Request{
		Model: supp.Model,
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: content},
		},
		Temperature: 0,
		JSONOnly:    true,
	})
	if err != nil {
		return "", services.Wrap(services.ErrGeneration, "llm", a.cfg.AgentID, "supplementary reparse", err)
	}
	return structured, nil
}

func (a *Agent) popPrompt() {
	if len(a.history) > 0 {
		a.history = a.history[:len(a.history)-1]
	}
}

func (a *Agent) dumpRawResponse(content string) {
	if !a.cfg.KeepRawResponses || a.cfg.RawResponsesDir == "" {
		return
	}
	now := time.Now()
	path := files.RawResponsePath(a.cfg.RawResponsesDir, a.cfg.SessionID, a.cfg.AgentID, now)
	entry := fmt.Sprintf("[%s] %s response:\n%s\n\n", now.UTC().Format(time.DateTime), a.cfg.Model, content)
	if err := files.AppendFile(path, []byte(entry)); err != nil {
		a.logger.Warn("failed to dump raw engine response", logging.Error(err))
	}
}
