// Package llm provides the chat-completion engine client and the agent
// wrapper the analysis pipeline is built from.
//
// # Client
//
// Client talks to an OpenAI-compatible chat completions endpoint
// (OpenRouter by default). It retries on HTTP 408/429/5xx and network
// timeouts with exponential backoff and honors Retry-After. Context
// cancellation stops further attempts; a backoff wait already under way is
// not interrupted.
//
// # Agents
//
// Agent binds a fixed system prompt, a declared structured output, a
// temperature and token budget, and a per-model rate limiter. Each agent
// instance owns a linear chat history; a failed generation removes the last
// user prompt from history so retries do not compound. Models without native
// structured output use a supplementary model that reparses the primary's
// free-text response into the declared schema at temperature zero.
package llm
