// Package ratelimit implements the per-model request window shared by all
// LLM agents.
//
// Each unique model name owns one limiter; agents referencing the same model
// name share a window even when they run with different prompts. Acquire
// never rejects a request, it only delays until the window resets.
package ratelimit
