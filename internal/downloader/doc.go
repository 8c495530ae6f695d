// Package downloader fetches article bodies, runs the LLM analysis pipeline
// on them, and records the results.
//
// Selection is two-tiered: articles inside the current notification window
// oldest first (fresh news stays timely), then backlog newest first. Each
// article is its own transaction; the download commit is separate from the
// analysis transaction so a transient LLM failure never loses a completed
// download.
package downloader
