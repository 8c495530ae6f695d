// Package crhoy is the read-only HTTP client for the CRHoy source: the daily
// index endpoint, per-article HTML pages, and the availability probes the
// service loops run before doing work.
//
// Requests retry on transient failures (5xx, timeouts) with exponential
// backoff; a day with no index (404) is reported as an empty index, matching
// the upstream behavior for quiet days.
package crhoy
