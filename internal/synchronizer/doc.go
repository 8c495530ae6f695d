// Package synchronizer keeps the per-day article index complete from the
// configured first day up to today.
//
// Each cycle probes connectivity, detects day switches (opening a gap range
// for the dates that were missed), re-ingests today's index to pick up new
// articles, and backfills one chunk of the earliest gap. Every ingested day
// is one transaction, so a crash never leaves a day half-applied.
package synchronizer
