// Package htmlmd extracts the title and body of a CRHoy article page and
// renders them as markdown for the analysis pipeline.
package htmlmd
