// Package agents implements the analysis pipeline run for every downloaded
// article: categorization (classifier, labeler, namer, label finalizer) and
// summarization (summarizer plus one translator per configured language).
//
// Agents for one article share a session ID so their raw responses group
// together, but each agent owns its history. The categorization stages run
// serially; the label finalizer sees the candidates under randomized aliases
// to keep position bias out of the choice.
package agents
