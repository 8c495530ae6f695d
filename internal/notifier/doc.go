// Package notifier publishes summaries to the Telegram channel at the
// configured local trigger times.
//
// Each cycle selects unsent publishable articles whose timestamps fall in
// the shifted window [previous trigger - shift, current trigger), sends them
// oldest first, and records every send in its own transaction immediately
// after the message goes out. The send-then-record order admits a small
// duplication window across crashes; sent-log retention longer than the
// trigger spacing keeps restarts within a window from double-posting.
package notifier
