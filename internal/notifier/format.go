package notifier

import (
	"strings"
	"time"
)

// markdownV2Special lists the characters Telegram's MarkdownV2 dialect
// requires escaping outside of entities.
const markdownV2Special = `_*[]()~` + "`" + `>#+-=|{}.!`

// escapeMarkdownV2 escapes text for safe inclusion in a MarkdownV2 message.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if strings.ContainsRune(markdownV2Special, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// formatMessage renders the channel message:
//
//	{summary}
//
//	_{YYYY/MM/DD HH:MM local}_
//
//	{url}
//	#{category}
//
// A slash in the smart category splits into two hashtags.
func formatMessage(summary string, published time.Time, url, category string) string {
	var b strings.Builder
	b.WriteString(escapeMarkdownV2(strings.TrimSpace(summary)))
	b.WriteString("\n\n_")
	b.WriteString(escapeMarkdownV2(published.Format("2006/01/02 15:04")))
	b.WriteString("_\n\n")
	b.WriteString(escapeMarkdownV2(url))
	b.WriteString("\n")
	b.WriteString(categoryHashtags(category))
	return b.String()
}

func categoryHashtags(category string) string {
	if parent, child, found := strings.Cut(category, "/"); found {
		return "\\#" + escapeMarkdownV2(parent) + " \\#" + escapeMarkdownV2(child)
	}
	return "\\#" + escapeMarkdownV2(category)
}
