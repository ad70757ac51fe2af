package utils

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// TruncationMarker is appended to text cut by SmartSubstring.
const TruncationMarker = " [...]"

// EmbedFieldLimit is the most characters Discord accepts in an embed field value.
const EmbedFieldLimit = 1024

var markdownStripper = strings.NewReplacer(
	"*", "",
	"~~", "",
	"^", "",
	">", "",
	"`", "",
	"\n", " ",
	"#", "\\#",
)

// StripMarkdown removes markdown control characters so quoted text renders flat.
func StripMarkdown(text string) string {
	return markdownStripper.Replace(text)
}

// SmartSubstring shortens text to at most length runes, cutting at the last sep inside
// the limit and appending TruncationMarker. Text shorter than length is returned as is;
// a non-positive length disables truncation.
func SmartSubstring(text string, sep rune, length int) string {
	if length <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) < length {
		return text
	}

	cut := runes[:length]
	for i := len(cut) - 1; i >= 0; i-- {
		if cut[i] == sep {
			return string(cut[:i]) + TruncationMarker
		}
	}
	return string(cut) + TruncationMarker
}

// QuoteFormatting keeps a Discord block quote intact across paragraph breaks.
func QuoteFormatting(text string) string {
	return strings.ReplaceAll(text, "\n\n", "\n > \n")
}

// DiscordTimestamp renders an epoch as a Discord timestamp tag.
func DiscordTimestamp(epoch int64) string {
	return fmt.Sprintf("<t:%d>", epoch)
}

// DigestTimestamp renders an epoch in UTC for digest entries.
func DigestTimestamp(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format("2006-01-02 15:04:05")
}

// FormatForDiscord quotes a post body for an embed field. The body is cut to
// limit first; the quoted result never exceeds EmbedFieldLimit.
func FormatForDiscord(body string, limit int) string {
	quoted := QuoteFormatting("> " + SmartSubstring(body, '.', limit))
	return SmartSubstring(quoted, ' ', EmbedFieldLimit-utf8.RuneCountInString(TruncationMarker))
}
