package telegram

import "strings"

var markdownV2Replacer = strings.NewReplacer(
	"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]", "(", "\\(", ")", "\\)",
	"~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#", "+", "\\+", "-", "\\-",
	"=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}", ".", "\\.", "!", "\\!",
)

// EscapeMarkdownV2 escapes the characters Telegram's MarkdownV2 parse mode
// treats as markup.
func EscapeMarkdownV2(text string) string {
	return markdownV2Replacer.Replace(text)
}

// MonospaceBlock wraps text into a MarkdownV2 code block. Content inside the
// block is not escaped.
func MonospaceBlock(text string) string {
	return "```\n" + text + "\n```"
}
