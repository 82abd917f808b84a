package document

import "strings"

// Separator convention for messages that carry injected document context.
// Composition and filtering share these constants so the question can always
// be recovered from a rendered message.
const (
	contextHeader     = "Document context:\n"
	questionSeparator = "\n\nUser question: "
)

// Compose renders document context plus the user question into the combined
// message content sent to the response generator. An empty context returns
// the question unchanged.
func Compose(context, question string) string {
	if context == "" {
		return question
	}
	return contextHeader + context + questionSeparator + question
}

// HasContext reports whether content was produced by Compose with a
// non-empty context block.
func HasContext(content string) bool {
	return strings.HasPrefix(content, contextHeader) &&
		strings.Contains(content, questionSeparator)
}

// Question recovers the original user question from combined content. Plain
// content is returned unchanged.
func Question(content string) string {
	if !HasContext(content) {
		return content
	}
	idx := strings.LastIndex(content, questionSeparator)
	return content[idx+len(questionSeparator):]
}
