package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"

	ChatSessionDefaultTitle = "New Chat"
	ChatSessionTitleMaxLen  = 30

	ChatWelcomeMessage     = "Hello! How can I assist you with your documents today?"
	ChatAnalyzeFilePrompt  = "Analyze this file: %s"
	ChatErrorReplyTemplate = "I'm sorry, but I encountered an error: %s"
	ChatEmptyReply         = "(empty response)"

	ChatBackendUnknownError = "An unknown error occurred on the server."
)
