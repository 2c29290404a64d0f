package constant

const (
	ChatIntentRename = "rename"
	ChatIntentPin    = "pin"
	ChatIntentDelete = "delete"
)

const (
	// Watermill topic for completed exchanges; the title consumer listens here.
	ChatExchangeCompletedTopic = "CHAT_EXCHANGE_COMPLETED"

	// NATS subject prefix for per-user thread invalidation events.
	ThreadEventsSubjectPrefix = "chat.threads."
)
