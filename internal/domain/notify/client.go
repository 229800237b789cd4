package notify

// Client defines an interface for sending out-of-band operator messages.
// This keeps the application logic decoupled from the messaging library.
type Client interface {
	SendMessage(recipientChatID int64, text string) error
}
