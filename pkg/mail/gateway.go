package mail

import "context"

// Message is a single outbound email
type Message struct {
	To      string
	Name    string
	Subject string
	Text    string
	HTML    string
}

// Gateway defines the interface for sending email
type Gateway interface {
	// Send delivers msg, returning an error if the provider refused it
	Send(ctx context.Context, msg Message) error

	// GetName returns the name of the gateway implementation
	GetName() string
}
