package internal

// MessageService pushes messages to connected dashboard clients
type MessageService interface {
	Send(message Message) error
}

type Message interface {
	MessageType() string
}
