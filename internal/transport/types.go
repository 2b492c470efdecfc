package transport

import "context"

type Update struct {
	Message *Message
}

type Message struct {
	ID           int
	ChatID       int64
	FromID       int64
	FromUsername string
	Text         string
	// Location is set when the user shared a map point instead of text.
	Location *Location
}

type Location struct {
	Lat float64
	Lon float64
}

type ChatTarget struct {
	ChatID int64
}

type MessageRef struct {
	ChatID    int64
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool

	// ReplyKeyboard renders a persistent reply keyboard from label rows.
	// RequestLocation adds a location-request button as the last row.
	ReplyKeyboard   [][]string
	RequestLocation string
	RemoveKeyboard  bool
}

type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	DeleteMessage(ctx context.Context, ref MessageRef) error
}
