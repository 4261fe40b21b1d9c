package authcore

import (
	"context"
	"encoding/json"
	"io"
	"sync"
)

// NoOpNotifier discards every message. Useful when delivery is handled by
// an out-of-band consumer of audit events.
type NoOpNotifier struct{}

func (NoOpNotifier) Send(context.Context, string, string, string) error { return nil }

// JSONWriterNotifier writes one JSON object per message to w; the default
// stand-in for a real mail relay during development.
type JSONWriterNotifier struct {
	mu     sync.Mutex
	writer io.Writer
}

func NewJSONWriterNotifier(w io.Writer) *JSONWriterNotifier {
	return &JSONWriterNotifier{writer: w}
}

type notifierMessage struct {
	Address string `json:"address"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (n *JSONWriterNotifier) Send(_ context.Context, address, subject, body string) error {
	if n == nil || n.writer == nil {
		return nil
	}
	data, err := json.Marshal(notifierMessage{Address: address, Subject: subject, Body: body})
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if _, err := n.writer.Write(data); err != nil {
		return err
	}
	_, err = n.writer.Write([]byte("\n"))
	return err
}

// ChannelNotifier buffers messages into a channel; the engine's test double
// for asserting on delivered codes.
type ChannelNotifier struct {
	messages chan NotifierMessage
}

// NotifierMessage is one captured delivery.
type NotifierMessage struct {
	Address string
	Subject string
	Body    string
}

func NewChannelNotifier(buffer int) *ChannelNotifier {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelNotifier{messages: make(chan NotifierMessage, buffer)}
}

func (n *ChannelNotifier) Send(ctx context.Context, address, subject, body string) error {
	select {
	case n.messages <- NotifierMessage{Address: address, Subject: subject, Body: body}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *ChannelNotifier) Messages() <-chan NotifierMessage {
	return n.messages
}
