package websocket

import (
	"encoding/json"
	"time"

	"learnhub/internal/shared"
)

// Message protocol of the notification change feed (server -> client only).

type MessageType string

const (
	TypeSubscribed MessageType = "subscribed" // sent once, after the subscription is registered
	TypeChange     MessageType = "change"     // a notifications row of the user changed
)

type Message struct {
	Type      MessageType         `json:"type"`
	Event     *shared.ChangeEvent `json:"event,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

func NewSubscribedMessage() *Message {
	return &Message{Type: TypeSubscribed, Timestamp: time.Now().UTC()}
}

func NewChangeMessage(ev shared.ChangeEvent) *Message {
	return &Message{Type: TypeChange, Event: &ev, Timestamp: time.Now().UTC()}
}

// ToJSON: marshal Message struct to JSON
func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MessageFromJSON: unmarshal JSON data to Message struct
func MessageFromJSON(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
