// Package hub provides a thread-safe websocket broadcast hub
// using the idiomatic Go channel-based fan-out pattern.
package hub

import (
	"encoding/json"
	"time"
)

// MessageType indicates the websocket message format
type MessageType int

const (
	// JSONMessage is a JSON-encoded message
	JSONMessage MessageType = iota
	// BinaryMessage is raw binary data (e.g., JPEG frames)
	BinaryMessage
)

// Message represents a message to be broadcast to clients
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage creates a JSON message
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage creates a binary message
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}

// Event kinds sent on the events hub.
const (
	EventLink   = "link"
	EventConfig = "config"
	EventStream = "stream"
)

// Event is the JSON envelope for camera notifications.
type Event struct {
	Type    string      `json:"type"`
	Session string      `json:"session"`
	Serial  string      `json:"serial,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Time    time.Time   `json:"time"`
}

// NewEvent stamps an event with the current time.
func NewEvent(kind, session, serial string, data interface{}) Event {
	return Event{Type: kind, Session: session, Serial: serial, Data: data, Time: time.Now().UTC()}
}

// Encode returns ev as a JSON message.
func (ev Event) Encode() (Message, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return Message{}, err
	}
	return NewJSONMessage(data), nil
}
