package websocket

import (
	"time"

	"github.com/KevinKickass/HotmockBridge/internal/ports"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Board values
	MessageTypePortValue MessageType = "port_value"

	// Component lifecycle
	MessageTypeComponentState MessageType = "component_state"

	// Replies to client requests
	MessageTypeSubscribed MessageType = "subscribed"
	MessageTypeError      MessageType = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// ComponentStateData represents a component state change
type ComponentStateData struct {
	State    string `json:"state"`
	Previous string `json:"previous_state"`
	Error    string `json:"error,omitempty"`
}

// SubscribedData lists the ports a client receives. Empty means all.
type SubscribedData struct {
	Ports []string `json:"ports"`
}

// ClientMessage is sent by clients, e.g. {"type":"subscribe","ports":["DI1","AI2"]}.
type ClientMessage struct {
	Type  string   `json:"type"`
	Ports []string `json:"ports,omitempty"`
}

// NewMessage creates a new message with current timestamp
func NewMessage(msgType MessageType, data interface{}) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

func NewPortValueMessage(u ports.Update) Message {
	return Message{
		Type:      MessageTypePortValue,
		Timestamp: u.Timestamp,
		Data:      u,
	}
}

func NewComponentStateMessage(state, previous, errMsg string) Message {
	return NewMessage(MessageTypeComponentState, ComponentStateData{
		State:    state,
		Previous: previous,
		Error:    errMsg,
	})
}
