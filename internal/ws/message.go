package ws

import (
	"encoding/json"

	"github.com/syncpad/backend/internal/presence"
)

// MessageType represents the type of WebSocket message.
type MessageType string

const (
	// Client -> Server message types
	MessageTypeUpdate      MessageType = "update"
	MessageTypeRequestSync MessageType = "request_sync"
	MessageTypeAwareness   MessageType = "awareness"
	MessageTypeChat        MessageType = "chat_message"
	MessageTypeJoinVoice   MessageType = "join_voice"
	MessageTypeLeaveVoice  MessageType = "leave_voice"
	MessageTypeVoiceSignal MessageType = "voice_signal"
	MessageTypePing        MessageType = "ping"

	// Server -> Client message types
	MessageTypeSync            MessageType = "sync"
	MessageTypeInitial         MessageType = "initial"
	MessageTypeConnection      MessageType = "connection"
	MessageTypeRemoveAwareness MessageType = "remove_awareness"
	MessageTypeVoiceRoomUpdate MessageType = "voice_room_update"
	MessageTypePong            MessageType = "pong"
	MessageTypeError           MessageType = "error"
)

// Message represents a WebSocket message in either direction. Document
// updates and snapshots travel base64-encoded and are never inspected.
type Message struct {
	Type MessageType `json:"type"`

	// Document sync
	UpdateB64 string `json:"update_b64,omitempty"`
	DocB64    string `json:"doc_b64,omitempty"`
	Content   string `json:"content,omitempty"`

	// Presence
	Users  []presence.UserInfo `json:"users,omitempty"`
	UserID string              `json:"user_id,omitempty"`

	// Chat; Message doubles as the error text on error frames.
	Message  string  `json:"message,omitempty"`
	UserName string  `json:"user_name,omitempty"`
	Color    string  `json:"color,omitempty"`

	// Voice
	Participants []presence.UserInfo `json:"participants,omitempty"`
	TargetUser   string              `json:"target_user,omitempty"`
	FromUser     string              `json:"from_user,omitempty"`
	SignalData   json.RawMessage     `json:"signal_data,omitempty"`

	Timestamp float64 `json:"timestamp,omitempty"`
}
