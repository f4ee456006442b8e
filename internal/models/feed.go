package models

// FeedEvent is pushed to every client connected to the live feed
type FeedEvent struct {
	Event     string      `json:"event"` // "connected", "checkin", "prevention"
	Station   string      `json:"station,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp int64       `json:"timestamp"`
}
