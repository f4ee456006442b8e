package utils

import (
	"log"

	"github.com/gofiber/websocket/v2"
)

// SendJSON writes a JSON payload to a websocket connection. Fiber websocket
// connections allow a single writer; FeedHandler is the only one per conn.
func SendJSON(c *websocket.Conn, payload interface{}) error {
	return c.WriteJSON(payload)
}

// LogError logs an error if it's not nil
func LogError(err error, context string) {
	if err != nil {
		log.Printf("Error [%s]: %v", context, err)
	}
}
