package models

import "time"

// PreventionSubmission is the body of POST /prevention. Station is the
// station the user picked before opening the form; it is nil when the client
// never selected one.
type PreventionSubmission struct {
	Station            *Station `json:"station"`
	MorningPrev        string   `json:"morning_prev"`
	AfternoonPrev      string   `json:"afternoon_prev"`
	MorningJellyfish   string   `json:"morning_jellyfish"`
	AfternoonJellyfish string   `json:"afternoon_jellyfish"`
}

// PreventionEntry is a stored prevention row
type PreventionEntry struct {
	ID                 int       `json:"id"`
	StationName        string    `json:"station_name"`
	Latitude           float64   `json:"latitude"`
	Longitude          float64   `json:"longitude"`
	MorningPrev        string    `json:"morning_prev"`
	AfternoonPrev      string    `json:"afternoon_prev"`
	MorningJellyfish   string    `json:"morning_jellyfish"`
	AfternoonJellyfish string    `json:"afternoon_jellyfish"`
	CreatedAt          time.Time `json:"created_at"`
}
