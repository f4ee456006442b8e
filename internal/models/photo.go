package models

import "time"

// PhotoLog is one check-in record: the photo taken at a station
type PhotoLog struct {
	ID          string    `json:"id"`
	StationName string    `json:"station_name"`
	PhotoURL    string    `json:"photo_url"`
	ObjectKey   string    `json:"object_key"`
	Timestamp   time.Time `json:"timestamp"`
}
