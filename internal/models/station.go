package models

// Station is a lifeguard post. Stations are reference data maintained outside
// this service.
type Station struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ProximityResponse is the result of running the proximity gate for a station
type ProximityResponse struct {
	Station   Station `json:"station"`
	Distance  float64 `json:"distance"`
	Threshold float64 `json:"threshold"`
	Admitted  bool    `json:"admitted"`
}
