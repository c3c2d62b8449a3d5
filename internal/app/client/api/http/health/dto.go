package health

import "time"

// Input represents the input for health check endpoint
type Input struct{}

// Output represents the output for health check endpoint
type Output struct {
	Body Response
}

// Response represents the health check response
type Response struct {
	Status     string    `json:"status" example:"OK" doc:"Health status of the service"`
	DeviceID   string    `json:"deviceId,omitempty" doc:"Identifier of this device"`
	Online     bool      `json:"online" doc:"Whether the remote authority is reachable"`
	LastSyncAt time.Time `json:"lastSyncAt,omitempty" doc:"Time of the last cycle that got a response"`
}
