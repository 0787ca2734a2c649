package types

type TriggerRequest struct {
	Secret string `json:"secret"`
}

// StatusResponse is the plain acknowledgement body.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type DoorCommandResponse struct {
	Open bool `json:"open"`
}
