package handler

import "time"

type locationRequest struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lng float64 `json:"lng" validate:"longitude"`
}

type actionRequest struct {
	ID       string           `json:"id"       validate:"omitempty,max=128"`
	Identity string           `json:"identity" validate:"required,max=64"`
	Kind     string           `json:"kind"     validate:"required,oneof=registration_start text contact_shared photo_shared menu cancel"`
	Value    string           `json:"value"    validate:"max=4096"`
	Location *locationRequest `json:"location"`
	SentAt   *time.Time       `json:"sent_at"`
}

type acceptedResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}
