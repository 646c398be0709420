package registration

import "time"

type RequestInput struct {
	SubjectID   string
	DisplayName string
	Email       string
}

type RequestDTO struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

type VerifyDTO struct {
	SubjectID   string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}
