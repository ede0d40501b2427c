package dto

import "github.com/google/uuid"

type RegisterIdentityRequest struct {
	SubjectID  string    `json:"subject_id" binding:"required"`
	Name       string    `json:"name" binding:"required"`
	PersonCode string    `json:"person_code"`
	Descriptor []float32 `json:"descriptor" binding:"required"`
}

type IdentityResponse struct {
	ID         uuid.UUID `json:"id"`
	SubjectID  string    `json:"subject_id"`
	Name       string    `json:"name"`
	PersonCode string    `json:"person_code,omitempty"`
	CreatedAt  string    `json:"created_at"`
}

type IdentityListResponse struct {
	Identities []IdentityResponse `json:"identities"`
	Total      int                `json:"total"`
}

type TokenRequest struct {
	SubjectID string   `json:"subject_id" binding:"required"`
	Roles     []string `json:"roles"`
}

type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}
