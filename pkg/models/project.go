package models

import "time"

// Project groups flow instances for one tenant engagement.
type Project struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"           validate:"required,min=1"`
	ProjectNumber string    `json:"project_number"`
	Description   string    `json:"description,omitempty"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
