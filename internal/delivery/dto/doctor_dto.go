package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CreateDoctorRequest struct {
	Name           string              `json:"name" validate:"required,min=2,max=255"`
	Specialization string              `json:"specialization" validate:"required,max=100"`
	Email          string              `json:"email" validate:"omitempty,email,max=255"`
	Phone          string              `json:"phone" validate:"omitempty,max=50"`
	IsActive       *bool               `json:"is_active" validate:"omitempty"`
	WorkingHours   map[string][]string `json:"working_hours" validate:"required"` // {"monday": ["09:00", "17:00"]}
}

type UpdateDoctorRequest struct {
	Name           *string             `json:"name" validate:"omitempty,min=2,max=255"`
	Specialization *string             `json:"specialization" validate:"omitempty,max=100"`
	Email          *string             `json:"email" validate:"omitempty,email,max=255"`
	Phone          *string             `json:"phone" validate:"omitempty,max=50"`
	IsActive       *bool               `json:"is_active" validate:"omitempty"`
	WorkingHours   map[string][]string `json:"working_hours" validate:"omitempty"`
}

type ListDoctorsRequest struct {
	Specialization string `json:"specialization" validate:"omitempty,max=100"`
	Search         string `json:"search" validate:"omitempty,max=100"`
	SortBy         string `json:"sort_by" validate:"omitempty,oneof=name specialization created_at"`
	SortDir        string `json:"sort_dir" validate:"omitempty,oneof=asc desc"`
	Page           int    `json:"page" validate:"omitempty,min=1"`
	PerPage        int    `json:"per_page" validate:"omitempty,min=1,max=100"`
}

// Response DTOs

type DoctorResponse struct {
	ID             uuid.UUID           `json:"id"`
	Name           string              `json:"name"`
	Specialization string              `json:"specialization"`
	Email          string              `json:"email,omitempty"`
	Phone          string              `json:"phone,omitempty"`
	IsActive       bool                `json:"is_active"`
	WorkingHours   map[string][]string `json:"working_hours"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

type DoctorSummaryResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Specialization string    `json:"specialization"`
}

type DoctorListResponse struct {
	Doctors []DoctorResponse `json:"doctors"`
	Total   int64            `json:"total"`
	Page    int              `json:"page"`
	PerPage int              `json:"per_page"`
}
