package dto

import (
	"time"

	"clinic-appointment-service/internal/domain/entity"
)

// Response DTOs

type AuditLogResponse struct {
	ID         int64       `json:"id"`
	Action     string      `json:"action"`
	EntityName string      `json:"entity_name"`
	EntityID   string      `json:"entity_id"`
	Metadata   entity.JSON `json:"metadata"`
	CreatedAt  time.Time   `json:"created_at"`
}

type AuditLogListResponse struct {
	Logs  []AuditLogResponse `json:"logs"`
	Total int                `json:"total"`
}
