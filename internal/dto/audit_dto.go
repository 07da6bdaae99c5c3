package dto

import (
	"time"

	"github.com/CedricAlejo21/securelms-api/internal/models"
)

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// AuditListRequest defines filters for querying the audit trail.
type AuditListRequest struct {
	Page    int
	Limit   int
	ActorID uint
	Action  string
	From    *time.Time
	To      *time.Time
}

// SecurityEventResponse serializes one audit trail entry.
type SecurityEventResponse struct {
	ID            uint                   `json:"id"`
	ActorID       *uint                  `json:"actor_id"`
	Action        string                 `json:"action"`
	ResourceType  string                 `json:"resource_type"`
	ResourceID    *uint                  `json:"resource_id,omitempty"`
	Details       map[string]interface{} `json:"details"`
	SourceAddress string                 `json:"source_address"`
	UserAgent     string                 `json:"user_agent"`
	Success       bool                   `json:"success"`
	ErrorDetail   string                 `json:"error_detail,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

// AuditListResponse wraps a paginated audit trail page.
type AuditListResponse struct {
	Logs       []SecurityEventResponse `json:"logs"`
	Pagination PaginationMeta          `json:"pagination"`
}

// AuditSummaryResponse reports event counts by action over a window.
type AuditSummaryResponse struct {
	WindowStart time.Time        `json:"window_start"`
	WindowEnd   time.Time        `json:"window_end"`
	Counts      map[string]int64 `json:"counts"`
}

// NewSecurityEventResponse converts a security event model into a DTO.
func NewSecurityEventResponse(event models.SecurityEvent) SecurityEventResponse {
	details := make(map[string]interface{}, len(event.Details))
	for key, value := range event.Details {
		details[key] = value
	}

	return SecurityEventResponse{
		ID:            event.ID,
		ActorID:       event.ActorID,
		Action:        string(event.Action),
		ResourceType:  event.ResourceType,
		ResourceID:    event.ResourceID,
		Details:       details,
		SourceAddress: event.SourceAddress,
		UserAgent:     event.UserAgent,
		Success:       event.Success,
		ErrorDetail:   event.ErrorDetail,
		CreatedAt:     event.CreatedAt,
	}
}
