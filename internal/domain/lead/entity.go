package lead

import (
	"time"

	"github.com/google/uuid"
)

// Lead represents leads, the permanent record an import commits into.
// Email is unique per workspace.
type Lead struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WorkspaceID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_leads_workspace_email" json:"workspace_id"`
	Email        string    `gorm:"not null;uniqueIndex:idx_leads_workspace_email" json:"email"`
	Name         string    `json:"name,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Company      string    `json:"company,omitempty"`
	Position     string    `json:"position,omitempty"`
	CustomFields []byte    `gorm:"type:jsonb" json:"custom_fields,omitempty"`
	Source       string    `gorm:"default:'import'" json:"source"`
	CreatedAt    time.Time `gorm:"default:now()" json:"created_at"`
	UpdatedAt    time.Time `gorm:"default:now()" json:"updated_at"`
}

func (Lead) TableName() string {
	return "leads"
}
