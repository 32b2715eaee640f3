// internal/models/admin.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	BaseModel
	UserID       *uuid.UUID `json:"user_id" gorm:"type:uuid;index"`
	Action       string     `json:"action" gorm:"size:100;not null;index"`
	ResourceType string     `json:"resource_type" gorm:"size:50;not null;index"`
	ResourceID   *uuid.UUID `json:"resource_id" gorm:"type:uuid;index"`
	NewValues    JSONB      `json:"new_values" gorm:"type:jsonb"`
	IPAddress    string     `json:"ip_address" gorm:"size:45"`
	UserAgent    string     `json:"user_agent" gorm:"type:text"`
	StatusCode   int        `json:"status_code"`
}

type NotificationStatus string

const (
	NotificationUnread NotificationStatus = "unread"
	NotificationRead   NotificationStatus = "read"
)

// AdminNotification is the in-app counterpart of the store operator emails.
type AdminNotification struct {
	BaseModel
	Type                string             `json:"type" gorm:"type:varchar(50);not null;index"`
	Title               string             `json:"title" gorm:"size:255;not null"`
	Message             string             `json:"message" gorm:"type:text;not null"`
	Priority            string             `json:"priority" gorm:"type:varchar(20);default:'medium';index"`
	Status              NotificationStatus `json:"status" gorm:"type:varchar(20);default:'unread';index"`
	RelatedResourceType string             `json:"related_resource_type,omitempty" gorm:"size:50"`
	RelatedResourceID   *uuid.UUID         `json:"related_resource_id" gorm:"type:uuid"`
	ReadAt              *time.Time         `json:"read_at"`
}

// EmailDelivery marks one notification email as sent, so a retried event
// skips the recipients already served.
type EmailDelivery struct {
	BaseModel
	Kind       string    `json:"kind" gorm:"type:varchar(50);not null;uniqueIndex:idx_email_delivery"`
	ResourceID uuid.UUID `json:"resource_id" gorm:"type:uuid;not null;uniqueIndex:idx_email_delivery"`
}

// All returns every model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&UserProfile{},
		&Category{},
		&Product{},
		&ProductVariant{},
		&ProductImage{},
		&ProductFeature{},
		&ProductSpecification{},
		&ProductReview{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&ContactMessage{},
		&AuditLog{},
		&AdminNotification{},
		&EmailDelivery{},
	}
}
