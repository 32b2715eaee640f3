// internal/services/contact_service.go
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/projectstore/internal/events"
	"github.com/javajoker/projectstore/internal/models"
	"github.com/javajoker/projectstore/internal/utils"
)

type ContactService struct {
	db        *gorm.DB
	publisher events.Publisher
}

type ContactRequest struct {
	Name    string `json:"name" form:"name" validate:"required,min=2,max=100"`
	Email   string `json:"email" form:"email" validate:"required,email,max=254"`
	Subject string `json:"subject" form:"subject" validate:"required,max=200"`
	Message string `json:"message" form:"message" validate:"required,min=2"`
}

func NewContactService(db *gorm.DB, publisher events.Publisher) *ContactService {
	return &ContactService{db: db, publisher: publisher}
}

// Submit stores a contact form entry and queues the operator notification.
func (s *ContactService) Submit(ctx context.Context, req *ContactRequest) (*models.ContactMessage, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Subject = strings.TrimSpace(req.Subject)
	req.Message = strings.TrimSpace(req.Message)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	msg := &models.ContactMessage{
		Name:    req.Name,
		Email:   strings.TrimSpace(req.Email),
		Subject: req.Subject,
		Message: req.Message,
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("failed to save contact message: %w", err)
	}

	if s.publisher != nil {
		event, err := events.NewEvent(events.TypeContactReceived, events.ContactReceived{MessageID: msg.ID})
		if err == nil {
			err = s.publisher.Publish(ctx, event)
		}
		if err != nil {
			logrus.WithError(err).WithField("message_id", msg.ID).Warn("Failed to publish contact notification")
		}
	}
	return msg, nil
}
