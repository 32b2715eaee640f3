// internal/models/contact.go
package models

type ContactMessage struct {
	BaseModel
	Name    string `json:"name" gorm:"size:100;not null"`
	Email   string `json:"email" gorm:"size:254;not null"`
	Subject string `json:"subject" gorm:"size:200;not null"`
	Message string `json:"message" gorm:"type:text;not null"`
	IsRead  bool   `json:"is_read" gorm:"default:false;index"`
}
