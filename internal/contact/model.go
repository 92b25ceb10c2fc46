package contact

import "gatortrader_backend/internal/common"

// Submission is a message left through the public contact form.
type Submission struct {
	common.BaseModel
	Name    string `gorm:"type:varchar(100);not null"`
	Email   string `gorm:"type:varchar(255);not null"`
	Message string `gorm:"type:text;not null"`
}

func (Submission) TableName() string {
	return "contact_submissions"
}

type SubmitRequest struct {
	Name    string `json:"name" binding:"required,max=100"`
	Email   string `json:"email" binding:"required,email,max=255"`
	Message string `json:"message" binding:"required,min=10,max=5000"`
}
