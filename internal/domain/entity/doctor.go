package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Doctor is a bookable practitioner with a weekly working-hours table.
type Doctor struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name           string         `gorm:"type:varchar(255);not null;index" json:"name"`
	Specialization string         `gorm:"type:varchar(100);not null;index" json:"specialization"`
	Email          string         `gorm:"type:varchar(255)" json:"email,omitempty"`
	Phone          string         `gorm:"type:varchar(50)" json:"phone,omitempty"`
	IsActive       *bool          `gorm:"not null;default:true;index" json:"is_active"`
	WorkingHours   WorkingHours   `gorm:"type:jsonb;not null" json:"working_hours"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Appointments []Appointment `gorm:"foreignKey:DoctorID" json:"appointments,omitempty"`
}

func (Doctor) TableName() string {
	return "doctors"
}

// Active reports the is_active flag, treating an unset flag as active.
func (d *Doctor) Active() bool {
	return d.IsActive == nil || *d.IsActive
}
