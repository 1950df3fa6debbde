package repository

import (
	"time"

	"clinic-appointment-service/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentRepository interface {
	Create(db *gorm.DB, appointment *entity.Appointment) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error)
	// FindOverlapping returns the doctor's non-cancelled appointments
	// intersecting [start, end). With lock set the rows are selected FOR UPDATE.
	FindOverlapping(db *gorm.DB, doctorID uuid.UUID, start, end time.Time, lock bool) ([]entity.Appointment, error)
	FindByDoctor(db *gorm.DB, doctorID uuid.UUID, filter *entity.AppointmentFilter) ([]entity.Appointment, error)
	// UpdateStatus persists the status fields only if the stored version still
	// equals expectedVersion. Returns affected rows: 0 means a concurrent update won.
	UpdateStatus(db *gorm.DB, appointment *entity.Appointment, expectedVersion int) (int64, error)
}
