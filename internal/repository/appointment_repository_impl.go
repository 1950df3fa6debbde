package repository

import (
	"errors"
	"time"

	"clinic-appointment-service/internal/domain/entity"
	domainRepo "clinic-appointment-service/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type appointmentRepository struct{}

func NewAppointmentRepository() domainRepo.AppointmentRepository {
	return &appointmentRepository{}
}

func (r *appointmentRepository) Create(db *gorm.DB, appointment *entity.Appointment) error {
	return db.Omit("Doctor").Create(appointment).Error
}

func (r *appointmentRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := db.Preload("Doctor").Where("id = ?", id).First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

// FindOverlapping uses the same half-open predicate as entity.Overlaps:
// start_time < end AND end_time > start.
func (r *appointmentRepository) FindOverlapping(db *gorm.DB, doctorID uuid.UUID, start, end time.Time, lock bool) ([]entity.Appointment, error) {
	query := db.Where("doctor_id = ? AND start_time < ? AND end_time > ? AND status <> ?",
		doctorID, end, start, entity.AppointmentStatusCancelled)
	if lock {
		query = query.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
	}

	var appointments []entity.Appointment
	if err := query.Order("start_time ASC").Find(&appointments).Error; err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) FindByDoctor(db *gorm.DB, doctorID uuid.UUID, filter *entity.AppointmentFilter) ([]entity.Appointment, error) {
	query := db.Where("doctor_id = ?", doctorID)

	if filter != nil {
		if filter.From != nil {
			query = query.Where("end_time > ?", *filter.From)
		}
		if filter.To != nil {
			query = query.Where("start_time < ?", *filter.To)
		}
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
	}

	var appointments []entity.Appointment
	if err := query.Order("start_time ASC").Find(&appointments).Error; err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) UpdateStatus(db *gorm.DB, appointment *entity.Appointment, expectedVersion int) (int64, error) {
	result := db.Model(&entity.Appointment{}).
		Where("id = ? AND version = ?", appointment.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":              appointment.Status,
			"cancelled_at":        appointment.CancelledAt,
			"cancellation_reason": appointment.CancellationReason,
			"version":             appointment.Version,
		})
	return result.RowsAffected, result.Error
}
