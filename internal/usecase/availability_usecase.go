package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clinic-appointment-service/internal/converter"
	"clinic-appointment-service/internal/delivery/dto"
	"clinic-appointment-service/internal/domain/entity"
	"clinic-appointment-service/internal/domain/repository"
	"clinic-appointment-service/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrDoctorUnavailable    = errors.New("doctor is not currently active")
	ErrNoWorkingHoursForDay = fmt.Errorf("%w: doctor does not work on that day", ErrOutsideWorkingHours)
	ErrInvalidDateFormat    = errors.New("invalid date format, use YYYY-MM-DD")
)

type AvailabilityUsecase interface {
	// GetAvailableSlots computes the free 30-minute slots of a doctor on date.
	// For ErrDoctorUnavailable and ErrNoWorkingHoursForDay the response is still
	// returned, with an empty slot list, so the caller decides how severe they are.
	GetAvailableSlots(ctx context.Context, doctorID uuid.UUID, date string) (*dto.AvailabilityResponse, error)
}

type availabilityUsecase struct {
	txManager       repository.TransactionManager
	log             *logrus.Logger
	doctorRepo      repository.DoctorRepository
	appointmentRepo repository.AppointmentRepository
	cache           service.AvailabilityCache
	location        *time.Location
}

func NewAvailabilityUsecase(
	txManager repository.TransactionManager,
	log *logrus.Logger,
	doctorRepo repository.DoctorRepository,
	appointmentRepo repository.AppointmentRepository,
	cache service.AvailabilityCache,
	location *time.Location,
) AvailabilityUsecase {
	return &availabilityUsecase{
		txManager:       txManager,
		log:             log,
		doctorRepo:      doctorRepo,
		appointmentRepo: appointmentRepo,
		cache:           cache,
		location:        location,
	}
}

func (u *availabilityUsecase) GetAvailableSlots(ctx context.Context, doctorID uuid.UUID, date string) (*dto.AvailabilityResponse, error) {
	day, err := time.ParseInLocation(dateLayout, date, u.location)
	if err != nil {
		return nil, ErrInvalidDateFormat
	}

	db := u.txManager.DB(ctx)

	doctor, err := u.doctorRepo.FindByID(db, doctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", doctorID, err)
		return nil, translateStoreError(err)
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}

	response := &dto.AvailabilityResponse{
		Doctor: *converter.DoctorToSummary(doctor),
		Date:   day.Format(dateLayout),
		Slots:  []dto.SlotResponse{},
	}

	if !doctor.Active() {
		return response, ErrDoctorUnavailable
	}

	hours, ok := doctor.WorkingHours.ForDate(day)
	if !ok {
		return response, fmt.Errorf("%w (%s)", ErrNoWorkingHoursForDay, entity.WeekdayName(day.Weekday()))
	}

	slots, hit, err := u.cache.Get(ctx, doctorID, response.Date)
	if err != nil {
		u.log.Warnf("Availability cache read failed (non-fatal): %+v", err)
	}

	if !hit {
		// Captured before the read so an invalidation in between wins.
		generation, genErr := u.cache.Generation(ctx, doctorID)
		if genErr != nil {
			u.log.Warnf("Availability cache generation read failed (non-fatal): %+v", genErr)
		}

		dayStart, dayEnd := hours.Window(day)
		booked, err := u.appointmentRepo.FindOverlapping(db, doctorID, dayStart, dayEnd, false)
		if err != nil {
			u.log.Warnf("Failed to load appointments for doctor %s on %s: %+v", doctorID, response.Date, err)
			return nil, translateStoreError(err)
		}

		slots, _ = entity.AvailableSlots(doctor.WorkingHours, day, booked)

		if genErr == nil {
			if err := u.cache.Set(ctx, doctorID, response.Date, generation, slots); err != nil {
				u.log.Warnf("Availability cache write failed (non-fatal): %+v", err)
			}
		}
	}

	response.Slots = converter.SlotsToResponses(slots, u.location)
	return response, nil
}
