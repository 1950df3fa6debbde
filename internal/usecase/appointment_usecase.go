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
	"gorm.io/gorm"
)

var (
	ErrDoctorInactive          = errors.New("cannot book with an inactive doctor")
	ErrOutsideWorkingHours     = errors.New("appointment must be within working hours")
	ErrSlotAlreadyBooked       = errors.New("this time slot is already booked for the selected doctor")
	ErrTransientStoreFailure   = errors.New("appointment store is temporarily unavailable")
	ErrAppointmentNotFound     = errors.New("appointment not found")
	ErrAppointmentInPast       = errors.New("appointment must start in the future")
	ErrInvalidTimeRange        = errors.New("end time must be after start time")
	ErrInvalidDateTimeFormat   = errors.New("invalid date-time format, use RFC3339 or YYYY-MM-DD HH:MM")
	ErrVersionConflict         = errors.New("appointment was modified concurrently")
	ErrInvalidStatusTransition = entity.ErrInvalidStatusTransition
)

type AppointmentUsecase interface {
	BookAppointment(ctx context.Context, req *dto.BookAppointmentRequest) (*dto.AppointmentResponse, error)
	GetAppointment(ctx context.Context, appointmentID uuid.UUID) (*dto.AppointmentResponse, error)
	GetDoctorAppointments(ctx context.Context, doctorID uuid.UUID, req *dto.ListAppointmentsRequest) (*dto.AppointmentListResponse, error)
	ConfirmAppointment(ctx context.Context, appointmentID uuid.UUID) (*dto.AppointmentResponse, error)
	CancelAppointment(ctx context.Context, appointmentID uuid.UUID, req *dto.CancelAppointmentRequest) (*dto.AppointmentResponse, error)
	CompleteAppointment(ctx context.Context, appointmentID uuid.UUID) (*dto.AppointmentResponse, error)
	MarkNoShow(ctx context.Context, appointmentID uuid.UUID) (*dto.AppointmentResponse, error)
}

type appointmentUsecase struct {
	txManager         repository.TransactionManager
	log               *logrus.Logger
	doctorRepo        repository.DoctorRepository
	appointmentRepo   repository.AppointmentRepository
	auditService      service.AuditService
	doctorLockService *service.DoctorLockService
	cache             service.AvailabilityCache
	location          *time.Location
	now               Clock
}

func NewAppointmentUsecase(
	txManager repository.TransactionManager,
	log *logrus.Logger,
	doctorRepo repository.DoctorRepository,
	appointmentRepo repository.AppointmentRepository,
	auditService service.AuditService,
	doctorLockService *service.DoctorLockService,
	cache service.AvailabilityCache,
	location *time.Location,
	now Clock,
) AppointmentUsecase {
	return &appointmentUsecase{
		txManager:         txManager,
		log:               log,
		doctorRepo:        doctorRepo,
		appointmentRepo:   appointmentRepo,
		auditService:      auditService,
		doctorLockService: doctorLockService,
		cache:             cache,
		location:          location,
		now:               now,
	}
}

// BookAppointment creates a scheduled appointment without ever overlapping
// another live appointment of the same doctor.
//
// Flow:
//  1. Parse times, resolve the doctor, reject inactive doctors
//  2. Default end time, validate range and working hours (fast fail)
//  3. Take the in-process doctor lock
//  4. In one transaction: lock the doctor row, re-check the doctor, select
//     overlapping appointments FOR UPDATE, insert if none, write audit entry
//  5. Invalidate the cached availability of that day
func (u *appointmentUsecase) BookAppointment(ctx context.Context, req *dto.BookAppointmentRequest) (*dto.AppointmentResponse, error) {
	startTime, err := parseDateTime(req.StartTime, u.location)
	if err != nil {
		return nil, ErrInvalidDateTimeFormat
	}
	var endTime *time.Time
	if req.EndTime != "" {
		parsed, err := parseDateTime(req.EndTime, u.location)
		if err != nil {
			return nil, ErrInvalidDateTimeFormat
		}
		endTime = &parsed
	}

	// Step 1: Resolve doctor
	doctor, err := u.doctorRepo.FindByID(u.txManager.DB(ctx), req.DoctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", req.DoctorID, err)
		return nil, translateStoreError(err)
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}
	if !doctor.Active() {
		return nil, ErrDoctorInactive
	}

	// Step 2: Apply defaults and validate against the doctor's hours
	appointment := entity.NewAppointment(entity.NewAppointmentParams{
		DoctorID:     doctor.ID,
		PatientName:  req.PatientName,
		PatientEmail: req.PatientEmail,
		PatientPhone: req.PatientPhone,
		StartTime:    startTime,
		EndTime:      endTime,
		Notes:        req.Notes,
	})
	if !appointment.EndTime.After(appointment.StartTime) {
		return nil, ErrInvalidTimeRange
	}
	if !appointment.StartTime.After(u.now()) {
		return nil, ErrAppointmentInPast
	}
	if err := u.checkBookable(doctor, appointment.StartTime, appointment.EndTime); err != nil {
		return nil, err
	}

	// Step 3: Queue behind other bookings for this doctor in this process
	unlock, err := u.doctorLockService.Lock(ctx, doctor.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransientStoreFailure, err)
	}
	defer unlock()

	// Step 4: Authoritative check and insert under the row lock
	err = u.txManager.WithinTransaction(ctx, func(tx *gorm.DB) error {
		locked, err := u.doctorRepo.LockByID(tx, doctor.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrDoctorNotFound
		}
		if !locked.Active() {
			return ErrDoctorInactive
		}
		if err := u.checkBookable(locked, appointment.StartTime, appointment.EndTime); err != nil {
			return err
		}

		overlapping, err := u.appointmentRepo.FindOverlapping(tx, locked.ID, appointment.StartTime, appointment.EndTime, true)
		if err != nil {
			return err
		}
		if len(overlapping) > 0 {
			return ErrSlotAlreadyBooked
		}

		if err := u.appointmentRepo.Create(tx, appointment); err != nil {
			return err
		}

		return u.auditService.LogCreate(ctx, tx, entity.AuditActionAppointmentBook, "appointment", appointment.ID.String(), converter.AppointmentToResponse(appointment))
	})
	if err != nil {
		err = translateStoreError(err)
		if errors.Is(err, ErrSlotAlreadyBooked) {
			u.log.Infof("Booking rejected, slot taken: doctor=%s start=%s", doctor.ID, appointment.StartTime.Format(time.RFC3339))
		} else {
			u.log.Warnf("Failed to book appointment for doctor %s: %+v", doctor.ID, err)
		}
		return nil, err
	}

	// Step 5: Drop cached availability for the affected day
	u.invalidateAvailability(ctx, appointment)

	appointment.Doctor = doctor
	u.log.Infof("Appointment booked: id=%s, doctor=%s, start=%s", appointment.ID, doctor.ID, appointment.StartTime.Format(time.RFC3339))
	return converter.AppointmentToResponse(appointment), nil
}

func (u *appointmentUsecase) GetAppointment(ctx context.Context, appointmentID uuid.UUID) (*dto.AppointmentResponse, error) {
	appointment, err := u.appointmentRepo.FindByID(u.txManager.DB(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
		return nil, translateStoreError(err)
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}

	return converter.AppointmentToResponse(appointment), nil
}

func (u *appointmentUsecase) GetDoctorAppointments(ctx context.Context, doctorID uuid.UUID, req *dto.ListAppointmentsRequest) (*dto.AppointmentListResponse, error) {
	db := u.txManager.DB(ctx)

	doctor, err := u.doctorRepo.FindByID(db, doctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor %s: %+v", doctorID, err)
		return nil, translateStoreError(err)
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}

	filter := &entity.AppointmentFilter{Status: entity.AppointmentStatus(req.Status)}
	if req.Date != "" {
		day, err := time.ParseInLocation(dateLayout, req.Date, u.location)
		if err != nil {
			return nil, ErrInvalidDateFormat
		}
		next := day.AddDate(0, 0, 1)
		filter.From = &day
		filter.To = &next
	}

	appointments, err := u.appointmentRepo.FindByDoctor(db, doctorID, filter)
	if err != nil {
		u.log.Warnf("Failed to list appointments for doctor %s: %+v", doctorID, err)
		return nil, translateStoreError(err)
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

// checkBookable validates [start, end) against the doctor's working hours for
// the weekday of start in the clinic location.
func (u *appointmentUsecase) checkBookable(doctor *entity.Doctor, start, end time.Time) error {
	start, end = start.In(u.location), end.In(u.location)

	hours, ok := doctor.WorkingHours.ForDate(start)
	if !ok {
		return fmt.Errorf("%w (%s)", ErrNoWorkingHoursForDay, entity.WeekdayName(start.Weekday()))
	}
	if !hours.Contains(start, end) {
		return ErrOutsideWorkingHours
	}
	return nil
}

func (u *appointmentUsecase) invalidateAvailability(ctx context.Context, appointment *entity.Appointment) {
	dates := []string{appointment.StartTime.In(u.location).Format(dateLayout)}
	if endDate := appointment.EndTime.In(u.location).Format(dateLayout); endDate != dates[0] {
		dates = append(dates, endDate)
	}

	if err := u.cache.Invalidate(ctx, appointment.DoctorID, dates...); err != nil {
		u.log.Warnf("Failed to invalidate availability cache for doctor %s (non-fatal): %+v", appointment.DoctorID, err)
	}
}
