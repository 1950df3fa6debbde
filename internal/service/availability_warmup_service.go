package service

import (
	"context"
	"fmt"
	"time"

	"clinic-appointment-service/internal/domain/entity"
	"clinic-appointment-service/internal/domain/repository"

	"github.com/sirupsen/logrus"
)

// Doctors are processed in pages of this size, one cache pipeline per page.
const warmupBatchSize = 500

// AvailabilityWarmupService precomputes free slots for active doctors and
// loads them into the availability cache before traffic is accepted.
type AvailabilityWarmupService struct {
	txManager       repository.TransactionManager
	doctorRepo      repository.DoctorRepository
	appointmentRepo repository.AppointmentRepository
	cache           AvailabilityCache
	log             *logrus.Logger
	location        *time.Location
	now             func() time.Time
}

func NewAvailabilityWarmupService(
	txManager repository.TransactionManager,
	doctorRepo repository.DoctorRepository,
	appointmentRepo repository.AppointmentRepository,
	cache AvailabilityCache,
	log *logrus.Logger,
	location *time.Location,
	now func() time.Time,
) *AvailabilityWarmupService {
	return &AvailabilityWarmupService{
		txManager:       txManager,
		doctorRepo:      doctorRepo,
		appointmentRepo: appointmentRepo,
		cache:           cache,
		log:             log,
		location:        location,
		now:             now,
	}
}

// WarmUp caches availability for the next days calendar days, starting today
// in the clinic location. It returns the number of doctor days cached.
func (s *AvailabilityWarmupService) WarmUp(ctx context.Context, days int) (int, error) {
	if days <= 0 {
		return 0, nil
	}

	s.log.Infof("Warming availability cache for %d day(s)...", days)
	startTime := time.Now()

	y, m, d := s.now().In(s.location).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, s.location)

	db := s.txManager.DB(ctx)
	filter := &entity.DoctorFilter{SortBy: "created_at", SortDir: "asc", Page: 1, PerPage: warmupBatchSize}
	total := 0

	for {
		doctors, _, err := s.doctorRepo.FindAll(db, filter)
		if err != nil {
			return total, fmt.Errorf("query doctors page %d: %w", filter.Page, err)
		}
		if len(doctors) == 0 {
			break
		}

		entries := make([]AvailabilityEntry, 0, len(doctors)*days)
		for i := range doctors {
			doctor := &doctors[i]

			// Read before loading appointments; bookings committed after this
			// point make the entries below stale and they are skipped.
			generation, err := s.cache.Generation(ctx, doctor.ID)
			if err != nil {
				return total, err
			}

			for offset := 0; offset < days; offset++ {
				day := today.AddDate(0, 0, offset)
				hours, ok := doctor.WorkingHours.ForDate(day)
				if !ok {
					continue
				}

				dayStart, dayEnd := hours.Window(day)
				booked, err := s.appointmentRepo.FindOverlapping(db, doctor.ID, dayStart, dayEnd, false)
				if err != nil {
					return total, fmt.Errorf("load appointments for doctor %s: %w", doctor.ID, err)
				}

				slots, _ := entity.AvailableSlots(doctor.WorkingHours, day, booked)
				entries = append(entries, AvailabilityEntry{
					DoctorID:   doctor.ID,
					Date:       day.Format("2006-01-02"),
					Generation: generation,
					Slots:      slots,
				})
			}
		}

		if err := s.cache.SetMany(ctx, entries); err != nil {
			return total, err
		}
		total += len(entries)
		s.log.Debugf("Warmed batch: page=%d, doctors=%d, days=%d", filter.Page, len(doctors), len(entries))

		if len(doctors) < warmupBatchSize {
			break
		}
		filter.Page++

		// Respect context cancellation
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		default:
		}
	}

	s.log.Infof("Availability warm-up completed: %d doctor day(s) cached in %v", total, time.Since(startTime))
	return total, nil
}
