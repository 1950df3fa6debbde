package usecase

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"clinic-appointment-service/internal/domain/entity"
	"clinic-appointment-service/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// memoryStore is an in-memory stand-in for Postgres. Transactions are fully
// serialized and roll back every write when fn fails.
type memoryStore struct {
	txMu   sync.Mutex
	dataMu sync.Mutex

	doctors      map[uuid.UUID]entity.Doctor
	appointments map[uuid.UUID]entity.Appointment
	auditLogs    []entity.AuditLog

	// Injected failures
	findErr          error
	lockErr          error
	createErr        error
	auditErr         error
	staleOnUpdate    bool
	overlappingCalls int
	lastDoctorFilter *entity.DoctorFilter
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		doctors:      make(map[uuid.UUID]entity.Doctor),
		appointments: make(map[uuid.UUID]entity.Appointment),
	}
}

func (s *memoryStore) readErr() error {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	return s.findErr
}

func (s *memoryStore) addDoctor(doctor entity.Doctor) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	s.doctors[doctor.ID] = doctor
}

func (s *memoryStore) addAppointment(appointment entity.Appointment) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	s.appointments[appointment.ID] = appointment
}

func (s *memoryStore) appointment(id uuid.UUID) (entity.Appointment, bool) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	a, ok := s.appointments[id]
	return a, ok
}

func (s *memoryStore) appointmentCount() int {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	return len(s.appointments)
}

func (s *memoryStore) auditActions() []string {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	actions := make([]string, len(s.auditLogs))
	for i, l := range s.auditLogs {
		actions[i] = l.Action
	}
	return actions
}

// memoryTxManager hands out nil *gorm.DB handles; the memory repositories
// ignore them.
type memoryTxManager struct {
	store *memoryStore
}

func (m *memoryTxManager) DB(ctx context.Context) *gorm.DB {
	return nil
}

func (m *memoryTxManager) WithinTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	m.store.txMu.Lock()
	defer m.store.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	m.store.dataMu.Lock()
	doctors := make(map[uuid.UUID]entity.Doctor, len(m.store.doctors))
	for k, v := range m.store.doctors {
		doctors[k] = v
	}
	appointments := make(map[uuid.UUID]entity.Appointment, len(m.store.appointments))
	for k, v := range m.store.appointments {
		appointments[k] = v
	}
	auditLen := len(m.store.auditLogs)
	m.store.dataMu.Unlock()

	if err := fn(nil); err != nil {
		m.store.dataMu.Lock()
		m.store.doctors = doctors
		m.store.appointments = appointments
		m.store.auditLogs = m.store.auditLogs[:auditLen]
		m.store.dataMu.Unlock()
		return err
	}
	return nil
}

type memoryDoctorRepo struct {
	store *memoryStore
}

func (r *memoryDoctorRepo) Create(db *gorm.DB, doctor *entity.Doctor) error {
	r.store.addDoctor(*doctor)
	return nil
}

func (r *memoryDoctorRepo) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Doctor, error) {
	r.store.dataMu.Lock()
	defer r.store.dataMu.Unlock()
	if r.store.findErr != nil {
		return nil, r.store.findErr
	}
	doctor, ok := r.store.doctors[id]
	if !ok {
		return nil, nil
	}
	return &doctor, nil
}

func (r *memoryDoctorRepo) LockByID(db *gorm.DB, id uuid.UUID) (*entity.Doctor, error) {
	if r.store.lockErr != nil {
		return nil, r.store.lockErr
	}
	return r.FindByID(db, id)
}

func (r *memoryDoctorRepo) FindAll(db *gorm.DB, filter *entity.DoctorFilter) ([]entity.Doctor, int64, error) {
	r.store.dataMu.Lock()
	defer r.store.dataMu.Unlock()

	copied := *filter
	r.store.lastDoctorFilter = &copied

	var doctors []entity.Doctor
	for _, d := range r.store.doctors {
		if d.Active() {
			doctors = append(doctors, d)
		}
	}
	sort.Slice(doctors, func(i, j int) bool { return doctors[i].Name < doctors[j].Name })

	total := int64(len(doctors))
	start := filter.Offset()
	if start > len(doctors) {
		start = len(doctors)
	}
	end := start + filter.PerPage
	if end > len(doctors) {
		end = len(doctors)
	}
	return doctors[start:end], total, nil
}

func (r *memoryDoctorRepo) Update(db *gorm.DB, doctor *entity.Doctor) error {
	r.store.addDoctor(*doctor)
	return nil
}

func (r *memoryDoctorRepo) Delete(db *gorm.DB, id uuid.UUID) (int64, error) {
	r.store.dataMu.Lock()
	defer r.store.dataMu.Unlock()
	if _, ok := r.store.doctors[id]; !ok {
		return 0, nil
	}
	delete(r.store.doctors, id)
	return 1, nil
}

type memoryAppointmentRepo struct {
	store *memoryStore
}

func (r *memoryAppointmentRepo) Create(db *gorm.DB, appointment *entity.Appointment) error {
	if r.store.createErr != nil {
		return r.store.createErr
	}
	stored := *appointment
	stored.Doctor = nil
	r.store.addAppointment(stored)
	return nil
}

func (r *memoryAppointmentRepo) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	if err := r.store.readErr(); err != nil {
		return nil, err
	}
	appointment, ok := r.store.appointment(id)
	if !ok {
		return nil, nil
	}
	return &appointment, nil
}

func (r *memoryAppointmentRepo) FindOverlapping(db *gorm.DB, doctorID uuid.UUID, start, end time.Time, lock bool) ([]entity.Appointment, error) {
	r.store.dataMu.Lock()
	defer r.store.dataMu.Unlock()
	r.store.overlappingCalls++

	var out []entity.Appointment
	for _, a := range r.store.appointments {
		if a.DoctorID != doctorID || a.IsCancelled() {
			continue
		}
		if entity.Overlaps(a.StartTime, a.EndTime, start, end) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *memoryAppointmentRepo) FindByDoctor(db *gorm.DB, doctorID uuid.UUID, filter *entity.AppointmentFilter) ([]entity.Appointment, error) {
	r.store.dataMu.Lock()
	defer r.store.dataMu.Unlock()

	var out []entity.Appointment
	for _, a := range r.store.appointments {
		if a.DoctorID != doctorID {
			continue
		}
		if filter.From != nil && !a.EndTime.After(*filter.From) {
			continue
		}
		if filter.To != nil && !a.StartTime.Before(*filter.To) {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *memoryAppointmentRepo) UpdateStatus(db *gorm.DB, appointment *entity.Appointment, expectedVersion int) (int64, error) {
	r.store.dataMu.Lock()
	defer r.store.dataMu.Unlock()

	stored, ok := r.store.appointments[appointment.ID]
	if !ok || stored.Version != expectedVersion || r.store.staleOnUpdate {
		return 0, nil
	}
	stored.Status = appointment.Status
	stored.CancelledAt = appointment.CancelledAt
	stored.CancellationReason = appointment.CancellationReason
	stored.Version = appointment.Version
	r.store.appointments[appointment.ID] = stored
	return 1, nil
}

type memoryAuditLogRepo struct {
	store *memoryStore
}

func (r *memoryAuditLogRepo) Create(db *gorm.DB, log *entity.AuditLog) error {
	if r.store.auditErr != nil {
		return r.store.auditErr
	}
	r.store.dataMu.Lock()
	defer r.store.dataMu.Unlock()
	log.ID = int64(len(r.store.auditLogs) + 1)
	r.store.auditLogs = append(r.store.auditLogs, *log)
	return nil
}

func (r *memoryAuditLogRepo) FindAll(db *gorm.DB, entityName, entityID string) ([]entity.AuditLog, error) {
	r.store.dataMu.Lock()
	defer r.store.dataMu.Unlock()

	var out []entity.AuditLog
	for _, l := range r.store.auditLogs {
		if entityName != "" && l.EntityName != entityName {
			continue
		}
		if entityID != "" && l.EntityID != entityID {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (r *memoryAuditLogRepo) FindByID(db *gorm.DB, id int64) (*entity.AuditLog, error) {
	r.store.dataMu.Lock()
	defer r.store.dataMu.Unlock()
	for _, l := range r.store.auditLogs {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, nil
}

// memoryCache is a map-backed AvailabilityCache that records invalidations.
// Writes carrying a generation older than the doctor's current one are dropped.
type memoryCache struct {
	mu                 sync.Mutex
	entries            map[string][]entity.Slot
	generations        map[uuid.UUID]int64
	invalidated        []string
	invalidatedDoctors []uuid.UUID

	// beforeSet runs at the start of Set, outside the mutex.
	beforeSet func()
}

func newMemoryCache() *memoryCache {
	return &memoryCache{
		entries:     make(map[string][]entity.Slot),
		generations: make(map[uuid.UUID]int64),
	}
}

func cacheKey(doctorID uuid.UUID, date string) string {
	return doctorID.String() + ":" + date
}

func (c *memoryCache) Get(ctx context.Context, doctorID uuid.UUID, date string) ([]entity.Slot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	slots, ok := c.entries[cacheKey(doctorID, date)]
	return slots, ok, nil
}

func (c *memoryCache) Generation(ctx context.Context, doctorID uuid.UUID) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[doctorID], nil
}

func (c *memoryCache) Set(ctx context.Context, doctorID uuid.UUID, date string, generation int64, slots []entity.Slot) error {
	if c.beforeSet != nil {
		c.beforeSet()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[doctorID] != generation {
		return nil
	}
	c.entries[cacheKey(doctorID, date)] = slots
	return nil
}

func (c *memoryCache) SetMany(ctx context.Context, entries []service.AvailabilityEntry) error {
	for _, e := range entries {
		if err := c.Set(ctx, e.DoctorID, e.Date, e.Generation, e.Slots); err != nil {
			return err
		}
	}
	return nil
}

func (c *memoryCache) Invalidate(ctx context.Context, doctorID uuid.UUID, dates ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[doctorID]++
	for _, date := range dates {
		key := cacheKey(doctorID, date)
		delete(c.entries, key)
		c.invalidated = append(c.invalidated, key)
	}
	return nil
}

func (c *memoryCache) InvalidateDoctor(ctx context.Context, doctorID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[doctorID]++
	prefix := doctorID.String() + ":"
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	c.invalidatedDoctors = append(c.invalidatedDoctors, doctorID)
	return nil
}

func (c *memoryCache) invalidations() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.invalidated...)
}

// testEnv wires the usecases against the memory store.
type testEnv struct {
	t           *testing.T
	store       *memoryStore
	cache       *memoryCache
	lockService *service.DoctorLockService
	now         time.Time

	appointments AppointmentUsecase
	availability AvailabilityUsecase
	doctors      DoctorUsecase
	auditLogs    AuditLogUsecase
}

// 2025-01-06 is a Monday; the clock sits on the previous Wednesday.
var (
	testMonday = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	testNow    = time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
)

const testLockWait = 200 * time.Millisecond

func newTestEnv(t *testing.T) *testEnv {
	log := newTestLogger()
	store := newMemoryStore()
	cache := newMemoryCache()
	lockService := service.NewDoctorLockService(log, testLockWait)
	t.Cleanup(lockService.Stop)

	env := &testEnv{
		t:           t,
		store:       store,
		cache:       cache,
		lockService: lockService,
		now:         testNow,
	}

	txManager := &memoryTxManager{store: store}
	doctorRepo := &memoryDoctorRepo{store: store}
	appointmentRepo := &memoryAppointmentRepo{store: store}
	auditRepo := &memoryAuditLogRepo{store: store}
	auditService := service.NewAuditService(log, auditRepo)
	clock := func() time.Time { return env.now }

	env.appointments = NewAppointmentUsecase(txManager, log, doctorRepo, appointmentRepo, auditService, lockService, cache, time.UTC, clock)
	env.availability = NewAvailabilityUsecase(txManager, log, doctorRepo, appointmentRepo, cache, time.UTC)
	env.doctors = NewDoctorUsecase(txManager, log, doctorRepo, auditService, cache)
	env.auditLogs = NewAuditLogUsecase(txManager, log, auditRepo)
	return env
}

func (e *testEnv) addDoctor(active bool, hours map[string][]string) entity.Doctor {
	parsed, err := entity.ParseWorkingHours(hours)
	require.NoError(e.t, err)
	doctor := entity.Doctor{
		ID:             uuid.New(),
		Name:           "Dr. Smith",
		Specialization: "cardiology",
		IsActive:       &active,
		WorkingHours:   parsed,
	}
	e.store.addDoctor(doctor)
	return doctor
}

func (e *testEnv) addMondayDoctor() entity.Doctor {
	return e.addDoctor(true, map[string][]string{"monday": {"09:00", "17:00"}})
}

func (e *testEnv) addBooking(doctorID uuid.UUID, start time.Time, status entity.AppointmentStatus) entity.Appointment {
	appointment := entity.Appointment{
		ID:          uuid.New(),
		DoctorID:    doctorID,
		PatientName: "Existing Patient",
		StartTime:   start,
		EndTime:     start.Add(entity.SlotDuration),
		Status:      status,
		Version:     1,
	}
	e.store.addAppointment(appointment)
	return appointment
}

func mondayAt(h, m int) time.Time {
	return time.Date(2025, 1, 6, h, m, 0, 0, time.UTC)
}
