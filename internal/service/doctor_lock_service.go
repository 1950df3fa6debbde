package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// Interval for cleaning up stale locks
	lockCleanupInterval = 10 * time.Minute

	// How long a lock must be unused before cleanup
	lockStaleThreshold = 10 * time.Minute
)

// DoctorLockService serializes booking attempts for the same doctor inside
// this process, so concurrent requests queue here instead of piling up on
// the doctor's row lock in Postgres. The database lock stays authoritative.
//
// Lock ordering: in-process doctor lock first, then the DB transaction.
type DoctorLockService struct {
	log         *logrus.Logger
	waitTimeout time.Duration

	locks sync.Map // map[uuid.UUID]*doctorLock

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

// doctorLock is a one-slot semaphore so waiters can give up on ctx.Done.
type doctorLock struct {
	sem      chan struct{}
	lastUsed atomic.Int64 // Unix timestamp
}

// NewDoctorLockService starts the background cleanup goroutine.
// waitTimeout bounds how long Lock waits for a held lock; non-positive means
// wait until ctx is done. Call Stop() during graceful shutdown.
func NewDoctorLockService(log *logrus.Logger, waitTimeout time.Duration) *DoctorLockService {
	s := &DoctorLockService{
		log:         log,
		waitTimeout: waitTimeout,
		stopChan:    make(chan struct{}),
	}

	s.wg.Add(1)
	go s.cleanupLoop()

	return s
}

// Lock blocks until the doctor's lock is held, the wait timeout elapses
// (context.DeadlineExceeded) or ctx is done.
// The returned func releases the lock and must be called exactly once.
func (s *DoctorLockService) Lock(ctx context.Context, doctorID uuid.UUID) (func(), error) {
	if s.waitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.waitTimeout)
		defer cancel()
	}

	for {
		l := s.get(doctorID)

		select {
		case l.sem <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		// Cleanup may have evicted this entry between get and acquire;
		// holding an evicted semaphore would not exclude newer callers.
		if current, ok := s.locks.Load(doctorID); ok && current == l {
			l.lastUsed.Store(time.Now().Unix())
			var once sync.Once
			return func() {
				once.Do(func() { <-l.sem })
			}, nil
		}
		<-l.sem
	}
}

// Stop gracefully shuts down the service.
// Safe to call multiple times.
func (s *DoctorLockService) Stop() {
	if s.stopped.CompareAndSwap(false, true) {
		close(s.stopChan)
		s.wg.Wait()
		s.log.Info("DoctorLockService stopped")
	}
}

func (s *DoctorLockService) get(doctorID uuid.UUID) *doctorLock {
	l, _ := s.locks.LoadOrStore(doctorID, &doctorLock{sem: make(chan struct{}, 1)})
	result := l.(*doctorLock)
	result.lastUsed.Store(time.Now().Unix())
	return result
}

func (s *DoctorLockService) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(lockCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			s.log.Debug("Doctor lock cleanup goroutine stopping")
			return
		case <-ticker.C:
			s.cleanupStale(time.Now().Add(-lockStaleThreshold))
		}
	}
}

// cleanupStale removes idle locks unused since cutoff. A lock that is held
// cannot be acquired here and is skipped.
func (s *DoctorLockService) cleanupStale(cutoff time.Time) int {
	var cleaned int

	s.locks.Range(func(key, value any) bool {
		l, ok := value.(*doctorLock)
		if !ok {
			return true
		}

		select {
		case l.sem <- struct{}{}:
			if l.lastUsed.Load() < cutoff.Unix() {
				s.locks.Delete(key)
				cleaned++
			}
			<-l.sem
		default:
		}
		return true
	})

	if cleaned > 0 {
		s.log.Debugf("Cleaned up %d stale doctor locks", cleaned)
	}
	return cleaned
}
