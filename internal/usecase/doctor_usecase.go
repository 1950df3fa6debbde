package usecase

import (
	"context"
	"errors"
	"regexp"
	"strings"

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
	ErrDoctorNotFound          = errors.New("doctor not found")
	ErrInvalidWorkingHours     = errors.New("invalid working hours")
	defaultDoctorsPerPage      = 15
	searchDisallowedCharacters = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
)

type DoctorUsecase interface {
	CreateDoctor(ctx context.Context, req *dto.CreateDoctorRequest) (*dto.DoctorResponse, error)
	GetDoctor(ctx context.Context, doctorID uuid.UUID) (*dto.DoctorResponse, error)
	GetAllDoctors(ctx context.Context, req *dto.ListDoctorsRequest) (*dto.DoctorListResponse, error)
	UpdateDoctor(ctx context.Context, doctorID uuid.UUID, req *dto.UpdateDoctorRequest) (*dto.DoctorResponse, error)
	DeleteDoctor(ctx context.Context, doctorID uuid.UUID) error
}

type doctorUsecase struct {
	txManager    repository.TransactionManager
	log          *logrus.Logger
	doctorRepo   repository.DoctorRepository
	auditService service.AuditService
	cache        service.AvailabilityCache
}

func NewDoctorUsecase(
	txManager repository.TransactionManager,
	log *logrus.Logger,
	doctorRepo repository.DoctorRepository,
	auditService service.AuditService,
	cache service.AvailabilityCache,
) DoctorUsecase {
	return &doctorUsecase{
		txManager:    txManager,
		log:          log,
		doctorRepo:   doctorRepo,
		auditService: auditService,
		cache:        cache,
	}
}

func (u *doctorUsecase) CreateDoctor(ctx context.Context, req *dto.CreateDoctorRequest) (*dto.DoctorResponse, error) {
	hours, err := entity.ParseWorkingHours(req.WorkingHours)
	if err != nil {
		return nil, errors.Join(ErrInvalidWorkingHours, err)
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	doctor := &entity.Doctor{
		ID:             uuid.New(),
		Name:           req.Name,
		Specialization: req.Specialization,
		Email:          req.Email,
		Phone:          req.Phone,
		IsActive:       &active,
		WorkingHours:   hours,
	}

	err = u.txManager.WithinTransaction(ctx, func(tx *gorm.DB) error {
		if err := u.doctorRepo.Create(tx, doctor); err != nil {
			return err
		}
		return u.auditService.LogCreate(ctx, tx, entity.AuditActionDoctorCreate, "doctor", doctor.ID.String(), converter.DoctorToResponse(doctor))
	})
	if err != nil {
		u.log.Warnf("Failed to create doctor: %+v", err)
		return nil, translateStoreError(err)
	}

	u.log.Infof("Doctor created: id=%s", doctor.ID)
	return converter.DoctorToResponse(doctor), nil
}

func (u *doctorUsecase) GetDoctor(ctx context.Context, doctorID uuid.UUID) (*dto.DoctorResponse, error) {
	doctor, err := u.doctorRepo.FindByID(u.txManager.DB(ctx), doctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor: %+v", err)
		return nil, translateStoreError(err)
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}

	return converter.DoctorToResponse(doctor), nil
}

func (u *doctorUsecase) GetAllDoctors(ctx context.Context, req *dto.ListDoctorsRequest) (*dto.DoctorListResponse, error) {
	filter := &entity.DoctorFilter{
		Specialization: req.Specialization,
		Search:         sanitizeSearch(req.Search),
		SortBy:         req.SortBy,
		SortDir:        req.SortDir,
		Page:           req.Page,
		PerPage:        req.PerPage,
	}
	if filter.SortBy == "" {
		filter.SortBy = "name"
	}
	if filter.SortDir == "" {
		filter.SortDir = "asc"
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 {
		filter.PerPage = defaultDoctorsPerPage
	}

	doctors, total, err := u.doctorRepo.FindAll(u.txManager.DB(ctx), filter)
	if err != nil {
		u.log.Warnf("Failed to find all doctors: %+v", err)
		return nil, translateStoreError(err)
	}

	return &dto.DoctorListResponse{
		Doctors: converter.DoctorsToResponses(doctors),
		Total:   total,
		Page:    filter.Page,
		PerPage: filter.PerPage,
	}, nil
}

func (u *doctorUsecase) UpdateDoctor(ctx context.Context, doctorID uuid.UUID, req *dto.UpdateDoctorRequest) (*dto.DoctorResponse, error) {
	var hours *entity.WorkingHours
	if req.WorkingHours != nil {
		parsed, err := entity.ParseWorkingHours(req.WorkingHours)
		if err != nil {
			return nil, errors.Join(ErrInvalidWorkingHours, err)
		}
		hours = &parsed
	}

	var updated *entity.Doctor
	err := u.txManager.WithinTransaction(ctx, func(tx *gorm.DB) error {
		// Row lock keeps working-hours edits from interleaving with bookings.
		doctor, err := u.doctorRepo.LockByID(tx, doctorID)
		if err != nil {
			return err
		}
		if doctor == nil {
			return ErrDoctorNotFound
		}

		// Capture old value for audit
		oldValue := converter.DoctorToResponse(doctor)

		if req.Name != nil {
			doctor.Name = *req.Name
		}
		if req.Specialization != nil {
			doctor.Specialization = *req.Specialization
		}
		if req.Email != nil {
			doctor.Email = *req.Email
		}
		if req.Phone != nil {
			doctor.Phone = *req.Phone
		}
		if req.IsActive != nil {
			active := *req.IsActive
			doctor.IsActive = &active
		}
		if hours != nil {
			doctor.WorkingHours = *hours
		}

		if err := u.doctorRepo.Update(tx, doctor); err != nil {
			return err
		}
		if err := u.auditService.LogUpdate(ctx, tx, entity.AuditActionDoctorUpdate, "doctor", doctorID.String(), oldValue, converter.DoctorToResponse(doctor)); err != nil {
			return err
		}

		updated = doctor
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrDoctorNotFound) {
			u.log.Warnf("Failed to update doctor %s: %+v", doctorID, err)
		}
		return nil, translateStoreError(err)
	}

	if err := u.cache.InvalidateDoctor(ctx, doctorID); err != nil {
		u.log.Warnf("Failed to invalidate availability cache for doctor %s (non-fatal): %+v", doctorID, err)
	}

	return converter.DoctorToResponse(updated), nil
}

func (u *doctorUsecase) DeleteDoctor(ctx context.Context, doctorID uuid.UUID) error {
	err := u.txManager.WithinTransaction(ctx, func(tx *gorm.DB) error {
		// Get doctor for audit log before delete
		doctor, err := u.doctorRepo.LockByID(tx, doctorID)
		if err != nil {
			return err
		}
		if doctor == nil {
			return ErrDoctorNotFound
		}
		oldValue := converter.DoctorToResponse(doctor)

		affectedRows, err := u.doctorRepo.Delete(tx, doctorID)
		if err != nil {
			return err
		}
		if affectedRows == 0 {
			return ErrDoctorNotFound
		}

		return u.auditService.LogDelete(ctx, tx, entity.AuditActionDoctorDelete, "doctor", doctorID.String(), oldValue)
	})
	if err != nil {
		if !errors.Is(err, ErrDoctorNotFound) {
			u.log.Warnf("Failed to delete doctor %s: %+v", doctorID, err)
		}
		return translateStoreError(err)
	}

	if err := u.cache.InvalidateDoctor(ctx, doctorID); err != nil {
		u.log.Warnf("Failed to invalidate availability cache for doctor %s (non-fatal): %+v", doctorID, err)
	}

	return nil
}

// sanitizeSearch keeps letters, digits and whitespace only.
func sanitizeSearch(search string) string {
	return strings.TrimSpace(searchDisallowedCharacters.ReplaceAllString(search, ""))
}
