package repository

import (
	"errors"
	"fmt"

	"clinic-appointment-service/internal/domain/entity"
	domainRepo "clinic-appointment-service/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var doctorSortColumns = map[string]string{
	"name":           "name",
	"specialization": "specialization",
	"created_at":     "created_at",
}

type doctorRepository struct{}

func NewDoctorRepository() domainRepo.DoctorRepository {
	return &doctorRepository{}
}

func (r *doctorRepository) Create(db *gorm.DB, doctor *entity.Doctor) error {
	return db.Create(doctor).Error
}

func (r *doctorRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Doctor, error) {
	var doctor entity.Doctor
	err := db.Where("id = ?", id).First(&doctor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doctor, nil
}

func (r *doctorRepository) LockByID(db *gorm.DB, id uuid.UUID) (*entity.Doctor, error) {
	var doctor entity.Doctor
	err := db.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("id = ?", id).
		First(&doctor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doctor, nil
}

// FindAll returns active doctors only, filtered, sorted and paginated, plus
// the total number of matches before pagination.
func (r *doctorRepository) FindAll(db *gorm.DB, filter *entity.DoctorFilter) ([]entity.Doctor, int64, error) {
	query := db.Model(&entity.Doctor{}).Where("is_active = ?", true)

	if filter != nil {
		if filter.Specialization != "" {
			query = query.Where("specialization = ?", filter.Specialization)
		}
		if filter.Search != "" {
			query = query.Where("name ILIKE ?", "%"+filter.Search+"%")
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter != nil {
		if column, ok := doctorSortColumns[filter.SortBy]; ok {
			dir := "ASC"
			if filter.SortDir == "desc" {
				dir = "DESC"
			}
			query = query.Order(fmt.Sprintf("%s %s", column, dir))
		}
		if filter.PerPage > 0 {
			query = query.Limit(filter.PerPage).Offset(filter.Offset())
		}
	}

	var doctors []entity.Doctor
	if err := query.Find(&doctors).Error; err != nil {
		return nil, 0, err
	}
	return doctors, total, nil
}

func (r *doctorRepository) Update(db *gorm.DB, doctor *entity.Doctor) error {
	return db.Omit("Appointments").Save(doctor).Error
}

func (r *doctorRepository) Delete(db *gorm.DB, id uuid.UUID) (int64, error) {
	result := db.Where("id = ?", id).Delete(&entity.Doctor{})
	return result.RowsAffected, result.Error
}
