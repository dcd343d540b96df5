package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yourusername/vehicle-api/internal/domain/entity"
	"github.com/yourusername/vehicle-api/internal/domain/repository"
	apperrors "github.com/yourusername/vehicle-api/internal/pkg/errors"
)

// VehicleRepo реализует repository.VehicleRepository
type VehicleRepo struct {
	db *gorm.DB
}

// NewVehicleRepo создает новый репозиторий транспортных средств
func NewVehicleRepo(db *gorm.DB) *VehicleRepo {
	return &VehicleRepo{db: db}
}

// Create создает запись
func (r *VehicleRepo) Create(vehicle *entity.Vehicle) error {
	if err := r.db.Create(vehicle).Error; err != nil {
		return translateVehicleWriteError(err)
	}
	return nil
}

// GetByID возвращает запись по ID
func (r *VehicleRepo) GetByID(id uint) (*entity.Vehicle, error) {
	var vehicle entity.Vehicle
	err := r.db.First(&vehicle, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &vehicle, nil
}

// Update сохраняет изменения записи
func (r *VehicleRepo) Update(vehicle *entity.Vehicle) error {
	result := r.db.Model(vehicle).
		Select("vehicle_number", "vehicle_type", "vehicle_model", "vehicle_description", "updated_at").
		Updates(vehicle)
	if result.Error != nil {
		return translateVehicleWriteError(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Delete удаляет запись
func (r *VehicleRepo) Delete(id uint) error {
	result := r.db.Delete(&entity.Vehicle{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ExistsByNumber проверяет, занят ли номер другой записью (excludeID = 0: без исключений)
func (r *VehicleRepo) ExistsByNumber(number string, excludeID uint) (bool, error) {
	var count int64
	query := r.db.Model(&entity.Vehicle{}).Where("vehicle_number = ?", number)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// List возвращает страницу записей и общее количество
func (r *VehicleRepo) List(filter repository.VehicleFilter) ([]entity.Vehicle, int64, error) {
	var vehicles []entity.Vehicle
	var total int64

	// Используем транзакцию для согласованности данных и общего количества
	err := r.db.Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&entity.Vehicle{})
		if filter.VehicleType != "" {
			query = query.Where("vehicle_type = ?", filter.VehicleType)
		}
		if err := query.Count(&total).Error; err != nil {
			return err
		}

		query = query.Order("id ASC")
		if filter.Limit > 0 {
			query = query.Limit(filter.Limit).Offset(filter.Offset)
		}
		return query.Find(&vehicles).Error
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list vehicles: %w", err)
	}
	return vehicles, total, nil
}

func translateVehicleWriteError(err error) error {
	if isUniqueViolation(err) {
		return repository.ErrDuplicateVehicleNumber
	}
	return err
}

var _ repository.VehicleRepository = (*VehicleRepo)(nil)
