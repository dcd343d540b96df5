package repository

import (
	"github.com/yourusername/vehicle-api/internal/domain/entity"
)

// VehicleFilter задает фильтр и пагинацию для списка транспортных средств
type VehicleFilter struct {
	VehicleType entity.VehicleType
	Limit       int
	Offset      int
}

// VehicleRepository определяет методы для работы с транспортными средствами
type VehicleRepository interface {
	Create(vehicle *entity.Vehicle) error
	GetByID(id uint) (*entity.Vehicle, error)
	Update(vehicle *entity.Vehicle) error
	Delete(id uint) error
	ExistsByNumber(number string, excludeID uint) (bool, error)
	// List возвращает страницу записей и общее количество по фильтру
	List(filter VehicleFilter) ([]entity.Vehicle, int64, error)
}
