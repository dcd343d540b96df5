package dto

import (
	"time"

	"github.com/yourusername/vehicle-api/internal/domain/entity"
)

// VehicleDTO: представление записи о транспортном средстве
type VehicleDTO struct {
	ID               uint      `json:"id"`
	VehicleNumber    string    `json:"vehicle_number"`
	VehicleType      string    `json:"vehicle_type"`
	VehicleTypeLabel string    `json:"vehicle_type_label"`
	Model            string    `json:"model"`
	Description      string    `json:"description"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewVehicleDTO строит VehicleDTO из сущности
func NewVehicleDTO(v *entity.Vehicle) VehicleDTO {
	return VehicleDTO{
		ID:               v.ID,
		VehicleNumber:    v.VehicleNumber,
		VehicleType:      string(v.VehicleType),
		VehicleTypeLabel: v.VehicleType.Label(),
		Model:            v.Model,
		Description:      v.Description,
		CreatedAt:        v.CreatedAt,
		UpdatedAt:        v.UpdatedAt,
	}
}

// PaginatedVehiclesResponse: страница списка записей
type PaginatedVehiclesResponse struct {
	Vehicles []VehicleDTO `json:"vehicles"`
	Total    int64        `json:"total"`
	Page     int          `json:"page"`
	PerPage  int          `json:"per_page"`
}
