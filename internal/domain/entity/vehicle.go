package entity

import "time"

// VehicleType: тип транспортного средства по количеству колес
type VehicleType string

const (
	VehicleTypeTwo   VehicleType = "Two"
	VehicleTypeThree VehicleType = "Three"
	VehicleTypeFour  VehicleType = "Four"
)

// VehicleTypes перечисляет все допустимые типы
var VehicleTypes = []VehicleType{VehicleTypeTwo, VehicleTypeThree, VehicleTypeFour}

// IsValid проверяет, что тип входит в перечисление
func (t VehicleType) IsValid() bool {
	switch t {
	case VehicleTypeTwo, VehicleTypeThree, VehicleTypeFour:
		return true
	default:
		return false
	}
}

// Label возвращает человекочитаемое название типа
func (t VehicleType) Label() string {
	switch t {
	case VehicleTypeTwo:
		return "Two Wheeler"
	case VehicleTypeThree:
		return "Three Wheeler"
	case VehicleTypeFour:
		return "Four Wheeler"
	default:
		return string(t)
	}
}

// Vehicle представляет запись о транспортном средстве
type Vehicle struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	VehicleNumber string      `gorm:"size:20;not null;uniqueIndex:idx_vehicles_number" json:"vehicle_number"`
	VehicleType   VehicleType `gorm:"size:10;not null;index" json:"vehicle_type"`
	Model         string      `gorm:"column:vehicle_model;size:100;not null" json:"model"`
	Description   string      `gorm:"column:vehicle_description;type:text;not null;default:''" json:"description"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Vehicle) TableName() string {
	return "vehicles"
}
