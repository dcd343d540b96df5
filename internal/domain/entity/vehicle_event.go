package entity

import "time"

// VehicleAction: тип изменения записи о транспортном средстве
type VehicleAction string

const (
	VehicleCreated VehicleAction = "vehicle.created"
	VehicleUpdated VehicleAction = "vehicle.updated"
	VehicleDeleted VehicleAction = "vehicle.deleted"
)

// VehicleEvent описывает изменение, рассылаемое подписчикам ленты изменений.
// Для удаления Vehicle содержит последнее состояние записи.
type VehicleEvent struct {
	Action     VehicleAction `json:"action"`
	VehicleID  uint          `json:"vehicle_id"`
	Vehicle    *Vehicle      `json:"vehicle,omitempty"`
	ActorID    uint          `json:"actor_id"`
	OccurredAt time.Time     `json:"occurred_at"`
}
