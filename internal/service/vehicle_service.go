package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/yourusername/vehicle-api/internal/domain/entity"
	"github.com/yourusername/vehicle-api/internal/domain/repository"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var vehicleNumberPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9 -]*$`)

// VehicleEventPublisher доставляет события изменений в ленту
type VehicleEventPublisher interface {
	PublishVehicleEvent(ctx context.Context, event entity.VehicleEvent) error
}

// VehicleInput: данные для создания и обновления записи
type VehicleInput struct {
	VehicleNumber string             `json:"vehicle_number"`
	VehicleType   entity.VehicleType `json:"vehicle_type"`
	Model         string             `json:"model"`
	Description   string             `json:"description"`
}

// Validate проверяет поля записи
func (i VehicleInput) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.VehicleNumber, validation.Required, validation.Length(1, 20),
			validation.Match(vehicleNumberPattern).Error("may contain only letters, digits, spaces and hyphens")),
		validation.Field(&i.VehicleType, validation.Required, validation.By(validVehicleType)),
		validation.Field(&i.Model, validation.Required, validation.Length(1, 100)),
		validation.Field(&i.Description, validation.Required, validation.Length(1, 2000)),
	)
}

func (i *VehicleInput) normalize() {
	i.VehicleNumber = strings.ToUpper(strings.TrimSpace(i.VehicleNumber))
	i.VehicleType = entity.VehicleType(strings.TrimSpace(string(i.VehicleType)))
	i.Model = strings.TrimSpace(i.Model)
	i.Description = strings.TrimSpace(i.Description)
}

// VehiclePage: страница списка
type VehiclePage struct {
	Items    []entity.Vehicle `json:"items"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// VehicleService реализует операции над записями о транспортных средствах.
// Права доступа проверяются до вызова сервиса.
type VehicleService struct {
	repo      repository.VehicleRepository
	publisher VehicleEventPublisher
}

// NewVehicleService создает сервис. publisher может быть nil.
func NewVehicleService(repo repository.VehicleRepository, publisher VehicleEventPublisher) (*VehicleService, error) {
	if repo == nil {
		return nil, fmt.Errorf("vehicle repository is required")
	}
	return &VehicleService{repo: repo, publisher: publisher}, nil
}

// List возвращает страницу записей, опционально отфильтрованную по типу
func (s *VehicleService) List(vehicleType string, page, pageSize int) (*VehiclePage, error) {
	filterType := entity.VehicleType(strings.TrimSpace(vehicleType))
	if filterType != "" && !filterType.IsValid() {
		return nil, newFieldError("type", "must be one of Two, Three, Four", nil)
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	items, total, err := s.repo.List(repository.VehicleFilter{
		VehicleType: filterType,
		Limit:       pageSize,
		Offset:      (page - 1) * pageSize,
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []entity.Vehicle{}
	}
	return &VehiclePage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// ListAll возвращает все записи (для выгрузки)
func (s *VehicleService) ListAll(vehicleType string) ([]entity.Vehicle, error) {
	filterType := entity.VehicleType(strings.TrimSpace(vehicleType))
	if filterType != "" && !filterType.IsValid() {
		return nil, newFieldError("type", "must be one of Two, Three, Four", nil)
	}
	items, _, err := s.repo.List(repository.VehicleFilter{VehicleType: filterType})
	return items, err
}

// Get возвращает запись по ID
func (s *VehicleService) Get(id uint) (*entity.Vehicle, error) {
	return s.repo.GetByID(id)
}

// Create создает запись
func (s *VehicleService) Create(ctx context.Context, actorID uint, input VehicleInput) (*entity.Vehicle, error) {
	input.normalize()
	if err := fromValidation(input.Validate()); err != nil {
		return nil, err
	}
	if err := s.ensureNumberFree(input.VehicleNumber, 0); err != nil {
		return nil, err
	}

	vehicle := &entity.Vehicle{
		VehicleNumber: input.VehicleNumber,
		VehicleType:   input.VehicleType,
		Model:         input.Model,
		Description:   input.Description,
	}
	if err := s.repo.Create(vehicle); err != nil {
		return nil, err
	}

	log.Printf("[VehicleService] Пользователь ID=%d создал запись ID=%d (%s)", actorID, vehicle.ID, vehicle.VehicleNumber)
	s.publish(ctx, entity.VehicleCreated, vehicle, actorID)
	return vehicle, nil
}

// Update заменяет поля записи
func (s *VehicleService) Update(ctx context.Context, actorID, id uint, input VehicleInput) (*entity.Vehicle, error) {
	input.normalize()
	if err := fromValidation(input.Validate()); err != nil {
		return nil, err
	}

	vehicle, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNumberFree(input.VehicleNumber, id); err != nil {
		return nil, err
	}

	vehicle.VehicleNumber = input.VehicleNumber
	vehicle.VehicleType = input.VehicleType
	vehicle.Model = input.Model
	vehicle.Description = input.Description
	vehicle.UpdatedAt = time.Now()
	if err := s.repo.Update(vehicle); err != nil {
		return nil, err
	}

	log.Printf("[VehicleService] Пользователь ID=%d обновил запись ID=%d", actorID, vehicle.ID)
	s.publish(ctx, entity.VehicleUpdated, vehicle, actorID)
	return vehicle, nil
}

// Delete удаляет запись
func (s *VehicleService) Delete(ctx context.Context, actorID, id uint) error {
	vehicle, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}

	log.Printf("[VehicleService] Пользователь ID=%d удалил запись ID=%d (%s)", actorID, id, vehicle.VehicleNumber)
	s.publish(ctx, entity.VehicleDeleted, vehicle, actorID)
	return nil
}

func (s *VehicleService) ensureNumberFree(number string, excludeID uint) error {
	taken, err := s.repo.ExistsByNumber(number, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check vehicle number: %w", err)
	}
	if taken {
		return repository.ErrDuplicateVehicleNumber
	}
	return nil
}

// publish отправляет событие; ошибка доставки не влияет на результат операции
func (s *VehicleService) publish(ctx context.Context, action entity.VehicleAction, vehicle *entity.Vehicle, actorID uint) {
	if s.publisher == nil {
		return
	}
	event := entity.VehicleEvent{
		Action:     action,
		VehicleID:  vehicle.ID,
		Vehicle:    vehicle,
		ActorID:    actorID,
		OccurredAt: time.Now(),
	}
	if err := s.publisher.PublishVehicleEvent(ctx, event); err != nil {
		log.Printf("[VehicleService] Не удалось опубликовать %s для ID=%d: %v", action, vehicle.ID, err)
	}
}

func validVehicleType(value interface{}) error {
	t, _ := value.(entity.VehicleType)
	if t == "" || t.IsValid() {
		return nil
	}
	return errors.New("must be one of Two, Three, Four")
}

