package repository

import (
	"fmt"

	apperrors "github.com/yourusername/vehicle-api/internal/pkg/errors"
)

var (
	// ErrDuplicateUsername означает, что учетная запись с таким username уже существует.
	ErrDuplicateUsername = fmt.Errorf("%w: username already registered", apperrors.ErrConflict)
	// ErrDuplicateEmail означает, что учетная запись с таким email уже существует.
	ErrDuplicateEmail = fmt.Errorf("%w: email already registered", apperrors.ErrConflict)
	// ErrDuplicateVehicleNumber означает, что номер транспортного средства уже занят.
	ErrDuplicateVehicleNumber = fmt.Errorf("%w: vehicle number already exists", apperrors.ErrConflict)
	// ErrAlreadyActive означает, что учетная запись уже активирована.
	ErrAlreadyActive = fmt.Errorf("%w: account already active", apperrors.ErrConflict)
	// ErrConcurrentUpdate означает, что запись изменилась параллельно и обновление не удалось применить.
	ErrConcurrentUpdate = fmt.Errorf("%w: concurrent update", apperrors.ErrConflict)
)
