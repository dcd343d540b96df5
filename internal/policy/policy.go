// Package policy содержит таблицу прав доступа к записям о транспортных средствах.
package policy

import (
	"errors"
	"fmt"

	"github.com/yourusername/vehicle-api/internal/domain/entity"
)

// Operation: операция над записью о транспортном средстве
type Operation string

const (
	OpList   Operation = "list"
	OpView   Operation = "view"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Operations перечисляет все операции в порядке таблицы
var Operations = []Operation{OpList, OpView, OpCreate, OpUpdate, OpDelete}

// ErrPolicyDenied возвращается, когда роль не имеет права на операцию
var ErrPolicyDenied = errors.New("policy_denied")

// table: роль × операция. Отсутствующая пара означает запрет.
var table = map[entity.Role]map[Operation]bool{
	entity.RoleSuperAdmin: {
		OpList:   true,
		OpView:   true,
		OpCreate: true,
		OpUpdate: true,
		OpDelete: true,
	},
	entity.RoleAdmin: {
		OpList:   true,
		OpView:   true,
		OpUpdate: true,
	},
	entity.RoleUser: {
		OpList: true,
		OpView: true,
	},
}

// Allowed возвращает true, если роль может выполнить операцию
func Allowed(role entity.Role, op Operation) bool {
	return table[role][op]
}

// Check возвращает ErrPolicyDenied, если операция запрещена
func Check(role entity.Role, op Operation) error {
	if !Allowed(role, op) {
		return fmt.Errorf("%w: role %q cannot %s vehicles", ErrPolicyDenied, role, op)
	}
	return nil
}

// AllowedOperations возвращает список разрешенных роли операций
func AllowedOperations(role entity.Role) []Operation {
	ops := make([]Operation, 0, len(Operations))
	for _, op := range Operations {
		if Allowed(role, op) {
			ops = append(ops, op)
		}
	}
	return ops
}
