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
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/yourusername/vehicle-api/internal/domain/entity"
	"github.com/yourusername/vehicle-api/internal/domain/repository"
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// RegisterInput содержит данные формы регистрации
type RegisterInput struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Role            string `json:"role"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// Validate проверяет формат полей (без проверки уникальности)
func (i RegisterInput) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Username, validation.Required, validation.Length(3, 50),
			validation.Match(usernamePattern).Error("may contain only letters, digits and @/./+/-/_")),
		validation.Field(&i.Email, validation.Required, validation.Length(3, 254), is.EmailFormat),
		validation.Field(&i.Role, validation.Required, validation.In(roleValues()...).Error("must be one of superadmin, admin, user")),
		validation.Field(&i.Password, validation.Required, validation.Length(8, entity.MaxPasswordBytes), validation.By(withinBcryptLimit), validation.By(notEntirelyNumeric)),
		validation.Field(&i.PasswordConfirm, validation.Required),
	)
}

func (i *RegisterInput) normalize() {
	i.Username = strings.TrimSpace(i.Username)
	i.Email = normalizeEmail(i.Email)
	i.Role = strings.TrimSpace(i.Role)
	if i.Role == "" {
		i.Role = string(entity.RoleUser)
	}
}

// RegistrationResult: итог регистрации.
// Delivered=false означает, что учетная запись и код созданы, но письмо не доставлено.
type RegistrationResult struct {
	User      *entity.User
	Delivered bool
}

// RegistrationService регистрирует неактивные учетные записи и выпускает коды подтверждения
type RegistrationService struct {
	userRepo       repository.UserRepository
	pendingRepo    repository.PendingVerificationRepository
	cacheRepo      repository.CacheRepository
	notifier       Notifier
	codeTTL        time.Duration
	resendCooldown time.Duration
	generateCode   func() (string, error)
}

// NewRegistrationService создает сервис регистрации. cacheRepo может быть nil (без кулдауна повторной отправки).
func NewRegistrationService(
	userRepo repository.UserRepository,
	pendingRepo repository.PendingVerificationRepository,
	cacheRepo repository.CacheRepository,
	notifier Notifier,
	codeTTL time.Duration,
	resendCooldown time.Duration,
) (*RegistrationService, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if pendingRepo == nil {
		return nil, fmt.Errorf("pending verification repository is required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	if codeTTL <= 0 {
		codeTTL = 10 * time.Minute
	}
	if resendCooldown <= 0 {
		resendCooldown = 60 * time.Second
	}

	return &RegistrationService{
		userRepo:       userRepo,
		pendingRepo:    pendingRepo,
		cacheRepo:      cacheRepo,
		notifier:       notifier,
		codeTTL:        codeTTL,
		resendCooldown: resendCooldown,
		generateCode:   generateVerificationCode,
	}, nil
}

// Register создает неактивную учетную запись, запись ожидания с кодом и отправляет код по email.
// Учетная запись и запись ожидания создаются вместе или не создаются вовсе.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*RegistrationResult, error) {
	input.normalize()

	if err := fromValidation(input.Validate()); err != nil {
		return nil, err
	}
	if input.Password != input.PasswordConfirm {
		return nil, newFieldError("password_confirm", "the two password fields didn't match", ErrPasswordMismatch)
	}

	if err := s.checkUniqueness(input.Username, input.Email); err != nil {
		return nil, err
	}

	code, err := s.generateCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification code: %w", err)
	}

	user := &entity.User{
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
		Role:     entity.Role(input.Role),
		IsActive: false,
	}

	pendingSaved := false
	err = s.userRepo.CreateTx(user, func(created *entity.User) error {
		pending := &entity.PendingVerification{
			Username:  created.Username,
			Code:      code,
			Attempts:  0,
			Email:     created.Email,
			CreatedAt: time.Now(),
		}
		if err := s.pendingRepo.Save(ctx, pending); err != nil {
			return err
		}
		pendingSaved = true
		return nil
	})
	if err != nil {
		if pendingSaved {
			// Транзакция не зафиксирована после записи кода: убираем код
			if delErr := s.pendingRepo.Delete(ctx, user.Username); delErr != nil {
				log.Printf("[RegistrationService] Не удалось удалить код для %s после отката: %v", user.Username, delErr)
			}
		}
		return nil, translateDuplicateError(err)
	}

	log.Printf("[RegistrationService] Зарегистрирован пользователь ID=%d (%s), ожидает подтверждения", user.ID, user.Username)

	result := &RegistrationResult{User: user}
	if err := deliverCode(ctx, s.notifier, user, code, int(s.codeTTL.Minutes())); err != nil {
		log.Printf("[RegistrationService] %v (username=%s, email=%s)", err, user.Username, user.Email)
		return result, nil
	}
	result.Delivered = true

	if s.cacheRepo != nil {
		if _, err := s.cacheRepo.SetNX(ctx, resendCooldownKey(user.Username), 1, s.resendCooldown); err != nil {
			log.Printf("[RegistrationService] Не удалось выставить кулдаун отправки для %s: %v", user.Username, err)
		}
	}
	return result, nil
}

// checkUniqueness собирает ошибки занятых email и username в одну ValidationError
func (s *RegistrationService) checkUniqueness(username, email string) error {
	verr := &ValidationError{}

	emailTaken, err := s.userRepo.ExistsByEmail(email)
	if err != nil {
		return fmt.Errorf("failed to check email existence: %w", err)
	}
	if emailTaken {
		verr.add("email", "a user with this email already exists", repository.ErrDuplicateEmail)
	}

	usernameTaken, err := s.userRepo.ExistsByUsername(username)
	if err != nil {
		return fmt.Errorf("failed to check username existence: %w", err)
	}
	if usernameTaken {
		verr.add("username", "a user with that username already exists", repository.ErrDuplicateUsername)
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// translateDuplicateError превращает нарушение уникальности, проигранное в гонке, в ошибку поля
func translateDuplicateError(err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateEmail):
		return newFieldError("email", "a user with this email already exists", repository.ErrDuplicateEmail)
	case errors.Is(err, repository.ErrDuplicateUsername):
		return newFieldError("username", "a user with that username already exists", repository.ErrDuplicateUsername)
	default:
		return fmt.Errorf("failed to register user: %w", err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func roleValues() []interface{} {
	values := make([]interface{}, 0, len(entity.Roles))
	for _, r := range entity.Roles {
		values = append(values, string(r))
	}
	return values
}

// withinBcryptLimit ограничивает пароль в байтах: Length считает символы,
// а многобайтовые символы занимают в bcrypt больше одного байта
func withinBcryptLimit(value interface{}) error {
	s, _ := value.(string)
	if len(s) > entity.MaxPasswordBytes {
		return fmt.Errorf("must be at most %d bytes", entity.MaxPasswordBytes)
	}
	return nil
}

func notEntirelyNumeric(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return nil
		}
	}
	return errors.New("this password is entirely numeric")
}
