package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/fieldops/workorder-service/internal/auth"
	"github.com/fieldops/workorder-service/internal/authz"
	"github.com/fieldops/workorder-service/internal/domain"
	"github.com/fieldops/workorder-service/internal/repository"
	apperrors "github.com/fieldops/workorder-service/pkg/util"
)

// AuthService manages accounts and sessions. Every auth-relevant action also
// lands in the user audit log.
type AuthService struct {
	users      repository.UserRepository
	audit      *AuditLogger
	tx         repository.TxManager
	tokens     *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// AuthDependencies bundles collaborators for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Audit      *AuditLogger
	Tx         repository.TxManager
	Tokens     *auth.TokenManager
	BcryptCost int
	Logger     *zap.Logger
}

// NewAuthService constructs the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		audit:      deps.Audit,
		tx:         deps.Tx,
		tokens:     deps.Tokens,
		bcryptCost: deps.BcryptCost,
		logger:     deps.Logger,
	}
}

// RegisterInput carries signup data. Role defaults to contractor.
type RegisterInput struct {
	Email    string
	Name     string
	Phone    string
	Password string
	Role     domain.Role
}

// UpdateProfileInput carries the caller-editable profile fields.
type UpdateProfileInput struct {
	Name  *string
	Phone *string
}

// AdminUpdateUserInput carries the admin-editable account fields.
type AdminUpdateUserInput struct {
	Role   *domain.Role
	Active *bool
}

// Session is the result of a successful login.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

// Register creates a new account. Self-registered accounts are contractors;
// only an explicit admin role passes through.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if input.Email == "" || input.Password == "" {
		return nil, apperrors.NewValidationError("Email and password are required", nil)
	}
	role := input.Role
	if role == "" {
		role = domain.RoleContractor
	}
	if !role.Valid() {
		return nil, apperrors.NewValidationError("Invalid role", map[string]any{"role": string(role)})
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Email:        input.Email,
		Name:         input.Name,
		Phone:        input.Phone,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if repository.IsDuplicate(err) {
			return nil, apperrors.NewConflict("Email is already registered", nil)
		}
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)))
	return user, nil
}

// Login verifies credentials and issues a JWT. Successful logins are audited
// with the caller's IP.
func (s *AuthService) Login(ctx context.Context, email, password string, ip *string) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if !user.Active {
		return nil, apperrors.NewUnauthorized("account disabled")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	_ = s.audit.LogUserAction(ctx, user.ID, domain.UserActionLogin,
		map[string]any{"email": user.Email}, nil, ip)
	s.logger.Info("user logged in", zap.String("user_id", user.ID))

	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Logout records the logout action. Tokens are stateless, so this is purely
// an audit event.
func (s *AuthService) Logout(ctx context.Context, actor domain.Actor, ip *string) error {
	if !actor.Authenticated {
		return apperrors.NewUnauthorized("authentication required")
	}
	_ = s.audit.LogUserAction(ctx, actor.ID, domain.UserActionLogout, nil, nil, ip)
	return nil
}

// UpdateProfile lets a user change their own name and phone.
func (s *AuthService) UpdateProfile(ctx context.Context, actor domain.Actor, input UpdateProfileInput, ip *string) (*domain.User, error) {
	var user *domain.User
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.users.GetByID(ctx, actor.ID)
		if err != nil {
			return err
		}

		changes := map[string]any{}
		if input.Name != nil && *input.Name != user.Name {
			changes["name"] = fieldChange(user.Name, *input.Name)
			user.Name = *input.Name
		}
		if input.Phone != nil && *input.Phone != user.Phone {
			changes["phone"] = fieldChange(user.Phone, *input.Phone)
			user.Phone = *input.Phone
		}
		if len(changes) == 0 {
			return nil
		}
		if err := s.users.Update(ctx, user); err != nil {
			return err
		}
		_ = s.audit.LogUserAction(ctx, actor.ID, domain.UserActionProfileUpdate,
			map[string]any{"changes": changes}, nil, ip)
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// ChangePassword verifies the current password before setting a new one.
func (s *AuthService) ChangePassword(ctx context.Context, actor domain.Actor, currentPassword, newPassword string, ip *string) error {
	if len(newPassword) < 8 {
		return apperrors.NewValidationError("Password must be at least 8 characters", nil)
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		user, err := s.users.GetByID(ctx, actor.ID)
		if err != nil {
			return err
		}
		if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
			return apperrors.NewValidationError("Current password is incorrect", nil)
		}

		hash, err := auth.HashPassword(newPassword, s.bcryptCost)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
		if err := s.users.Update(ctx, user); err != nil {
			return err
		}
		_ = s.audit.LogUserAction(ctx, actor.ID, domain.UserActionPasswordChange, nil, nil, ip)
		return nil
	})
	if err != nil {
		return apperrors.MapError(err)
	}
	s.logger.Info("password changed", zap.String("user_id", actor.ID))
	return nil
}

// SetTwoFactor toggles the two-factor flag for the calling user.
func (s *AuthService) SetTwoFactor(ctx context.Context, actor domain.Actor, enabled bool, ip *string) (*domain.User, error) {
	var user *domain.User
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.users.GetByID(ctx, actor.ID)
		if err != nil {
			return err
		}
		if user.TwoFactorEnabled == enabled {
			return nil
		}
		user.TwoFactorEnabled = enabled
		if err := s.users.Update(ctx, user); err != nil {
			return err
		}
		action := domain.UserActionTwoFactorDisable
		if enabled {
			action = domain.UserActionTwoFactorEnable
		}
		_ = s.audit.LogUserAction(ctx, actor.ID, action, nil, nil, ip)
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// AdminUpdateUser lets an admin change a user's role or active flag. The
// change is audited on the target user with the acting admin recorded.
func (s *AuthService) AdminUpdateUser(ctx context.Context, actor domain.Actor, userID string, input AdminUpdateUserInput) (*domain.User, error) {
	if !authz.CanManageUsers(actor) {
		return nil, apperrors.NewPermissionDenied("You don't have permission to manage users")
	}

	var user *domain.User
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.users.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("User", map[string]any{"user_id": userID})
			}
			return err
		}

		changes := map[string]any{}
		if input.Role != nil {
			if !input.Role.Valid() {
				return apperrors.NewValidationError("Invalid role", map[string]any{"role": string(*input.Role)})
			}
			if *input.Role != user.Role {
				changes["role"] = fieldChange(string(user.Role), string(*input.Role))
				user.Role = *input.Role
			}
		}
		if input.Active != nil && *input.Active != user.Active {
			changes["active"] = fieldChange(user.Active, *input.Active)
			user.Active = *input.Active
		}
		if err := s.users.Update(ctx, user); err != nil {
			return err
		}
		if len(changes) > 0 {
			_ = s.audit.LogUserAction(ctx, user.ID, domain.UserActionProfileUpdate,
				map[string]any{"changes": changes, "changed_by": actor.ID}, nil, nil)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("user updated by admin",
		zap.String("user_id", user.ID),
		zap.String("admin_id", actor.ID))
	return user, nil
}
