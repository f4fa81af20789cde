package auth

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// IdentityNotifier routes identity workflow events (account verification,
// access resets) through the notification engine. Implemented by the
// notification service; accepted as an interface so the identity layer stays
// decoupled from the engine's internals.
type IdentityNotifier interface {
	NotifyAccessReset(ctx context.Context, schoolID, userID, stage string) error
	NotifyAccountVerification(ctx context.Context, schoolID, userID, stage string) error
}

// userStore is the slice of the user repository the service needs.
type userStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, user *User) error
	UpdateUser(ctx context.Context, user *User) error
}

type UserService struct {
	repo     userStore
	notifier IdentityNotifier
	logger   *zap.Logger
}

func NewUserService(repo *UserRepository, notifier IdentityNotifier, logger *zap.Logger) *UserService {
	return &UserService{repo: repo, notifier: notifier, logger: logger}
}

func validRole(role string) bool {
	switch role {
	case RoleAdmin, RoleStaff, RoleTeacher, RoleStudent, RoleParent:
		return true
	}
	return false
}

// RegisterUser creates an unverified account and returns the email
// verification token. School administrators are notified that the account
// awaits verification.
func (s *UserService) RegisterUser(ctx context.Context, req RegisterRequest) (string, error) {
	if req.SchoolID == "" {
		return "", errors.New("School is required")
	}
	if !validRole(req.Role) {
		return "", errors.New("Unknown role")
	}
	if (req.Role == RoleStudent || req.Role == RoleTeacher) && req.ClassID == "" {
		return "", errors.New("Class is required for students and teachers")
	}

	existingUser, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		return "", err
	}
	if existingUser != nil {
		return "", errors.New("Email already registered")
	}

	hashPassword, err := HashPassword(req.Password)
	if err != nil {
		return "", err
	}

	user := &User{
		ID:           primitive.NewObjectID(),
		SchoolID:     req.SchoolID,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hashPassword,
		Role:         req.Role,
		ClassID:      req.ClassID,
		Active:       true,
		Verified:     false,
		CreatedAt:    time.Now(),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return "", err
	}

	verifyToken, err := GenerateJWT(user, time.Hour*24)
	if err != nil {
		return "", errors.New("Token not generated")
	}

	if err := s.notifier.NotifyAccountVerification(ctx, user.SchoolID, user.ID.Hex(), "pending"); err != nil {
		s.logger.Warn("account verification notification failed",
			zap.String("user_id", user.ID.Hex()), zap.Error(err))
	}
	return verifyToken, nil
}

// VerifyEmail redeems a verification token and marks the account verified.
func (s *UserService) VerifyEmail(ctx context.Context, token string) error {
	claims, err := ValidateJWT(token)
	if err != nil {
		return errors.New("Invalid Token")
	}
	user, err := s.repo.FindByEmail(ctx, claims.Email)
	if err != nil || user == nil {
		return errors.New("User not found")
	}
	if user.Verified {
		return nil
	}
	user.Verified = true
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return err
	}

	if err := s.notifier.NotifyAccountVerification(ctx, user.SchoolID, user.ID.Hex(), "verified"); err != nil {
		s.logger.Warn("account verification notification failed",
			zap.String("user_id", user.ID.Hex()), zap.Error(err))
	}
	return nil
}

func (s *UserService) AuthenticateUser(ctx context.Context, cred Credential) (string, error) {
	user, err := s.repo.FindByEmail(ctx, cred.Email)
	if err != nil || user == nil || !CheckPasswordHash(cred.Password, user.PasswordHash) {
		return "", errors.New("Invalid Credentials")
	}
	if !user.Verified {
		return "", errors.New("Email not verified")
	}
	if !user.Active {
		return "", errors.New("Account is deactivated")
	}

	token, err := GenerateJWT(user, time.Hour*12)
	if err != nil {
		return "", errors.New("Token not generated")
	}
	return token, nil
}

// RequestAccessReset records a reset token for the account and raises an
// access-reset-request notification to the school's administrators. The
// original request succeeds even if the notification cannot be delivered.
func (s *UserService) RequestAccessReset(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil || user == nil {
		return errors.New("User not found")
	}
	resetToken, err := GenerateJWT(user, time.Minute*15)
	if err != nil {
		return errors.New("Token not generated")
	}
	user.ResetToken = resetToken
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return err
	}

	if err := s.notifier.NotifyAccessReset(ctx, user.SchoolID, user.ID.Hex(), "request"); err != nil {
		s.logger.Warn("access reset notification failed",
			zap.String("user_id", user.ID.Hex()), zap.Error(err))
	}
	return nil
}

func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	claims, err := ValidateJWT(token)
	if err != nil {
		return errors.New("Invalid Token")
	}

	user, err := s.repo.FindByEmail(ctx, claims.Email)
	if err != nil || user == nil {
		return errors.New("User not found")
	}
	if user.ResetToken == "" || user.ResetToken != token {
		return errors.New("Invalid Token")
	}
	hashPassword, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hashPassword
	user.ResetToken = ""
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return err
	}

	if err := s.notifier.NotifyAccessReset(ctx, user.SchoolID, user.ID.Hex(), "approved"); err != nil {
		s.logger.Warn("access reset notification failed",
			zap.String("user_id", user.ID.Hex()), zap.Error(err))
	}
	return nil
}
