package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/cppla/postboard/models"
)

// UsersPerPage is the page size of the administrative user listing.
const UsersPerPage = 20

// RegisterInput is a local account registration.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=64,username"`
	Email    string `json:"email" validate:"omitempty,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// OAuthProfile is what a third-party provider tells us about a user.
type OAuthProfile struct {
	Provider  string
	ID        string
	Username  string
	Email     string
	AvatarURL string
}

// UserService manages accounts.
type UserService struct {
	db    *gorm.DB
	log   *zap.Logger
	grace time.Duration
	now   func() time.Time
}

func NewUserService(db *gorm.DB, logger *zap.Logger, grace time.Duration) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{db: db, log: logger, grace: grace, now: utcNow}
}

// Register creates a local account with a bcrypt password hash.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateStruct(in); err != nil {
		return models.User{}, err
	}

	taken, err := s.usernameTaken(s.db.WithContext(ctx), in.Username)
	if err != nil {
		return models.User{}, err
	}
	if taken {
		return models.User{}, ErrConflict
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{Username: in.Username, Email: in.Email, PasswordHash: string(hash)}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user registered", zap.Uint("id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// Authenticate checks a username/password pair. Every mismatch is ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
	// OAuth-only accounts have no password
	if user.PasswordHash == "" {
		return models.User{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Get loads a user by id.
func (s *UserService) Get(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("load user %d: %w", id, err)
	}
	return user, nil
}

// List returns one page of users for administrators, newest first.
func (s *UserService) List(ctx context.Context, who Identity, page int) (Page[models.User], error) {
	if err := RequireAdmin(who); err != nil {
		return Page[models.User]{}, err
	}
	q := s.db.WithContext(ctx).Model(&models.User{}).Order("created_at DESC").Order("id DESC")
	return paginate[models.User](q, page, UsersPerPage)
}

// FindOrCreateOAuth returns the account linked to a provider identity, creating it on first login.
func (s *UserService) FindOrCreateOAuth(ctx context.Context, p OAuthProfile) (models.User, error) {
	db := s.db.WithContext(ctx)
	var user models.User
	err := db.Where("provider = ? AND provider_id = ?", p.Provider, p.ID).First(&user).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"email":      strings.TrimSpace(p.Email),
			"avatar_url": p.AvatarURL,
		}
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			return models.User{}, fmt.Errorf("refresh oauth user: %w", err)
		}
		return user, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return models.User{}, fmt.Errorf("load oauth user: %w", err)
	}

	username, err := s.uniqueUsername(db, p)
	if err != nil {
		return models.User{}, err
	}
	user = models.User{
		Username:   username,
		Email:      strings.TrimSpace(p.Email),
		Provider:   p.Provider,
		ProviderID: p.ID,
		AvatarURL:  p.AvatarURL,
	}
	if err := db.Create(&user).Error; err != nil {
		return models.User{}, fmt.Errorf("create oauth user: %w", err)
	}
	s.log.Info("oauth user created", zap.Uint("id", user.ID), zap.String("provider", p.Provider))
	return user, nil
}

// Delete removes the account id together with its messages and posts. Users may delete
// themselves; administrators may delete anyone.
func (s *UserService) Delete(ctx context.Context, who Identity, id uint) error {
	if err := RequireIdentity(who); err != nil {
		return err
	}
	if who.UserID != id && !who.Admin {
		return ErrForbidden
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load user %d: %w", id, err)
		}
		if err := tx.Model(&models.Asset{}).Where("user_id = ?", id).
			Update("expire_at", s.now().Add(s.grace)).Error; err != nil {
			return fmt.Errorf("release assets: %w", err)
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Post{}).Error; err != nil {
			return fmt.Errorf("delete posts: %w", err)
		}
		return tx.Delete(&models.User{}, id).Error
	})
	if err != nil {
		return err
	}
	s.log.Info("user deleted", zap.Uint("id", id), zap.Uint("by", who.UserID))
	return nil
}

func (s *UserService) usernameTaken(db *gorm.DB, username string) (bool, error) {
	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return count > 0, nil
}

func (s *UserService) uniqueUsername(db *gorm.DB, p OAuthProfile) (string, error) {
	base := sanitizeUsername(p.Username)
	if base == "" {
		base = sanitizeUsername(p.Provider + "_" + p.ID)
	}
	if base == "" {
		base = "user"
	}
	candidate := base
	for suffix := 1; ; suffix++ {
		taken, err := s.usernameTaken(db, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d", base, suffix)
	}
}

// sanitizeUsername folds a provider login into the local username alphabet.
func sanitizeUsername(input string) string {
	input = strings.ToLower(strings.TrimSpace(input))
	var b strings.Builder
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r == '_' || r == '.' || r == '@':
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if len(out) > 56 {
		out = out[:56]
	}
	return out
}
