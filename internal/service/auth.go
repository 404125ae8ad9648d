package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"golang.org/x/crypto/bcrypt"

	"github.com/rocketscienceinc/ticroom-backend/internal/apperror"
	"github.com/rocketscienceinc/ticroom-backend/internal/entity"
)

// usernames may never carry the wire delimiter, so the charset is
// strictly narrower than the protocol's field grammar.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,20}$`)

type AuthService interface {
	Authenticate(ctx context.Context, username, password string) error
	Register(ctx context.Context, username, password string) error
}

type userRepo interface {
	Save(ctx context.Context, user *entity.User) error
	Find(ctx context.Context, username string) (*entity.User, error)
}

type authService struct {
	userRepo userRepo
}

func NewAuthService(userRepo userRepo) AuthService {
	return &authService{
		userRepo: userRepo,
	}
}

// Authenticate checks a username/password pair against the stored
// bcrypt hash. Unknown users and wrong passwords are distinct errors
// because they map to distinct reply codes.
func (that *authService) Authenticate(ctx context.Context, username, password string) error {
	user, err := that.userRepo.Find(ctx, username)
	if errors.Is(err, apperror.ErrNotFound) {
		return apperror.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("could not get user: %w", err)
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return apperror.ErrWrongPassword
	}

	return nil
}

func (that *authService) Register(ctx context.Context, username, password string) error {
	if !usernamePattern.MatchString(username) || password == "" {
		return apperror.ErrInvalidUsername
	}

	if _, err := that.userRepo.Find(ctx, username); err == nil {
		return apperror.ErrUserAlreadyExists
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("could not check user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("could not hash password: %w", err)
	}

	user := &entity.User{
		Username:     username,
		PasswordHash: string(hash),
	}
	if err = that.userRepo.Save(ctx, user); err != nil {
		return fmt.Errorf("could not save user: %w", err)
	}

	return nil
}
