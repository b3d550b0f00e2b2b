package usecases

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/meal-scheduler/internal/domain/meal"
	"github.com/example/meal-scheduler/internal/domain/user"
	"github.com/example/meal-scheduler/internal/internaltypes"
)

var ErrUserExists = errors.New("user already exists")

// UserService manages Meican accounts. New accounts must pass a Meican login
// before they are stored.
type UserService struct {
	Users   user.Repository
	Catalog meal.Catalog
	Creds   CredentialsService
	Now     func() time.Time
}

type NewUserInput struct {
	Email     string
	Password  string
	AddressID string
}

func (s UserService) Create(ctx context.Context, in NewUserInput) (user.User, error) {
	email := strings.TrimSpace(in.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return user.User{}, fmt.Errorf("invalid email %q", email)
	}
	if _, err := s.Users.GetByEmail(ctx, email); err == nil {
		return user.User{}, fmt.Errorf("%w: %s", ErrUserExists, email)
	} else if !errors.Is(err, internaltypes.ErrNotFound) {
		return user.User{}, err
	}

	sealed, err := s.Creds.Seal(in.Password)
	if err != nil {
		return user.User{}, err
	}
	u := user.User{
		ID:          uuid.NewString(),
		Email:       email,
		PasswordEnc: sealed,
		AddressID:   strings.TrimSpace(in.AddressID),
		Active:      true,
		CreatedAt:   s.now().UTC(),
	}

	pw, err := s.Creds.PasswordFor(u)
	if err != nil {
		return user.User{}, err
	}
	if _, err := s.Catalog.Login(ctx, u.Email, pw); err != nil {
		return user.User{}, fmt.Errorf("verify meican login: %w", err)
	}

	if err := s.Users.Create(ctx, u); err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s UserService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
