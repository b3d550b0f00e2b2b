package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/meal-scheduler/internal/domain/user"
	"github.com/example/meal-scheduler/internal/internaltypes"
)

// AuthService checks operator logins for the web UI.
type AuthService struct {
	Operators user.OperatorRepository
}

func (a AuthService) VerifyPassword(ctx context.Context, username, password string) (user.Operator, error) {
	o, err := a.Operators.GetOperatorByUsername(ctx, username)
	if err != nil {
		return user.Operator{}, err
	}
	if err := bcrypt.CompareHashAndPassword(o.PasswordHash, []byte(password)); err != nil {
		return user.Operator{}, internaltypes.ErrUnauthorized
	}
	return o, nil
}

func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

func NewOperator(username, password string) (user.Operator, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return user.Operator{}, fmt.Errorf("username and password required")
	}
	h, err := HashPassword(password)
	if err != nil {
		return user.Operator{}, err
	}
	return user.Operator{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: h,
		CreatedAt:    time.Now().UTC(),
	}, nil
}
