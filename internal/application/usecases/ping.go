package usecases

import (
	"context"
	"fmt"

	"github.com/example/meal-scheduler/internal/domain/meal"
	"github.com/example/meal-scheduler/internal/domain/user"
)

// PingUser checks that a stored user can still sign in to Meican.
type PingUser struct {
	Catalog meal.Catalog
	Creds   CredentialsService
}

func (u PingUser) Execute(ctx context.Context, usr user.User) error {
	if u.Catalog == nil {
		return fmt.Errorf("catalog is nil")
	}
	pw, err := u.Creds.PasswordFor(usr)
	if err != nil {
		return err
	}
	_, err = u.Catalog.Login(ctx, usr.Email, pw)
	return err
}
