package usecases

import (
	"errors"
	"fmt"

	"github.com/example/meal-scheduler/internal/domain/user"
	"github.com/example/meal-scheduler/internal/infrastructure/crypto"
)

var ErrNoPassword = errors.New("no meican password for user and no global password configured")

// CredentialsService resolves the Meican password for a user: the user's
// own sealed password when set, the global password otherwise.
type CredentialsService struct {
	AEAD           *crypto.AEAD
	GlobalPassword string
}

// Seal encrypts a password for storage. An empty password stays empty so the
// global password applies.
func (s CredentialsService) Seal(password string) (string, error) {
	if password == "" {
		return "", nil
	}
	if s.AEAD == nil {
		return "", errors.New("credential encryption key not configured")
	}
	return s.AEAD.Seal(password)
}

func (s CredentialsService) PasswordFor(u user.User) (string, error) {
	if u.PasswordEnc != "" {
		if s.AEAD == nil {
			return "", errors.New("credential encryption key not configured")
		}
		pw, err := s.AEAD.Open(u.PasswordEnc)
		if err != nil {
			return "", fmt.Errorf("decrypt password for %s: %w", u.Email, err)
		}
		return pw, nil
	}
	if s.GlobalPassword == "" {
		return "", ErrNoPassword
	}
	return s.GlobalPassword, nil
}
