package user

import (
	"context"

	"github.com/pkg/errors"

	"github.com/gestiabsences/backend/core"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrUsernameExists     = errors.New("Cet email est déjà utilisé")
	ErrInvalidCredentials = errors.New("Identifiants incorrects")
)

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id int) (User, error)
		GetUserByUsername(ctx context.Context, username string) (User, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CheckUniqueness(ctx context.Context, username string) error {
	if _, err := svc.repo.GetUserByUsername(ctx, username); err == nil {
		return core.NewValidationError(ErrUsernameExists, core.FieldError{Field: "username", Error: ErrUsernameExists.Error()})
	} else if errors.Cause(err) != ErrNotFound {
		return errors.Wrap(err, "checking username uniqueness")
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	usr := User{
		Username: nu.Username,
		FullName: nu.FullName,
		Role:     nu.Role,
	}
	if usr.Role == "" {
		usr.Role = RoleTeacher
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByUsername(ctx context.Context, username string) (User, error) {
	return svc.repo.GetUserByUsername(ctx, core.CleanString(username, true /* lower */))
}

// Authenticate checks the credentials and returns the matching User;
// ErrInvalidCredentials on unknown username or password mismatch.
func (svc *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	usr, err := svc.GetByUsername(ctx, username)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user")
	}
	if err := usr.CheckPassword(password); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return usr, nil
}
