package user

import (
	"context"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/gestiabsences/backend/core"
)

// Roles
const (
	RoleTeacher = "enseignant"
	RoleAdmin   = "admin"
)

type User struct {
	ID           int    `json:"id" db:"id"`
	Username     string `json:"username" db:"username"` // email address
	FullName     string `json:"fullname" db:"fullname"`
	Role         string `json:"role" db:"role"`
	PasswordHash []byte `json:"-" db:"password_hash"`
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// NewUser contains information needed to register a new User.
type NewUser struct {
	Username string `json:"username" validate:"required,email"`
	FullName string `json:"fullname" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=enseignant admin"`
	Password string `json:"password" validate:"required"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.FullName = core.CleanString(nu.FullName)
	if nu.Role == "" {
		nu.Role = RoleTeacher
	}
	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Username)
}
