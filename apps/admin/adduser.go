package main

import (
	"context"

	"github.com/gestiabsences/backend/core"
	"github.com/gestiabsences/backend/core/user"
)

// addUser creates a user.User after checking username availability.
func (cli *commandLine) addUser(uname, fullName, pwd string, isAdmin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	fullName = core.CleanString(fullName)

	if err := cli.usrSvc.CheckUniqueness(ctx, uname); err != nil {
		return err
	}

	role := user.RoleTeacher
	if isAdmin {
		role = user.RoleAdmin
	}
	_, err := cli.usrSvc.Create(ctx, user.NewUser{
		Username: uname,
		FullName: fullName,
		Role:     role,
		Password: pwd,
	})
	return err
}
