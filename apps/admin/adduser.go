package main

import (
	"context"
	"fmt"

	"github.com/trezcool/maktaba/core/user"
)

func (cli *commandLine) addUser(fname, lname, email string) error {
	nu := user.NewUser{
		FirstName: fname,
		LastName:  lname,
		Email:     email,
	}
	if err := nu.Validate(cli.validate); err != nil {
		return err
	}

	usr, err := cli.usrSvc.Create(context.Background(), nu)
	if err != nil {
		return err
	}
	fmt.Printf("user %q added (id=%s)\n", usr.FullName(), usr.ID)
	return nil
}
