package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/maktaba/core/book"
	"github.com/trezcool/maktaba/core/user"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db       *sql.DB
	bookSvc  book.ServiceInterface
	usrSvc   user.ServiceInterface
	validate *validator.Validate
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [args] - run DB migrations (up, down, status, ...)")
	fmt.Println("  addbook -title TITLE [-author AUTHOR] [-count N] [-tags TAG,TAG] - add a catalog entry")
	fmt.Println("  adduser -fname FIRSTNAME [-lname LASTNAME] [-email EMAIL] - register a directory user")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addBookCmd := flag.NewFlagSet("addbook", flag.ExitOnError)
	addBookTitle := addBookCmd.String("title", "", "The book's title.")
	addBookAuthor := addBookCmd.String("author", "", "The book's author.")
	addBookCount := addBookCmd.Int("count", 1, "The number of copies in the catalog.")
	addBookTags := addBookCmd.String("tags", "", "Comma-separated list of tags.")

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserFName := addUserCmd.String("fname", "", "The user's first name.")
	addUserLName := addUserCmd.String("lname", "", "The user's last name.")
	addUserEmail := addUserCmd.String("email", "", "The user's email address.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "addbook":
		if err := addBookCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addBookTitle == "" {
			addBookCmd.Usage()
			return errHelp
		}
		var tags []string
		if *addBookTags != "" {
			tags = strings.Split(*addBookTags, ",")
		}
		return cli.addBook(*addBookTitle, *addBookAuthor, *addBookCount, tags)
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserFName == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserFName, *addUserLName, *addUserEmail)
	default:
		cli.printUsage()
		return errHelp
	}
}
