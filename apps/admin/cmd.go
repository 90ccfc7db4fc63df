package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/epe202/ulas/core/rep"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db     *sqlx.DB
	repSvc *rep.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  setpassword -school SCHOOL -dept DEPARTMENT -level LEVEL - set a class unit's rep password")
	fmt.Println("  migrate COMMAND [ARGS] - run database migrations (postgres backend only)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	setPasswordCmd := flag.NewFlagSet("setpassword", flag.ExitOnError)
	setPasswordSchool := setPasswordCmd.String("school", "", "The unit's school, as named in the catalog.")
	setPasswordDept := setPasswordCmd.String("dept", "", "The unit's department.")
	setPasswordLevel := setPasswordCmd.String("level", "", "The unit's level, e.g. 400. The password will be prompted next.")

	switch args[1] {
	case "setpassword":
		if err := setPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *setPasswordSchool == "" || *setPasswordDept == "" || *setPasswordLevel == "" {
			setPasswordCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			setPasswordCmd.Usage()
			return errHelp
		}
		fmt.Print("Confirm password:")
		pwd2, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if string(pwd) != string(pwd2) {
			return errors.New("passwords do not match")
		}
		return cli.setPassword(*setPasswordSchool, *setPasswordDept, *setPasswordLevel, string(pwd))
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}
