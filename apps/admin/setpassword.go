package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/epe202/ulas/core/catalog"
)

func (cli *commandLine) setPassword(school, dept, level, pwd string) error {
	unit := catalog.Unit{School: school, Department: dept, Level: level}
	if !unit.Known() {
		return fmt.Errorf("unknown class unit: %s", unit)
	}
	if err := cli.repSvc.SetPassword(context.Background(), unit, pwd); err != nil {
		return err
	}
	fmt.Printf("Password set for %s\n", unit)
	return nil
}

func (cli *commandLine) requireDB() error {
	if cli.db == nil {
		return errors.New("current storage backend has no database")
	}
	return nil
}
