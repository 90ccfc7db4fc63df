// Package rep handles course-rep credentials. A unit's password defaults to
// a value derivable from its department and level; custom passwords are
// bcrypt hashes kept in the store and set out-of-band by an admin.
package rep

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/epe202/ulas/core"
	"github.com/epe202/ulas/core/catalog"
)

var (
	ErrBadCredentials = errors.New("incorrect password")
	ErrWriteConflict  = errors.New("passwords were modified concurrently, try again")
)

const (
	passwordsKey     = "rep_passwords.json"
	maxWriteAttempts = 3
)

// DefaultPassword derives a unit's out-of-the-box password: the first three
// letters of the department (spaces stripped, uppercased) plus the level
// number, e.g. "CHE400" for Chemical Engineering 400 level.
func DefaultPassword(u catalog.Unit) string {
	dept := strings.ReplaceAll(u.Department, " ", "")
	if len(dept) > 3 {
		dept = dept[:3]
	}
	return strings.ToUpper(dept) + u.Level
}

func passwordKey(u catalog.Unit) string {
	return fmt.Sprintf("%s|%s|%s", u.School, u.Department, u.Level)
}

type Service struct {
	store  core.Store
	logger core.Logger
}

func NewService(store core.Store, logger core.Logger) *Service {
	return &Service{store: store, logger: logger}
}

func (svc *Service) loadHashes(ctx context.Context) (map[string]string, string, error) {
	data, ver, err := svc.store.Get(ctx, passwordsKey)
	if err != nil {
		if errors.Cause(err) == core.ErrKeyNotFound {
			return map[string]string{}, "", nil
		}
		return nil, "", errors.Wrap(err, "reading rep passwords")
	}

	hashes := make(map[string]string)
	if err = json.Unmarshal(data, &hashes); err != nil {
		return nil, "", errors.Wrap(err, "decoding rep passwords")
	}
	return hashes, ver, nil
}

// Authenticate checks a unit's password: the stored custom hash when one
// exists, the derived default otherwise.
func (svc *Service) Authenticate(ctx context.Context, unit catalog.Unit, password string) error {
	if !unit.Known() {
		return ErrBadCredentials
	}

	hashes, _, err := svc.loadHashes(ctx)
	if err != nil {
		return err
	}
	if hash, ok := hashes[passwordKey(unit)]; ok {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
			return ErrBadCredentials
		}
		return nil
	}
	if password != DefaultPassword(unit) {
		return ErrBadCredentials
	}
	return nil
}

// SetPassword stores a custom password hash for the unit, replacing the
// default (or any previous custom password).
func (svc *Service) SetPassword(ctx context.Context, unit catalog.Unit, password string) error {
	if err := validatePassword(password, unit); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hashing password")
	}

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		hashes, ver, err := svc.loadHashes(ctx)
		if err != nil {
			return err
		}
		hashes[passwordKey(unit)] = string(hash)

		data, err := json.MarshalIndent(hashes, "", "  ")
		if err != nil {
			return errors.Wrap(err, "encoding rep passwords")
		}
		if err = svc.store.Put(ctx, passwordsKey, data, "Update rep passwords", ver); err != nil {
			if errors.Cause(err) == core.ErrVersionConflict {
				continue
			}
			return errors.Wrap(err, "saving rep passwords")
		}
		return nil
	}
	return ErrWriteConflict
}
