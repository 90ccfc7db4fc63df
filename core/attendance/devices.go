package attendance

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/epe202/ulas/core"
)

// The device gate is independent of the roster's name/matric guards: it is
// keyed on an opaque client-supplied device ID scoped to one session's
// storage handle. A cleared device identity defeats it; that is a known
// weaker-than-cryptographic property, not a bug.

// DeviceSubmitted reports whether the device already signed this session.
func (svc *Service) DeviceSubmitted(ctx context.Context, sess Session, deviceID string) (bool, error) {
	devices, _, err := svc.loadDevices(ctx, sess.RosterKey)
	if err != nil {
		return false, err
	}
	for _, d := range devices {
		if d == deviceID {
			return true, nil
		}
	}
	return false, nil
}

func (svc *Service) loadDevices(ctx context.Context, rosterKey string) ([]string, string, error) {
	data, ver, err := svc.store.Get(ctx, devicesKey(rosterKey))
	if err != nil {
		if errors.Cause(err) == core.ErrKeyNotFound {
			return nil, "", nil
		}
		return nil, "", errors.Wrap(err, "reading device set")
	}

	var devices []string
	if err = json.Unmarshal(data, &devices); err != nil {
		return nil, "", errors.Wrap(err, "decoding device set")
	}
	return devices, ver, nil
}

// registerDevice adds the device to the session's set. Idempotent.
func (svc *Service) registerDevice(ctx context.Context, rosterKey, deviceID string) error {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		devices, ver, err := svc.loadDevices(ctx, rosterKey)
		if err != nil {
			return err
		}

		present := false
		for _, d := range devices {
			if d == deviceID {
				present = true
				break
			}
		}
		if present {
			return nil
		}

		data, err := json.Marshal(append(devices, deviceID))
		if err != nil {
			return errors.Wrap(err, "encoding device set")
		}
		if err = svc.store.Put(ctx, devicesKey(rosterKey), data, "Register device", ver); err != nil {
			if errors.Cause(err) == core.ErrVersionConflict {
				continue
			}
			return errors.Wrap(err, "saving device set")
		}
		return nil
	}
	return ErrWriteConflict
}
