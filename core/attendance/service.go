package attendance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/epe202/ulas/core"
	"github.com/epe202/ulas/core/catalog"
)

var (
	// errors
	ErrSessionExists   = errors.New("an attendance is already open for this unit")
	ErrNoActiveSession = errors.New("no active attendance for this unit")
	ErrDuplicateName   = errors.New("a student with that name is already in this attendance")
	ErrDuplicateMatric = errors.New("that matric number is already in this attendance")
	ErrInvalidCode     = errors.New("wrong or expired code")
	ErrDeviceUsed      = errors.New("this device has already signed this attendance")
	ErrWriteConflict   = errors.New("attendance was modified concurrently, try again")
	ErrNoSuchEntry     = errors.New("no such entry")
	ErrNoSuchRecord    = errors.New("no such record")

	nowFunc = time.Now // mockable
)

// maxWriteAttempts caps the read-validate-write cycles per operation: a
// stale version token is retried against a fresh read, never blindly.
const maxWriteAttempts = 3

// CodeTick is one observation of the rotating code, for rep displays.
type CodeTick struct {
	Code        string  `json:"code"`
	Slot        int64   `json:"slot"`
	SecondsLeft float64 `json:"seconds_left"`
	CourseCode  string  `json:"course_code"`
}

type Service struct {
	store   core.Store
	logger  core.Logger
	mailSvc core.EmailService
	conf    *core.Config
}

func NewService(store core.Store, logger core.Logger, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{store: store, logger: logger, mailSvc: mailSvc, conf: conf}
}

// Session directory

func (svc *Service) loadDirectory(ctx context.Context) (map[string]Session, string, error) {
	data, ver, err := svc.store.Get(ctx, directoryKey)
	if err != nil {
		if errors.Cause(err) == core.ErrKeyNotFound {
			return map[string]Session{}, "", nil
		}
		return nil, "", errors.Wrap(err, "reading session directory")
	}

	dir := make(map[string]Session)
	if err = json.Unmarshal(data, &dir); err != nil {
		return nil, "", errors.Wrap(err, "decoding session directory")
	}
	return dir, ver, nil
}

func (svc *Service) saveDirectory(ctx context.Context, dir map[string]Session, message, version string) error {
	data, err := json.MarshalIndent(dir, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding session directory")
	}
	return svc.store.Put(ctx, directoryKey, data, message, version)
}

// Start opens an attendance session for the unit. The "at most one open
// session per unit" check is a compare-and-swap on the directory document:
// of two concurrent Start calls for the same unit exactly one wins, the
// other re-reads, finds the unit taken and fails with ErrSessionExists.
func (svc *Service) Start(ctx context.Context, unit catalog.Unit, courseCode string) (Session, error) {
	courseCode = core.CleanString(courseCode, true /* upper */)
	if courseCode == "" {
		return Session{}, core.NewFieldError("course_code", "this field is required")
	}

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		dir, ver, err := svc.loadDirectory(ctx)
		if err != nil {
			return Session{}, err
		}
		if _, open := dir[unit.Key()]; open {
			return Session{}, ErrSessionExists
		}

		now := nowFunc()
		sess := Session{
			School:     unit.School,
			Department: unit.Department,
			Level:      unit.Level,
			CourseCode: courseCode,
			StartedAt:  now,
			Date:       now.Format(dateLayout),
			StartTime:  now.Format(timeLabelLayout),
			RosterKey:  rosterKey(unit, courseCode, now.Format(dateLayout), now.Format(timeLabelLayout)),
		}

		empty, err := marshalEntries(nil)
		if err != nil {
			return Session{}, err
		}
		if err = svc.store.Put(ctx, sess.RosterKey, empty, "Start attendance", ""); err != nil {
			if errors.Cause(err) == core.ErrVersionConflict {
				continue // a roster appeared under this exact key; take a fresh timestamp
			}
			return Session{}, errors.Wrap(err, "creating roster")
		}

		dir[unit.Key()] = sess
		if err = svc.saveDirectory(ctx, dir, "Open attendance "+courseCode, ver); err != nil {
			if errors.Cause(err) == core.ErrVersionConflict {
				continue // lost the race; re-read and re-check
			}
			return Session{}, errors.Wrap(err, "registering session")
		}

		svc.logger.Info(fmt.Sprintf("attendance started: %s %s", unit, courseCode))
		return sess, nil
	}
	return Session{}, ErrWriteConflict
}

// Active returns the unit's open session. Always a fresh read of the
// directory; callers must not trust previously loaded state.
func (svc *Service) Active(ctx context.Context, unit catalog.Unit) (Session, error) {
	dir, _, err := svc.loadDirectory(ctx)
	if err != nil {
		return Session{}, err
	}
	sess, ok := dir[unit.Key()]
	if !ok {
		return Session{}, ErrNoActiveSession
	}
	return sess, nil
}

// End closes the unit's open session. Only the directory entry is removed;
// the roster file stays behind for the records listing, and edits through a
// still-resolving record are an accepted, documented policy.
func (svc *Service) End(ctx context.Context, unit catalog.Unit) (Session, error) {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		dir, ver, err := svc.loadDirectory(ctx)
		if err != nil {
			return Session{}, err
		}
		sess, ok := dir[unit.Key()]
		if !ok {
			return Session{}, ErrNoActiveSession
		}

		delete(dir, unit.Key())
		if err = svc.saveDirectory(ctx, dir, "Close attendance "+sess.CourseCode, ver); err != nil {
			if errors.Cause(err) == core.ErrVersionConflict {
				continue
			}
			return Session{}, errors.Wrap(err, "closing session")
		}

		svc.logger.Info(fmt.Sprintf("attendance ended: %s %s", unit, sess.CourseCode))
		svc.emailReport(sess)
		return sess, nil
	}
	return Session{}, ErrWriteConflict
}

// Code returns the current code tick for the unit's open session.
func (svc *Service) Code(ctx context.Context, unit catalog.Unit) (CodeTick, error) {
	sess, err := svc.Active(ctx, unit)
	if err != nil {
		return CodeTick{}, err
	}
	return Tick(sess), nil
}

// Tick derives the current code observation for a session.
func Tick(sess Session) CodeTick {
	code, slot, left := CurrentCode(sess.StartedAt, nowFunc())
	return CodeTick{Code: code, Slot: slot, SecondsLeft: left, CourseCode: sess.CourseCode}
}

// Roster

func (svc *Service) loadEntries(ctx context.Context, key string) ([]Entry, string, error) {
	data, ver, err := svc.store.Get(ctx, key)
	if err != nil {
		if errors.Cause(err) == core.ErrKeyNotFound {
			return nil, "", nil
		}
		return nil, "", errors.Wrap(err, "reading roster")
	}
	entries, err := unmarshalEntries(data)
	if err != nil {
		return nil, "", err
	}
	return entries, ver, nil
}

// Roster returns the session's entries with their current ordinals.
func (svc *Service) Roster(ctx context.Context, sess Session) ([]RosterRow, error) {
	entries, _, err := svc.loadEntries(ctx, sess.RosterKey)
	if err != nil {
		return nil, err
	}
	return renderRoster(entries), nil
}

// AddEntry appends a rep's manual entry. It does not pass the device gate:
// rep additions are authoritative and tied to no device.
func (svc *Service) AddEntry(ctx context.Context, sess Session, in EntryInput) (Entry, error) {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		entries, ver, err := svc.loadEntries(ctx, sess.RosterKey)
		if err != nil {
			return Entry{}, err
		}
		if hasDupName(in.Surname, in.FirstName, in.MiddleName, entries) {
			return Entry{}, ErrDuplicateName
		}
		if hasDupMatric(in.Matric, entries) {
			return Entry{}, ErrDuplicateMatric
		}

		e := in.entry(nowFunc())
		data, err := marshalEntries(append(entries, e))
		if err != nil {
			return Entry{}, err
		}
		if err = svc.store.Put(ctx, sess.RosterKey, data, "Add student entry", ver); err != nil {
			if errors.Cause(err) == core.ErrVersionConflict {
				continue
			}
			return Entry{}, errors.Wrap(err, "saving roster")
		}
		return e, nil
	}
	return Entry{}, ErrWriteConflict
}

// EditEntry replaces the entry at ordinal sn. The edited entry is excluded
// from its own duplicate checks; its original timestamp is preserved.
func (svc *Service) EditEntry(ctx context.Context, sess Session, sn int, in EntryInput) (Entry, error) {
	idx := sn - 1
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		entries, ver, err := svc.loadEntries(ctx, sess.RosterKey)
		if err != nil {
			return Entry{}, err
		}
		if idx < 0 || idx >= len(entries) {
			return Entry{}, ErrNoSuchEntry
		}

		others := excluding(entries, idx)
		if hasDupName(in.Surname, in.FirstName, in.MiddleName, others) {
			return Entry{}, ErrDuplicateName
		}
		if hasDupMatric(in.Matric, others) {
			return Entry{}, ErrDuplicateMatric
		}

		e := in.entry(nowFunc())
		e.Timestamp = entries[idx].Timestamp
		entries[idx] = e

		data, err := marshalEntries(entries)
		if err != nil {
			return Entry{}, err
		}
		if err = svc.store.Put(ctx, sess.RosterKey, data, "Update attendance entries", ver); err != nil {
			if errors.Cause(err) == core.ErrVersionConflict {
				continue
			}
			return Entry{}, errors.Wrap(err, "saving roster")
		}
		return e, nil
	}
	return Entry{}, ErrWriteConflict
}

// RemoveEntry deletes the entry at ordinal sn. Later entries renumber.
func (svc *Service) RemoveEntry(ctx context.Context, sess Session, sn int) error {
	idx := sn - 1
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		entries, ver, err := svc.loadEntries(ctx, sess.RosterKey)
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(entries) {
			return ErrNoSuchEntry
		}

		entries = append(entries[:idx], entries[idx+1:]...)
		data, err := marshalEntries(entries)
		if err != nil {
			return err
		}
		if err = svc.store.Put(ctx, sess.RosterKey, data, "Delete attendance entry", ver); err != nil {
			if errors.Cause(err) == core.ErrVersionConflict {
				continue
			}
			return errors.Wrap(err, "saving roster")
		}
		return nil
	}
	return ErrWriteConflict
}

// Submit is the student sign-in path: device gate first, then the code is
// revalidated at the instant of each commit attempt (form-filling latency
// can cross a slot boundary), then the duplicate guards against the freshest
// roster read.
func (svc *Service) Submit(ctx context.Context, unit catalog.Unit, deviceID, code string, in EntryInput) (Entry, error) {
	if core.CleanString(deviceID) == "" {
		return Entry{}, core.NewFieldError("device_id", "this field is required")
	}

	sess, err := svc.Active(ctx, unit)
	if err != nil {
		return Entry{}, err
	}

	used, err := svc.DeviceSubmitted(ctx, sess, deviceID)
	if err != nil {
		return Entry{}, err
	}
	if used {
		return Entry{}, ErrDeviceUsed
	}

	var accepted Entry
	for attempt := 0; ; attempt++ {
		if attempt == maxWriteAttempts {
			return Entry{}, ErrWriteConflict
		}

		// recompute-on-commit
		if !ValidCode(code, sess.StartedAt, nowFunc()) {
			return Entry{}, ErrInvalidCode
		}

		entries, ver, err := svc.loadEntries(ctx, sess.RosterKey)
		if err != nil {
			return Entry{}, err
		}
		if hasDupName(in.Surname, in.FirstName, in.MiddleName, entries) {
			return Entry{}, ErrDuplicateName
		}
		if hasDupMatric(in.Matric, entries) {
			return Entry{}, ErrDuplicateMatric
		}

		accepted = in.entry(nowFunc())
		data, err := marshalEntries(append(entries, accepted))
		if err != nil {
			return Entry{}, err
		}
		if err = svc.store.Put(ctx, sess.RosterKey, data, "Add student entry", ver); err != nil {
			if errors.Cause(err) == core.ErrVersionConflict {
				continue
			}
			return Entry{}, errors.Wrap(err, "saving roster")
		}
		break
	}

	// Lock this device. The entry is already accepted; a failure here only
	// loosens the device gate, it must not undo the roster write.
	if err = svc.registerDevice(ctx, sess.RosterKey, deviceID); err != nil {
		svc.logger.Error(fmt.Sprintf("registering device for %s: %v", sess.RosterKey, err), err)
	}
	return accepted, nil
}

// Records

// Records lists the unit's stored roster files, newest first.
func (svc *Service) Records(ctx context.Context, unit catalog.Unit) ([]string, error) {
	keys, err := svc.store.ListPrefix(ctx, unitDir(unit))
	if err != nil {
		return nil, errors.Wrap(err, "listing records")
	}
	records := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.HasSuffix(k, ".csv") {
			records = append(records, k)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(records)))
	return records, nil
}

// Record returns one stored roster CSV. Keys outside the unit's own
// directory do not resolve.
func (svc *Service) Record(ctx context.Context, unit catalog.Unit, key string) ([]byte, error) {
	if !strings.HasPrefix(key, unitDir(unit)+"/") || !strings.HasSuffix(key, ".csv") {
		return nil, ErrNoSuchRecord
	}
	data, _, err := svc.store.Get(ctx, key)
	if err != nil {
		if errors.Cause(err) == core.ErrKeyNotFound {
			return nil, ErrNoSuchRecord
		}
		return nil, errors.Wrap(err, "reading record")
	}
	return data, nil
}

// Report email

func (svc *Service) emailReport(sess Session) {
	if svc.mailSvc == nil || svc.conf == nil || svc.conf.Email.ReportAddress == "" {
		return
	}

	data, _, err := svc.store.Get(context.Background(), sess.RosterKey)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("fetching roster for report %s: %v", sess.RosterKey, err), err)
		return
	}

	msg := &core.EmailMessage{
		To:      []mail.Address{{Address: svc.conf.Email.ReportAddress}},
		Subject: fmt.Sprintf("Attendance report: %s (%s %s)", sess.CourseCode, sess.Date, strings.ReplaceAll(sess.StartTime, "-", ":")),
		BodyStr: fmt.Sprintf("Attendance for %s, %s has been closed. The roster is attached.", sess.CourseCode, sess.Unit()),
	}
	if err = msg.Attach(strings.NewReader(string(data)), path.Base(sess.RosterKey), "text/csv"); err != nil {
		svc.logger.Error(fmt.Sprintf("attaching roster report: %v", err), err)
		return
	}
	svc.mailSvc.SendMessages(msg)
}
