package attendance

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/epe202/ulas/core"
	"github.com/epe202/ulas/core/catalog"
	inmemstore "github.com/epe202/ulas/storage/inmem"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

var (
	seet = catalog.Unit{School: "School of Engineering and Engineering Technology (SEET)", Department: "Chemical Engineering", Level: "400"}
	sict = catalog.Unit{School: "School of Information and Communication Technology (SICT)", Department: "Computer Science", Level: "200"}

	chinedu = EntryInput{Surname: "OKAFOR", FirstName: "CHINEDU", MiddleName: "PAUL", Matric: "20191234567"}
	aisha   = EntryInput{Surname: "BELLO", FirstName: "AISHA", Matric: "20197654321"}
)

func setup(t *testing.T) (*Service, *inmemstore.Store) {
	t.Helper()
	store := inmemstore.Open()
	return NewService(store, nopLogger{}, nil, nil), store
}

// freezeClock pins nowFunc to a fixed instant and returns a function that
// advances it.
func freezeClock(t *testing.T, at time.Time) func(d time.Duration) {
	t.Helper()
	now := at
	nowFunc = func() time.Time { return now }
	t.Cleanup(func() { nowFunc = time.Now })
	return func(d time.Duration) { now = now.Add(d) }
}

func TestService_StartActiveEnd(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	freezeClock(t, time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC))

	if _, err := svc.Active(ctx, seet); err != ErrNoActiveSession {
		t.Errorf("Active() error = %v, want ErrNoActiveSession", err)
	}

	sess, err := svc.Start(ctx, seet, "che 401")
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if sess.CourseCode != "CHE 401" {
		t.Errorf("CourseCode = %s, want CHE 401", sess.CourseCode)
	}
	if sess.Date != "2026-03-16" || sess.StartTime != "09-00-00" {
		t.Errorf("unexpected date/time labels: %s %s", sess.Date, sess.StartTime)
	}

	// a second session for the same unit is refused
	if _, err = svc.Start(ctx, seet, "CHE 402"); err != ErrSessionExists {
		t.Errorf("Start() error = %v, want ErrSessionExists", err)
	}

	// other units are unaffected
	if _, err = svc.Start(ctx, sict, "CSC 201"); err != nil {
		t.Errorf("Start() for another unit failed: %v", err)
	}

	got, err := svc.Active(ctx, seet)
	if err != nil {
		t.Fatalf("Active() failed: %v", err)
	}
	if got.RosterKey != sess.RosterKey {
		t.Errorf("Active().RosterKey = %s, want %s", got.RosterKey, sess.RosterKey)
	}

	ended, err := svc.End(ctx, seet)
	if err != nil {
		t.Fatalf("End() failed: %v", err)
	}
	if ended.RosterKey != sess.RosterKey {
		t.Errorf("End().RosterKey = %s, want %s", ended.RosterKey, sess.RosterKey)
	}
	if _, err = svc.End(ctx, seet); err != ErrNoActiveSession {
		t.Errorf("End() error = %v, want ErrNoActiveSession", err)
	}

	// the roster outlives the session
	records, err := svc.Records(ctx, seet)
	if err != nil {
		t.Fatalf("Records() failed: %v", err)
	}
	if len(records) != 1 || records[0] != sess.RosterKey {
		t.Errorf("Records() = %v, want [%s]", records, sess.RosterKey)
	}
}

func TestService_StartConcurrent(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	freezeClock(t, time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC))

	const racers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Start(ctx, seet, "CHE 401"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("got %d winners, want exactly 1", wins)
	}
	if _, err := svc.Active(ctx, seet); err != nil {
		t.Errorf("Active() after race failed: %v", err)
	}
}

func TestService_Submit(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	advance := freezeClock(t, time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC))

	sess, err := svc.Start(ctx, seet, "CHE 401")
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	currentCode := func() string { return Tick(sess).Code }
	wrongCode := func() string {
		if currentCode() == "0000" {
			return "1111"
		}
		return "0000"
	}

	advance(3 * time.Second)
	if _, err = svc.Submit(ctx, seet, "device-a", currentCode(), chinedu); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	roster, err := svc.Roster(ctx, sess)
	if err != nil {
		t.Fatalf("Roster() failed: %v", err)
	}
	if len(roster) != 1 || roster[0].Matric != chinedu.Matric || roster[0].SN != 1 {
		t.Fatalf("unexpected roster: %+v", roster)
	}
	if roster[0].Timestamp != "2026-03-16 09:00:03" {
		t.Errorf("Timestamp = %s, want acceptance instant", roster[0].Timestamp)
	}

	tests := []struct {
		name     string
		deviceID string
		code     string
		in       EntryInput
		wantErr  error
	}{
		{name: "device already used", deviceID: "device-a", code: currentCode(), in: aisha, wantErr: ErrDeviceUsed},
		{name: "duplicate name", deviceID: "device-b", code: currentCode(), in: chinedu, wantErr: ErrDuplicateName},
		{
			name: "duplicate matric", deviceID: "device-b", code: currentCode(),
			in:      EntryInput{Surname: "BELLO", FirstName: "AISHA", Matric: chinedu.Matric},
			wantErr: ErrDuplicateMatric,
		},
		{name: "wrong code", deviceID: "device-b", code: wrongCode(), in: aisha, wantErr: ErrInvalidCode},
		{name: "accepted", deviceID: "device-b", code: currentCode(), in: aisha},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(ctx, seet, tt.deviceID, tt.code, tt.in)
			if err != tt.wantErr {
				t.Errorf("Submit() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	t.Run("no active session", func(t *testing.T) {
		if _, err := svc.Submit(ctx, sict, "device-c", "1234", aisha); err != ErrNoActiveSession {
			t.Errorf("Submit() error = %v, want ErrNoActiveSession", err)
		}
	})
}

func TestService_SubmitStaleCode(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	advance := freezeClock(t, time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC))

	sess, err := svc.Start(ctx, seet, "CHE 401")
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	// hold a code, then move the clock until the displayed code has moved on
	stale := Tick(sess).Code
	for i := 0; i < 20; i++ {
		advance(CodeInterval)
		if Tick(sess).Code != stale {
			break
		}
	}
	if Tick(sess).Code == stale {
		t.Fatal("code never rotated; cannot exercise the stale path")
	}

	if _, err = svc.Submit(ctx, seet, "device-a", stale, chinedu); err != ErrInvalidCode {
		t.Errorf("Submit() error = %v, want ErrInvalidCode", err)
	}
	// the device gate must not have latched on the failed attempt
	if _, err = svc.Submit(ctx, seet, "device-a", Tick(sess).Code, chinedu); err != nil {
		t.Errorf("Submit() with fresh code failed: %v", err)
	}
}

func TestService_SubmitRetriesOnConflict(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()
	freezeClock(t, time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC))

	sess, err := svc.Start(ctx, seet, "CHE 401")
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	conflicts := 1
	store.PutHook = func(key string) error {
		if key == sess.RosterKey && conflicts > 0 {
			conflicts--
			return core.ErrVersionConflict
		}
		return nil
	}

	if _, err = svc.Submit(ctx, seet, "device-a", Tick(sess).Code, chinedu); err != nil {
		t.Fatalf("Submit() failed despite retry budget: %v", err)
	}

	// a conflict on every attempt exhausts the budget
	store.PutHook = func(key string) error {
		if key == sess.RosterKey {
			return core.ErrVersionConflict
		}
		return nil
	}
	if _, err = svc.Submit(ctx, seet, "device-b", Tick(sess).Code, aisha); err != ErrWriteConflict {
		t.Errorf("Submit() error = %v, want ErrWriteConflict", err)
	}
}

func TestService_EntryManagement(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	advance := freezeClock(t, time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC))

	sess, err := svc.Start(ctx, seet, "CHE 401")
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	// rep additions skip the device gate and the code check
	if _, err = svc.AddEntry(ctx, sess, chinedu); err != nil {
		t.Fatalf("AddEntry() failed: %v", err)
	}
	advance(time.Minute)
	if _, err = svc.AddEntry(ctx, sess, aisha); err != nil {
		t.Fatalf("AddEntry() failed: %v", err)
	}
	if _, err = svc.AddEntry(ctx, sess, chinedu); err != ErrDuplicateName {
		t.Errorf("AddEntry() error = %v, want ErrDuplicateName", err)
	}

	t.Run("edit keeps the original timestamp", func(t *testing.T) {
		edited := chinedu
		edited.Matric = "20190000001"
		got, err := svc.EditEntry(ctx, sess, 1, edited)
		if err != nil {
			t.Fatalf("EditEntry() failed: %v", err)
		}
		if got.Matric != "20190000001" {
			t.Errorf("Matric = %s, want 20190000001", got.Matric)
		}
		if got.Timestamp != "2026-03-16 09:00:00" {
			t.Errorf("Timestamp = %s, want the original one", got.Timestamp)
		}
	})

	t.Run("edit into a duplicate is refused", func(t *testing.T) {
		edited := chinedu
		edited.Matric = aisha.Matric
		if _, err := svc.EditEntry(ctx, sess, 1, edited); err != ErrDuplicateMatric {
			t.Errorf("EditEntry() error = %v, want ErrDuplicateMatric", err)
		}
	})

	t.Run("edit may keep its own matric", func(t *testing.T) {
		edited := chinedu
		edited.Matric = "20190000001"
		edited.MiddleName = "JOHN"
		if _, err := svc.EditEntry(ctx, sess, 1, edited); err != nil {
			t.Errorf("EditEntry() failed: %v", err)
		}
	})

	t.Run("unknown ordinals", func(t *testing.T) {
		if _, err := svc.EditEntry(ctx, sess, 0, aisha); err != ErrNoSuchEntry {
			t.Errorf("EditEntry(0) error = %v, want ErrNoSuchEntry", err)
		}
		if _, err := svc.EditEntry(ctx, sess, 3, aisha); err != ErrNoSuchEntry {
			t.Errorf("EditEntry(3) error = %v, want ErrNoSuchEntry", err)
		}
		if err := svc.RemoveEntry(ctx, sess, 9); err != ErrNoSuchEntry {
			t.Errorf("RemoveEntry(9) error = %v, want ErrNoSuchEntry", err)
		}
	})

	t.Run("remove renumbers", func(t *testing.T) {
		if err := svc.RemoveEntry(ctx, sess, 1); err != nil {
			t.Fatalf("RemoveEntry() failed: %v", err)
		}
		roster, err := svc.Roster(ctx, sess)
		if err != nil {
			t.Fatalf("Roster() failed: %v", err)
		}
		if len(roster) != 1 || roster[0].SN != 1 || roster[0].Matric != aisha.Matric {
			t.Errorf("unexpected roster after removal: %+v", roster)
		}
	})
}

func TestService_Records(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	advance := freezeClock(t, time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC))

	first, err := svc.Start(ctx, seet, "CHE 401")
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if _, err = svc.End(ctx, seet); err != nil {
		t.Fatalf("End() failed: %v", err)
	}

	advance(2 * time.Hour)
	second, err := svc.Start(ctx, seet, "CHE 403")
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if _, err = svc.Submit(ctx, seet, "device-a", Tick(second).Code, chinedu); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if _, err = svc.End(ctx, seet); err != nil {
		t.Fatalf("End() failed: %v", err)
	}

	records, err := svc.Records(ctx, seet)
	if err != nil {
		t.Fatalf("Records() failed: %v", err)
	}
	// newest first, device files filtered out
	if len(records) != 2 || records[0] != second.RosterKey || records[1] != first.RosterKey {
		t.Errorf("Records() = %v, want [%s %s]", records, second.RosterKey, first.RosterKey)
	}

	t.Run("download", func(t *testing.T) {
		data, err := svc.Record(ctx, seet, second.RosterKey)
		if err != nil {
			t.Fatalf("Record() failed: %v", err)
		}
		if !strings.Contains(string(data), chinedu.Matric) {
			t.Errorf("record does not contain the entry: %s", data)
		}
	})

	t.Run("foreign keys do not resolve", func(t *testing.T) {
		if _, err := svc.Record(ctx, sict, second.RosterKey); err != ErrNoSuchRecord {
			t.Errorf("Record() error = %v, want ErrNoSuchRecord", err)
		}
		if _, err := svc.Record(ctx, seet, directoryKey); err != ErrNoSuchRecord {
			t.Errorf("Record(directory) error = %v, want ErrNoSuchRecord", err)
		}
	})
}
