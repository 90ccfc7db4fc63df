package attendance

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

const (
	// CodeInterval is the length of one code slot. The displayed code is
	// constant within a slot and stops working the instant the slot ends.
	CodeInterval = 10 * time.Second

	// slotSeedStep spreads consecutive slot seeds apart. Protocol constant:
	// changing it breaks code agreement between independently deployed
	// processes, so it is baked in rather than configured.
	slotSeedStep = 997
)

// CurrentCode derives the attendance code for the given instant from the
// session start time alone. Any party that knows startedAt computes the same
// code locally; the rep's display and the student validation never exchange
// codes, they agree by shared deterministic computation.
//
// secsLeft is the sub-second time remaining in the current slot, for display.
func CurrentCode(startedAt, now time.Time) (code string, slot int64, secsLeft float64) {
	elapsed := now.Sub(startedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	slot = int64(elapsed / CodeInterval)

	seed := unixMillis(startedAt) + slot*slotSeedStep
	rng := rand.New(rand.NewSource(seed))
	code = fmt.Sprintf("%04d", rng.Intn(10000))

	secsLeft = (CodeInterval - elapsed%CodeInterval).Seconds()
	return code, slot, secsLeft
}

// ValidCode reports whether entered matches the code of the slot `now` falls
// in. Codes from adjacent slots are rejected: the slot boundary is a hard
// cliff, not a sliding window, so an overheard stale code cannot be replayed.
func ValidCode(entered string, startedAt, now time.Time) bool {
	current, _, _ := CurrentCode(startedAt, now)
	return strings.TrimSpace(entered) == current
}

func unixMillis(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}
