package attendance

import (
	"fmt"
	"strings"

	"github.com/epe202/ulas/core/catalog"
)

const (
	directoryKey    = "active_attendances.json"
	attendancesRoot = "attendances"
)

var segmentReplacer = strings.NewReplacer(
	"/", "_",
	" ", "_",
	"(", "_",
	")", "_",
	",", "_",
)

func safeSegment(s string) string {
	return segmentReplacer.Replace(s)
}

// unitDir is the store prefix holding all of a unit's rosters, past and present.
func unitDir(u catalog.Unit) string {
	return fmt.Sprintf("%s/%s/%s/%sL", attendancesRoot, safeSegment(u.School), safeSegment(u.Department), u.Level)
}

func rosterKey(u catalog.Unit, courseCode, date, timeLabel string) string {
	code := strings.ReplaceAll(courseCode, " ", "_")
	return fmt.Sprintf("%s/%s_%s_%s.csv", unitDir(u), code, date, timeLabel)
}

// devicesKey is the device set stored beside a roster.
func devicesKey(rosterKey string) string {
	return strings.TrimSuffix(rosterKey, ".csv") + "_devices.json"
}
