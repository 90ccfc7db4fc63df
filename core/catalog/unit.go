package catalog

import "fmt"

// Unit identifies a course-rep cohort: one (school, department, level) triple.
type Unit struct {
	School     string `json:"school"`
	Department string `json:"department"`
	Level      string `json:"level"` // level number only, e.g. "300"
}

// Key is the unit's identity in stored key-value documents.
func (u Unit) Key() string {
	return fmt.Sprintf("%s||%s||%s", u.School, u.Department, u.Level)
}

func (u Unit) String() string {
	return fmt.Sprintf("%s · %s · %sL", u.School, u.Department, u.Level)
}

// Known reports whether the unit exists in the institutional tables.
func (u Unit) Known() bool {
	for _, lvl := range Levels(u.School, u.Department) {
		if lvl == u.Level {
			for _, dep := range Departments(u.School) {
				if dep == u.Department {
					return true
				}
			}
		}
	}
	return false
}
