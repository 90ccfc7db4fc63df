package rep

import (
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/epe202/ulas/core"
	"github.com/epe202/ulas/core/catalog"
)

const pwdMaxSim = 0.7

var (
	pwdMinLenErr     = "password must be at least 8 characters"
	pwdNoSpaceErr    = "password must not contain whitespace"
	pwdNotAllNumErr  = "password cannot be entirely numeric"
	pwdUnitSimErr    = "password is too similar to the unit's identity"
	pwdDefaultishErr = "password cannot be the unit's default password"
)

// validatePassword enforces the custom rep password rules:
// - minLen: 8
// - no whitespace
// - not all numeric
// - not the default password, nor similar to the unit's identity
func validatePassword(pwd string, unit catalog.Unit) error {
	reportErr := func(text string) error {
		return core.NewFieldError("password", text)
	}

	if len(pwd) < 8 {
		return reportErr(pwdMinLenErr)
	}

	digitCount := 0
	for _, char := range []rune(pwd) {
		if unicode.IsSpace(char) {
			return reportErr(pwdNoSpaceErr)
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
	}
	if digitCount == len(pwd) {
		return reportErr(pwdNotAllNumErr)
	}

	if strings.EqualFold(pwd, DefaultPassword(unit)) {
		return reportErr(pwdDefaultishErr)
	}

	getRatio := func(pass, attr string) float64 {
		if attr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(pass, ""), strings.Split(attr, "")).QuickRatio()
	}
	lpwd := strings.ToLower(pwd)
	if getRatio(lpwd, strings.ToLower(unit.Department)) >= pwdMaxSim ||
		getRatio(lpwd, strings.ToLower(DefaultPassword(unit))) >= pwdMaxSim {
		return reportErr(pwdUnitSimErr)
	}
	return nil
}
