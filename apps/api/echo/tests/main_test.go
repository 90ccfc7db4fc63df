package tests

import (
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	. "github.com/epe202/ulas/apps/api/echo"
	"github.com/epe202/ulas/core"
	"github.com/epe202/ulas/core/attendance"
	"github.com/epe202/ulas/core/catalog"
	"github.com/epe202/ulas/core/rep"
	inmemstore "github.com/epe202/ulas/storage/inmem"
)

var (
	seet = catalog.Unit{
		School:     "School of Engineering and Engineering Technology (SEET)",
		Department: "Chemical Engineering",
		Level:      "400",
	}
	sict = catalog.Unit{
		School:     "School of Information and Communication Technology (SICT)",
		Department: "Computer Science",
		Level:      "200",
	}

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

type testEnv struct {
	app    Server
	store  *inmemstore.Store
	attSvc *attendance.Service
	repSvc *rep.Service
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	conf := &core.Config{
		TestMode:                  true,
		Env:                       "TEST",
		AppName:                   "ULAS",
		SecretKey:                 []byte("test-secret"),
		JWTExpirationDelta:        time.Hour,
		JWTRefreshExpirationDelta: 2 * time.Hour,
		Server:                    core.ServerConfig{Addr: ":0"},
	}

	// set up the store & services
	store := inmemstore.Open()
	logger := nopLogger{}
	attSvc := attendance.NewService(store, logger, nil, nil)
	repSvc := rep.NewService(store, logger)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	// set up server
	app := NewServer(
		ServerDeps{
			Conf:          conf,
			Logger:        logger,
			AttendanceSvc: attSvc,
			RepSvc:        repSvc,
			Validate:      validate,
			Translator:    translator,
		},
	)

	return &testEnv{app: app, store: store, attSvc: attSvc, repSvc: repSvc}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
