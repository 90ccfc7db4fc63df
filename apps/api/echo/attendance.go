package echoapi

import (
	"fmt"
	"net/http"
	"path"
	"strconv"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/epe202/ulas/core"
	"github.com/epe202/ulas/core/attendance"
	"github.com/epe202/ulas/core/catalog"
)

// sessionRecheckTicks is how many live-feed ticks pass between directory
// re-reads confirming the session is still open.
const sessionRecheckTicks = 30

type attendanceApi struct {
	svc        *attendance.Service
	logger     core.Logger
	validate   *validator.Validate
	translator ut.Translator
	upgrader   websocket.Upgrader
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := attendanceApi{
		svc:        deps.AttendanceSvc,
		logger:     deps.Logger,
		validate:   deps.Validate,
		translator: deps.Translator,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	// un-authed endpoints: the student sign-in path
	g.GET("/attendance/active", api.active)
	g.POST("/attendance/submit", api.submit)

	// authed endpoints: the course rep console
	ag := g.Group("/attendance", jwt)
	ag.POST("", api.start)
	ag.GET("", api.retrieve)
	ag.DELETE("", api.end)
	ag.GET("/code", api.code)
	ag.GET("/live", api.live)
	ag.POST("/entries", api.addEntry)
	ag.PUT("/entries/:sn", api.editEntry)
	ag.DELETE("/entries/:sn", api.removeEntry)
	ag.GET("/records", api.records)
	ag.GET("/records/download", api.download)
}

// Student handlers

// active tells a student whether their unit has an open attendance. The
// response never carries the session start time; with it the whole code
// schedule could be computed offline.
func (api *attendanceApi) active(ctx echo.Context) error {
	var data UnitQuery
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UnitQuery")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sess, err := api.svc.Active(ctx.Request().Context(), data.Unit())
	if err != nil {
		return errors.Wrap(err, "looking up active session")
	}
	return ctx.JSON(http.StatusOK, newActiveSessionResponse(sess))
}

func (api *attendanceApi) submit(ctx echo.Context) error {
	var data SubmitRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	entry, err := api.svc.Submit(ctx.Request().Context(), data.Unit(), data.DeviceID, data.Code, data.Entry())
	if err != nil {
		return errors.Wrap(err, "submitting entry")
	}
	return ctx.JSON(http.StatusCreated, entry)
}

// Rep handlers

func (api *attendanceApi) start(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data StartRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StartRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sess, err := api.svc.Start(ctx.Request().Context(), claims.Unit(), data.CourseCode)
	if err != nil {
		return errors.Wrap(err, "starting attendance")
	}
	return ctx.JSON(http.StatusCreated, sess)
}

func (api *attendanceApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	sess, err := api.svc.Active(ctx.Request().Context(), claims.Unit())
	if err != nil {
		return errors.Wrap(err, "looking up active session")
	}
	roster, err := api.svc.Roster(ctx.Request().Context(), sess)
	if err != nil {
		return errors.Wrap(err, "loading roster")
	}
	return ctx.JSON(http.StatusOK, SessionResponse{Session: sess, Roster: roster})
}

func (api *attendanceApi) end(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	sess, err := api.svc.End(ctx.Request().Context(), claims.Unit())
	if err != nil {
		return errors.Wrap(err, "ending attendance")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *attendanceApi) code(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	tick, err := api.svc.Code(ctx.Request().Context(), claims.Unit())
	if err != nil {
		return errors.Wrap(err, "computing code")
	}
	return ctx.JSON(http.StatusOK, tick)
}

// live streams the rotating code to the rep console over a websocket, one
// tick per second. The session is re-checked periodically so a feed for an
// ended session closes instead of announcing codes forever.
func (api *attendanceApi) live(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	sess, err := api.svc.Active(ctx.Request().Context(), claims.Unit())
	if err != nil {
		return errors.Wrap(err, "looking up active session")
	}

	conn, err := api.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return errors.Wrap(err, "upgrading connection")
	}
	defer conn.Close()

	// drain client frames; a read error means the peer is gone
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for ticks := 0; ; ticks++ {
		select {
		case <-done:
			return nil
		case <-ctx.Request().Context().Done():
			return nil
		case <-ticker.C:
		}

		if ticks%sessionRecheckTicks == 0 && ticks > 0 {
			fresh, err := api.svc.Active(ctx.Request().Context(), claims.Unit())
			if err != nil {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "attendance closed")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
				return nil
			}
			sess = fresh
		}

		if err := conn.WriteJSON(attendance.Tick(sess)); err != nil {
			return nil
		}
	}
}

func (api *attendanceApi) addEntry(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data attendance.EntryInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EntryInput")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sess, err := api.svc.Active(ctx.Request().Context(), claims.Unit())
	if err != nil {
		return errors.Wrap(err, "looking up active session")
	}
	entry, err := api.svc.AddEntry(ctx.Request().Context(), sess, data)
	if err != nil {
		return errors.Wrap(err, "adding entry")
	}
	return ctx.JSON(http.StatusCreated, entry)
}

func (api *attendanceApi) editEntry(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	sn, err := strconv.Atoi(ctx.Param("sn"))
	if err != nil {
		return attendance.ErrNoSuchEntry
	}

	var data attendance.EntryInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EntryInput")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sess, err := api.svc.Active(ctx.Request().Context(), claims.Unit())
	if err != nil {
		return errors.Wrap(err, "looking up active session")
	}
	entry, err := api.svc.EditEntry(ctx.Request().Context(), sess, sn, data)
	if err != nil {
		return errors.Wrap(err, "editing entry")
	}
	return ctx.JSON(http.StatusOK, entry)
}

func (api *attendanceApi) removeEntry(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	sn, err := strconv.Atoi(ctx.Param("sn"))
	if err != nil {
		return attendance.ErrNoSuchEntry
	}

	sess, err := api.svc.Active(ctx.Request().Context(), claims.Unit())
	if err != nil {
		return errors.Wrap(err, "looking up active session")
	}
	if err = api.svc.RemoveEntry(ctx.Request().Context(), sess, sn); err != nil {
		return errors.Wrap(err, "removing entry")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *attendanceApi) records(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	keys, err := api.svc.Records(ctx.Request().Context(), claims.Unit())
	if err != nil {
		return errors.Wrap(err, "listing records")
	}
	records := make([]RecordResponse, 0, len(keys))
	for _, k := range keys {
		records = append(records, RecordResponse{Key: k, Filename: path.Base(k)})
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceApi) download(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	key := ctx.QueryParam("key")
	data, err := api.svc.Record(ctx.Request().Context(), claims.Unit(), key)
	if err != nil {
		return errors.Wrap(err, "reading record")
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", path.Base(key)))
	return ctx.Blob(http.StatusOK, "text/csv", data)
}

type (
	UnitQuery struct {
		School     string `query:"school" validate:"required"`
		Department string `query:"department" validate:"required"`
		Level      string `query:"level" validate:"required"`
	}

	// ActiveSessionResponse is the student-facing view of an open session.
	ActiveSessionResponse struct {
		School     string `json:"school"`
		Department string `json:"department"`
		Level      string `json:"level"`
		CourseCode string `json:"course_code"`
		Date       string `json:"date"`
		StartTime  string `json:"start_time"`
	}

	StartRequest struct {
		CourseCode string `json:"course_code" validate:"required"`
	}

	SubmitRequest struct {
		School     string `json:"school" validate:"required"`
		Department string `json:"department" validate:"required"`
		Level      string `json:"level" validate:"required"`
		DeviceID   string `json:"device_id" validate:"required"`
		Code       string `json:"code" validate:"required,attcode"`
		Surname    string `json:"surname" validate:"required"`
		FirstName  string `json:"first_name" validate:"required"`
		MiddleName string `json:"middle_name"`
		Matric     string `json:"matric" validate:"required,matric"`
	}

	SessionResponse struct {
		Session attendance.Session      `json:"session"`
		Roster  []attendance.RosterRow  `json:"roster"`
	}

	RecordResponse struct {
		Key      string `json:"key"`
		Filename string `json:"filename"`
	}
)

func (uq *UnitQuery) Validate(validate *validator.Validate) error {
	uq.School = core.CleanString(uq.School)
	uq.Department = core.CleanString(uq.Department)
	uq.Level = core.CleanString(uq.Level)
	return validate.Struct(uq)
}

func (uq UnitQuery) Unit() catalog.Unit {
	return catalog.Unit{School: uq.School, Department: uq.Department, Level: uq.Level}
}

func newActiveSessionResponse(sess attendance.Session) ActiveSessionResponse {
	return ActiveSessionResponse{
		School:     sess.School,
		Department: sess.Department,
		Level:      sess.Level,
		CourseCode: sess.CourseCode,
		Date:       sess.Date,
		StartTime:  sess.StartTime,
	}
}

func (sr *StartRequest) Validate(validate *validator.Validate) error {
	sr.CourseCode = core.CleanString(sr.CourseCode, true /* upper */)
	return validate.Struct(sr)
}

func (sr *SubmitRequest) Validate(validate *validator.Validate) error {
	sr.School = core.CleanString(sr.School)
	sr.Department = core.CleanString(sr.Department)
	sr.Level = core.CleanString(sr.Level)
	sr.DeviceID = core.CleanString(sr.DeviceID)
	sr.Code = core.CleanString(sr.Code)
	sr.Surname = core.CleanString(sr.Surname, true /* upper */)
	sr.FirstName = core.CleanString(sr.FirstName, true /* upper */)
	sr.MiddleName = core.CleanString(sr.MiddleName, true /* upper */)
	sr.Matric = core.CleanString(sr.Matric, true /* upper */)
	return validate.Struct(sr)
}

func (sr SubmitRequest) Unit() catalog.Unit {
	return catalog.Unit{School: sr.School, Department: sr.Department, Level: sr.Level}
}

func (sr SubmitRequest) Entry() attendance.EntryInput {
	return attendance.EntryInput{
		Surname:    sr.Surname,
		FirstName:  sr.FirstName,
		MiddleName: sr.MiddleName,
		Matric:     sr.Matric,
	}
}
