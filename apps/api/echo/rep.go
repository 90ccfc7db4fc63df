package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/epe202/ulas/core"
	"github.com/epe202/ulas/core/catalog"
	"github.com/epe202/ulas/core/rep"
)

type repApi struct {
	svc        *rep.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerRepAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := repApi{
		svc:        deps.RepSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	rg := g.Group("/reps")

	// un-authed endpoints
	rg.POST("/login", api.login)

	// authed endpoints
	ag := rg.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)
}

// Handlers

func (api *repApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := authenticate(ctx.Request().Context(), data.Unit(), data.Password, api.svc)
	if err != nil {
		return err
	}
	token, err := GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *repApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

type (
	LoginRequest struct {
		School     string `json:"school" validate:"required"`
		Department string `json:"department" validate:"required"`
		Level      string `json:"level" validate:"required"`
		Password   string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.School = core.CleanString(lr.School)
	lr.Department = core.CleanString(lr.Department)
	lr.Level = core.CleanString(lr.Level)
	return validate.Struct(lr)
}

func (lr LoginRequest) Unit() catalog.Unit {
	return catalog.Unit{School: lr.School, Department: lr.Department, Level: lr.Level}
}
