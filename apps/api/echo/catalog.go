package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/epe202/ulas/core/catalog"
)

func registerCatalogAPI(g *echo.Group) {
	cg := g.Group("/catalog")
	cg.GET("/schools", listSchools)
	cg.GET("/departments", listDepartments)
	cg.GET("/levels", listLevels)
}

func listSchools(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, catalog.Schools())
}

func listDepartments(ctx echo.Context) error {
	depts := catalog.Departments(ctx.QueryParam("school"))
	if depts == nil {
		depts = []string{}
	}
	return ctx.JSON(http.StatusOK, depts)
}

func listLevels(ctx echo.Context) error {
	levels := catalog.Levels(ctx.QueryParam("school"), ctx.QueryParam("department"))
	if levels == nil {
		levels = []string{}
	}
	return ctx.JSON(http.StatusOK, levels)
}
