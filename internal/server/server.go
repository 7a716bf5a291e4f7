package server

import (
	"net/http"

	"app/internal/metrics"
	"app/internal/middleware"

	"github.com/labstack/echo/v4"
)

// New はミドルウェアと運用系のルートを設定したechoを返す。
func New() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestLogger())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	return e
}

func Start(e *echo.Echo, addr string) error {
	return e.Start(addr)
}
