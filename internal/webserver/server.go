package webserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/talkincode/toughpos/internal/app"
	"go.uber.org/zap"
)

const (
	ApiPrefix       = "/api/v1"
	AppContextKey   = "appctx"
	ActorContextKey = "actor"
)

var server *AdminServer

// AdminServer is the HTTP front of the POS.
type AdminServer struct {
	root   *echo.Echo
	api    *echo.Group
	public *echo.Group
	appCtx app.AppContext
}

// Init builds the package level server that the Api* helpers register on.
func Init(appCtx app.AppContext) {
	server = NewAdminServer(appCtx)
}

func NewAdminServer(appCtx app.AppContext) *AdminServer {
	// money goes out as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	cfg := appCtx.Config()
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(log.OFF)
	if cfg.System.Debug {
		e.Logger.SetLevel(log.DEBUG)
	}
	e.JSONSerializer = &JSONSerializer{}
	e.Validator = NewValidator()
	e.HTTPErrorHandler = httpErrorHandler

	registry := prometheus.NewRegistry()
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(accessLog)
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "toughpos",
		Registerer: registry,
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(AppContextKey, appCtx)
			return next(c)
		}
	})

	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: registry}))
	e.Static("/uploads", cfg.GetUploadDir())

	s := &AdminServer{root: e, appCtx: appCtx}
	s.public = e.Group(ApiPrefix)
	s.api = e.Group(ApiPrefix, jwtMiddleware(cfg.Web.Secret), resolveActor)
	return s
}

// Echo exposes the router of the package level server.
func Echo() *echo.Echo {
	return server.root
}

// Start listens on the configured address until Shutdown.
func Start() error {
	cfg := server.appCtx.Config()
	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	zap.S().Infof("Start web server %s", addr)
	err := server.root.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func Shutdown(ctx context.Context) error {
	return server.root.Shutdown(ctx)
}

// ApiGET registers an authenticated GET route, extra middleware runs after authentication.
func ApiGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.GET(path, h, m...)
}

func ApiPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.POST(path, h, m...)
}

func ApiPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.PUT(path, h, m...)
}

func ApiDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.DELETE(path, h, m...)
}

// PublicGET registers a route that needs no token.
func PublicGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.public.GET(path, h, m...)
}

func PublicPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.public.POST(path, h, m...)
}

// GetAppContext returns the application injected into every request.
func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(AppContextKey).(app.AppContext)
}

func accessLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		req := c.Request()
		res := c.Response()
		zap.L().Info("http_request",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", res.Status),
			zap.Duration("latency", time.Since(start)),
			zap.String("remote_ip", c.RealIP()),
			zap.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
			zap.String("namespace", "web"))
		return nil
	}
}
