package webserver

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/talkincode/toughpos/config"
	"github.com/talkincode/toughpos/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Claims is the token payload, Subject holds the account id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs a bearer token for actor.
func IssueToken(cfg *config.AppConfig, actor domain.Actor) (string, error) {
	expire := time.Duration(cfg.Web.TokenExpire) * time.Hour
	if expire <= 0 {
		expire = 24 * time.Hour
	}
	now := time.Now()
	claims := &Claims{
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(actor.ID, 10),
			Issuer:    cfg.System.Appid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expire)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Web.Secret))
}

func jwtMiddleware(secret string) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(secret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(Claims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return JSONError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Not authorized to access this route", nil)
		},
	})
}

// resolveActor turns verified claims into a domain.Actor. Staff roles are
// read from the account so role changes apply to live tokens.
func resolveActor(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := c.Get("user").(*jwt.Token)
		if !ok {
			return JSONError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Not authorized to access this route", nil)
		}
		claims, ok := token.Claims.(*Claims)
		if !ok {
			return JSONError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Not authorized to access this route", nil)
		}
		id, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			return JSONError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token subject", nil)
		}
		role, err := domain.ParseRole(claims.Role)
		if err != nil {
			return JSONError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unrecognized user role", nil)
		}

		db := GetAppContext(c).DB().WithContext(c.Request().Context())
		if role == domain.RoleCustomer {
			var cust domain.Customer
			err = db.Select("id").Where("id = ?", id).First(&cust).Error
		} else {
			var opr domain.SysOpr
			err = db.Select("id", "role").Where("id = ?", id).First(&opr).Error
			if err == nil {
				role, err = domain.ParseRole(opr.Role)
				if err == nil && !role.IsStaff() {
					err = errors.New("staff account carries a non staff role")
				}
			}
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return JSONError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Account no longer exists", nil)
		} else if err != nil {
			zap.L().Error("resolve actor failed", zap.Int64("id", id), zap.Error(err))
			return JSONError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Not authorized to access this route", nil)
		}

		c.Set(ActorContextKey, domain.Actor{ID: id, Role: role})
		return next(c)
	}
}

// GetActor returns the authenticated caller.
func GetActor(c echo.Context) (domain.Actor, bool) {
	actor, ok := c.Get(ActorContextKey).(domain.Actor)
	return actor, ok
}

// RequireRoles allows the request through only for the given roles.
func RequireRoles(roles ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := GetActor(c)
			if !ok {
				return JSONError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Not authorized to access this route", nil)
			}
			if !actor.HasRole(roles...) {
				return JSONError(c, http.StatusForbidden, "FORBIDDEN",
					"User role "+string(actor.Role)+" is not authorized to access this route", nil)
			}
			return next(c)
		}
	}
}

var (
	RequireStaff = RequireRoles(domain.RoleAdmin, domain.RoleOfficer)
	RequireAdmin = RequireRoles(domain.RoleAdmin)
)
