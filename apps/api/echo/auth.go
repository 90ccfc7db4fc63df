package echoapi

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/epe202/ulas/core/catalog"
	"github.com/epe202/ulas/core/rep"
)

var (
	// appJWTConfig is the default JWT auth middleware config.
	appJWTConfig = middleware.JWTConfig{
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "repToken",
		Claims:        new(Claims),
	}
	appName                   string
	jwtExpirationDelta        time.Duration
	jwtRefreshExpirationDelta time.Duration
)

// ConfigureAuth primes the JWT machinery with the app secrets and returns
// the auth middleware protecting course rep routes.
func ConfigureAuth(name string, secretKey []byte, expDelta, refreshExpDelta time.Duration) echo.MiddlewareFunc {
	appName = name
	jwtExpirationDelta = expDelta
	jwtRefreshExpirationDelta = refreshExpDelta
	appJWTConfig.SigningKey = secretKey
	return middleware.JWTWithConfig(appJWTConfig)
}

// Claims represents the authorization claims transmitted via a JWT.
// A course rep is identified by their class unit, not a personal account.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	School       string `json:"school"`
	Department   string `json:"department"`
	Level        string `json:"level"`
}

func (c Claims) Unit() catalog.Unit {
	return catalog.Unit{School: c.School, Department: c.Department, Level: c.Level}
}

func GetRepClaims(unit catalog.Unit, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    appName,
			Subject:   unit.Key(),
			Audience:  "CourseRep",
			ExpiresAt: now.Add(jwtExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		School:       unit.School,
		Department:   unit.Department,
		Level:        unit.Level,
	}
	return claims
}

func authenticate(ctx context.Context, unit catalog.Unit, pwd string, svc *rep.Service) (*Claims, error) {
	if err := svc.Authenticate(ctx, unit, pwd); err != nil {
		if errors.Cause(err) == rep.ErrBadCredentials {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "authenticating rep")
	}
	return GetRepClaims(unit), nil
}

// GenerateToken generates a signed JWT token string representing the rep Claims.
func GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(appJWTConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(appJWTConfig.SigningKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errMissingToken
}

func refreshToken(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	unit := claims.Unit()
	if !unit.Known() {
		return "", errMissingToken
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(jwtRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	newClaims := GetRepClaims(unit, claims.OrigIssuedAt)
	token, err := GenerateToken(newClaims)
	return token, errors.Wrap(err, "generating token")
}
