package auth_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/planly/planly/internal/adapters/http/auth"
	. "github.com/smartystreets/goconvey/convey"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestParse(t *testing.T) {
	Convey("Given a verification config", t, func() {
		cfg := auth.Config{Secret: testSecret, Issuer: "planly"}

		Convey("When parsing a valid token", func() {
			token := signToken(t, jwt.MapClaims{
				"sub":    "u1",
				"iss":    "planly",
				"scopes": []string{"goals:read_all"},
				"exp":    time.Now().Add(time.Hour).Unix(),
			}, testSecret)

			claims, err := auth.Parse(token, cfg)

			Convey("Then the claims are normalized", func() {
				So(err, ShouldBeNil)
				So(claims.Subject, ShouldEqual, "u1")
				So(claims.HasScope(auth.ScopeReadAll), ShouldBeTrue)
				So(claims.HasScope("goals:write_all"), ShouldBeFalse)
			})
		})

		Convey("When scopes arrive as a space-separated string", func() {
			token := signToken(t, jwt.MapClaims{
				"sub":    "u1",
				"iss":    "planly",
				"scopes": "goals:read_all extra",
				"exp":    time.Now().Add(time.Hour).Unix(),
			}, testSecret)

			claims, err := auth.Parse(token, cfg)
			So(err, ShouldBeNil)
			So(claims.HasScope("extra"), ShouldBeTrue)
		})

		Convey("When the token is empty", func() {
			_, err := auth.Parse("  ", cfg)
			So(errors.Is(err, auth.ErrMissingToken), ShouldBeTrue)
		})

		Convey("When the signature is wrong", func() {
			token := signToken(t, jwt.MapClaims{"sub": "u1", "iss": "planly"}, "other-secret")
			_, err := auth.Parse(token, cfg)
			So(errors.Is(err, auth.ErrInvalidToken), ShouldBeTrue)
		})

		Convey("When the issuer does not match", func() {
			token := signToken(t, jwt.MapClaims{"sub": "u1", "iss": "someone-else"}, testSecret)
			_, err := auth.Parse(token, cfg)
			So(errors.Is(err, auth.ErrInvalidToken), ShouldBeTrue)
		})

		Convey("When the subject is missing", func() {
			token := signToken(t, jwt.MapClaims{"iss": "planly"}, testSecret)
			_, err := auth.Parse(token, cfg)
			So(errors.Is(err, auth.ErrInvalidToken), ShouldBeTrue)
		})

		Convey("When the token has expired", func() {
			token := signToken(t, jwt.MapClaims{
				"sub": "u1",
				"iss": "planly",
				"exp": time.Now().Add(-time.Hour).Unix(),
			}, testSecret)
			_, err := auth.Parse(token, cfg)
			So(errors.Is(err, auth.ErrInvalidToken), ShouldBeTrue)
		})
	})
}

func TestMiddleware(t *testing.T) {
	Convey("Given the auth middleware around an echo handler", t, func() {
		cfg := auth.Config{Secret: testSecret}
		var gotClaims *auth.Claims
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotClaims, _ = auth.FromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		})
		handler := auth.Middleware(cfg, nil, next)

		Convey("When the request carries a valid bearer token", func() {
			token := signToken(t, jwt.MapClaims{
				"sub": "u1",
				"exp": time.Now().Add(time.Hour).Unix(),
			}, testSecret)
			req := httptest.NewRequest(http.MethodGet, "/goal", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			Convey("Then the claims reach the handler", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(gotClaims, ShouldNotBeNil)
				So(gotClaims.Subject, ShouldEqual, "u1")
			})
		})

		Convey("When the header is missing", func() {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/goal", nil))
			So(rec.Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("When the token is garbage", func() {
			req := httptest.NewRequest(http.MethodGet, "/goal", nil)
			req.Header.Set("Authorization", "Bearer not.a.jwt")
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			So(rec.Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("When the path is skipped", func() {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			So(rec.Code, ShouldEqual, http.StatusOK)
		})

		Convey("When auth is not configured", func() {
			open := auth.Middleware(auth.Config{}, nil, next)
			rec := httptest.NewRecorder()
			open.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/goal", nil))
			So(rec.Code, ShouldEqual, http.StatusOK)
		})
	})
}
