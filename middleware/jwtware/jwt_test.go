package jwtware_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-accounts/middleware/jwtware"
)

var signingKey = []byte("test-secret")

type testClaims struct {
	jwt.RegisteredClaims
}

func (c *testClaims) AccountID() string { return c.Subject }

// By default we set an expiration time 1 hour from now
func generateToken(t *testing.T, subject string, exp time.Time) string {
	t.Helper()

	if exp.IsZero() {
		exp = time.Now().Add(time.Hour)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &testClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := token.SignedString(signingKey)
	require.NoError(t, err)
	return signed
}

func hmacValidator() jwtware.TokenValidator {
	return jwtware.TokenValidatorFunc(func(raw string) (jwtware.Claims, error) {
		claims := &testClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			return signingKey, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			return nil, err
		}
		return claims, nil
	})
}

type recorder struct {
	called bool
}

func (r *recorder) handler(ctx router.Context) error {
	r.called = true
	return nil
}

func TestJWTWare_BasicHeaderExtraction(t *testing.T) {
	validToken := generateToken(t, "12345", time.Time{})

	cfg := jwtware.Config{
		TokenValidator: hmacValidator(),
		ErrorHandler: func(ctx router.Context, err error) error {
			return err
		},
	}

	t.Run("valid token", func(t *testing.T) {
		next := &recorder{}
		handler := jwtware.New(cfg)(next.handler)

		ctx := router.NewMockContext()
		ctx.HeadersM["Authorization"] = "Bearer " + validToken
		ctx.On("GetString", "Authorization", "").Return("Bearer " + validToken)
		ctx.On("Locals", "user", mock.AnythingOfType("*jwtware_test.testClaims")).Return(nil)

		err := handler(ctx)
		require.NoError(t, err)
		assert.True(t, next.called)
		ctx.AssertExpectations(t)
	})

	t.Run("missing token", func(t *testing.T) {
		next := &recorder{}
		handler := jwtware.New(cfg)(next.handler)

		ctx := router.NewMockContext()
		ctx.On("GetString", "Authorization", "").Return("")

		err := handler(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, jwtware.ErrJWTMissingOrMalformed)
		assert.False(t, next.called)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		next := &recorder{}
		handler := jwtware.New(cfg)(next.handler)

		ctx := router.NewMockContext()
		ctx.On("GetString", "Authorization", "").Return("Basic " + validToken)

		err := handler(ctx)
		assert.ErrorIs(t, err, jwtware.ErrJWTMissingOrMalformed)
		assert.False(t, next.called)
	})

	t.Run("malformed token", func(t *testing.T) {
		next := &recorder{}
		handler := jwtware.New(cfg)(next.handler)

		ctx := router.NewMockContext()
		ctx.On("GetString", "Authorization", "").Return("Bearer malformed.token.structure")

		err := handler(ctx)
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "token is malformed"))
		assert.False(t, next.called)
	})
}

func TestJWTWare_ExpiredToken(t *testing.T) {
	expiredToken := generateToken(t, "12345", time.Now().Add(-time.Hour))

	handler := jwtware.New(jwtware.Config{
		TokenValidator: hmacValidator(),
		ErrorHandler: func(c router.Context, err error) error {
			return err
		},
	})((&recorder{}).handler)

	ctx := router.NewMockContext()
	ctx.On("GetString", "Authorization", "").Return("Bearer " + expiredToken)

	err := handler(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestJWTWare_DefaultErrorHandler(t *testing.T) {
	handler := jwtware.New(jwtware.Config{
		TokenValidator: hmacValidator(),
	})((&recorder{}).handler)

	t.Run("missing token answers 400", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.On("GetString", "Authorization", "").Return("")
		ctx.On("JSON", router.StatusBadRequest, mock.Anything).Return(nil)

		require.NoError(t, handler(ctx))
		ctx.AssertExpectations(t)
	})

	t.Run("invalid token answers 401", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.On("GetString", "Authorization", "").Return("Bearer nope.nope.nope")
		ctx.On("JSON", router.StatusUnauthorized, mock.Anything).Return(nil)

		require.NoError(t, handler(ctx))
		ctx.AssertExpectations(t)
	})
}

func TestJWTWare_CustomTokenLookup(t *testing.T) {
	validToken := generateToken(t, "12345", time.Time{})

	cfg := jwtware.Config{
		TokenValidator: hmacValidator(),
		TokenLookup:    "query:token,param:jwt,cookie:jwt_cookie",
		ContextKey:     "session",
	}

	t.Run("query", func(t *testing.T) {
		next := &recorder{}
		ctx := router.NewMockContext()
		ctx.QueriesM["token"] = validToken
		ctx.On("Locals", "session", mock.Anything).Return(nil)

		require.NoError(t, jwtware.New(cfg)(next.handler)(ctx))
		assert.True(t, next.called)
	})

	t.Run("param", func(t *testing.T) {
		next := &recorder{}
		ctx := router.NewMockContext()
		ctx.ParamsM["jwt"] = validToken
		ctx.On("Locals", "session", mock.Anything).Return(nil)

		require.NoError(t, jwtware.New(cfg)(next.handler)(ctx))
		assert.True(t, next.called)
	})

	t.Run("cookie", func(t *testing.T) {
		next := &recorder{}
		ctx := router.NewMockContext()
		ctx.CookiesM["jwt_cookie"] = validToken
		ctx.On("Locals", "session", mock.Anything).Return(nil)

		require.NoError(t, jwtware.New(cfg)(next.handler)(ctx))
		assert.True(t, next.called)
	})
}

func TestJWTWare_ValidationListeners(t *testing.T) {
	validToken := generateToken(t, "blocked", time.Time{})
	errBlocked := errors.New("blocked")

	var seen string
	handler := jwtware.New(jwtware.Config{
		TokenValidator: hmacValidator(),
		ErrorHandler: func(c router.Context, err error) error {
			return err
		},
		ValidationListeners: []jwtware.ValidationListener{
			func(ctx router.Context, claims jwtware.Claims) error {
				seen = claims.AccountID()
				return errBlocked
			},
		},
	})((&recorder{}).handler)

	ctx := router.NewMockContext()
	ctx.On("GetString", "Authorization", "").Return("Bearer " + validToken)

	err := handler(ctx)
	assert.ErrorIs(t, err, errBlocked)
	assert.Equal(t, "blocked", seen)
}

func TestJWTWare_ContextEnricher(t *testing.T) {
	type key struct{}
	validToken := generateToken(t, "12345", time.Time{})

	var enriched context.Context
	next := &recorder{}
	handler := jwtware.New(jwtware.Config{
		TokenValidator: hmacValidator(),
		ContextEnricher: func(c context.Context, claims jwtware.Claims) context.Context {
			enriched = context.WithValue(c, key{}, claims.AccountID())
			return enriched
		},
	})(next.handler)

	ctx := router.NewMockContext()
	ctx.On("GetString", "Authorization", "").Return("Bearer " + validToken)
	ctx.On("Locals", "user", mock.Anything).Return(nil)
	ctx.On("Context").Return(context.Background()).Maybe()
	ctx.On("SetContext", mock.Anything).Return().Maybe()

	require.NoError(t, handler(ctx))
	require.NotNil(t, enriched)
	assert.Equal(t, "12345", enriched.Value(key{}))
	assert.True(t, next.called)
}

func TestJWTWare_Filter(t *testing.T) {
	next := &recorder{}
	handler := jwtware.New(jwtware.Config{
		TokenValidator: hmacValidator(),
		Filter: func(ctx router.Context) bool {
			return true
		},
	})(next.handler)

	require.NoError(t, handler(router.NewMockContext()))
	assert.True(t, next.called)
}

func TestJWTWare_RequiresValidator(t *testing.T) {
	assert.Panics(t, func() {
		jwtware.New(jwtware.Config{})
	})
}

func TestGetExtractors(t *testing.T) {
	extractors := jwtware.GetExtractors("header:Authorization, query:token,cookie:jwt,bogus", "Bearer")
	assert.Len(t, extractors, 3)
}
