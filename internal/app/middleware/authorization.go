package middleware

import (
	"context"
	"crypto/subtle"
	"errors"

	"rentdetail/internal/app/commands"
)

var ErrForbidden = errors.New("middleware: forbidden")

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// Privileged marks messages that need operator credentials.
type Privileged interface {
	Privileged() bool
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return next.Dispatch(ctx, cmd)
		})
	}
}

type operatorTokenKey struct{}

// WithOperatorToken stores the caller-supplied operator token.
func WithOperatorToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, operatorTokenKey{}, token)
}

// TrustedCaller marks in-process callers (event consumers) that skip the token check.
func TrustedCaller(ctx context.Context) context.Context {
	return context.WithValue(ctx, trustedKey{}, true)
}

type trustedKey struct{}

// TokenAuthorizer lets privileged messages through when the caller presents Token.
// An empty Token rejects every untrusted privileged message.
type TokenAuthorizer struct {
	Token string
}

func (a TokenAuthorizer) Authorize(ctx context.Context, message any) error {
	p, ok := message.(Privileged)
	if !ok || !p.Privileged() {
		return nil
	}
	if trusted, _ := ctx.Value(trustedKey{}).(bool); trusted {
		return nil
	}
	presented, _ := ctx.Value(operatorTokenKey{}).(string)
	if a.Token == "" || presented == "" {
		return ErrForbidden
	}
	if subtle.ConstantTimeCompare([]byte(a.Token), []byte(presented)) != 1 {
		return ErrForbidden
	}
	return nil
}
