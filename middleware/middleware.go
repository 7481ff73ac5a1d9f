package middleware

import (
	"errors"

	"storefront/internal/auth"
	"storefront/internal/users"
)

type Mid struct {
	a *auth.Conf
	u *users.Conf
}

func NewMid(a *auth.Conf, u *users.Conf) (*Mid, error) {
	if a == nil || u == nil {
		return nil, errors.New("auth or users conf is nil")
	}
	return &Mid{a: a, u: u}, nil
}
