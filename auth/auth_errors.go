package auth

import "errors"

var ErrInvalidCredentials = errors.New("invalid email, phone or password")

var ErrMalformedLoginResponse = errors.New("malformed login response")
