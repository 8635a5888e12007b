package oauthmodel

import "errors"

var (
	ErrUnknownOnBehalfOf        = errors.New("unknown on-behalf-of mode")
	ErrUnknownTenantPropagation = errors.New("unknown tenant propagation strategy")
	ErrMissingAssertion         = errors.New("jwt bearer request requires an assertion")
	ErrMissingClientID          = errors.New("token request requires a client id")
)
