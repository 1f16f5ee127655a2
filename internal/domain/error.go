package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrMemberLeft      = errors.New("member is no longer present")
	ErrNoMemberMarker  = errors.New("channel topic has no member id marker")
	ErrNoExpiryMarker  = errors.New("channel topic has no expiry marker")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrExternalService = errors.New("external service failure")
	ErrSweepLockHeld   = errors.New("sweep lock held by another instance")
	ErrUnknownFlow     = errors.New("no flow registered for channel")
)
