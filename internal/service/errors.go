package service

import (
	"github.com/dukerupert/resell/internal/domain"
)

// Session errors - use domain.EINVALID
var (
	ErrInvalidSession = domain.ErrInvalidSession
)

// Configuration errors - use domain.EINTERNAL
var (
	ErrStorageRequired   = domain.Errorf(domain.EINTERNAL, "service.new", "Cart storage is required")
	ErrValidatorRequired = domain.Errorf(domain.EINTERNAL, "service.new", "Coupon validator is required")
)
