package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidOrder    = errors.New("invalid order parameters")
	ErrRoutingFailed   = errors.New("routing failed")
	ErrExecutionFailed = errors.New("execution failed")
	ErrRateLimited     = errors.New("rate limited")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrQueueClosed     = errors.New("queue closed")
)
