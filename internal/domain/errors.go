package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrRateLimited         = errors.New("rate limited")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrDataUnavailable     = errors.New("data unavailable")
	ErrZeroPrice           = errors.New("market price is zero")
	ErrInsufficientCapital = errors.New("insufficient capital")
	ErrTradeNotFound       = errors.New("trade not found")
	ErrAlreadyResolved     = errors.New("trade already resolved")
	ErrWSDisconnect        = errors.New("websocket disconnected")
	ErrContextDone         = errors.New("context cancelled")
)
