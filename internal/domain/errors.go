package domain

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUserNotFound       = errors.New("user not found")
	ErrSelfConnection     = errors.New("connection cannot link a user to itself")
	ErrDuplicate          = errors.New("record already exists")
	ErrChainNotFound      = errors.New("chain not found")
	ErrLinkNotFound       = errors.New("chain link not found")
	ErrNotParticipant     = errors.New("user is not a participant of the chain")
	ErrInvalidTransition  = errors.New("invalid chain status transition")
	ErrInvalidChain       = errors.New("chain links do not form a valid cycle")
	ErrNoReplacementFound = errors.New("no replacement participant found")
	ErrInvalidToken       = errors.New("invalid token")
)
