package chat

import "errors"

var (
	ErrEmptyNickname = errors.New("nickname is empty")
	ErrNicknameSet   = errors.New("nickname already set")
	ErrNoNickname    = errors.New("connection has no nickname")
	ErrDuplicate     = errors.New("connection already registered")
	ErrClosed        = errors.New("connection closed")
	ErrOverflow      = errors.New("outbound queue full")
	ErrBadTransition = errors.New("illegal state transition")
)
