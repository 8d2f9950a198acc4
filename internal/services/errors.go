package services

import "errors"

var (
	ErrAlreadyPaired        = errors.New("user is already paired")
	ErrNotPaired            = errors.New("user is not paired")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired pairing code")
	ErrSelfPairing          = errors.New("cannot pair with yourself")
	ErrOwnerAlreadyPaired   = errors.New("code owner is already paired")
	ErrLimitReached         = errors.New("limit reached")
	ErrNotFound             = errors.New("not found")
	ErrForbiddenCrossCouple = errors.New("resource does not belong to this couple")
	ErrInvalidImageSet      = errors.New("image ids must list every image of the slideshow exactly once")
	ErrValidation           = errors.New("validation failed")
	ErrUnauthorized         = errors.New("invalid or missing token")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrUsernameTaken        = errors.New("username already exists")
)
