package live

import "errors"

// Core error taxonomy. Handlers map these onto HTTP status + business codes;
// messages are stable and never carry provider internals.
var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrCourseNotFound    = errors.New("course not found")
	ErrForbidden         = errors.New("you are not allowed to perform this action")
	ErrNotEnrolled       = errors.New("you are not enrolled in this course")
	ErrNotLive           = errors.New("class is not live")
	ErrInvalidTransition = errors.New("class has already ended")
	ErrProvider          = errors.New("media service unavailable, please try again")
	ErrStorage           = errors.New("storage failure")
)
