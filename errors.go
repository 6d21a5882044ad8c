package mdstream

import "errors"

var (
	// ErrInvalidConfig reports a session configuration that cannot pace a reveal.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrReentrantCall reports a session call made while another call on the
	// same session is still executing.
	ErrReentrantCall = errors.New("re-entrant session call")
	// ErrSessionFinished reports input appended after Finish.
	ErrSessionFinished = errors.New("session finished")
	// ErrRunnerStopped reports an operation sent to a runner whose loop has exited.
	ErrRunnerStopped = errors.New("runner stopped")
	// ErrInvalidUTF8 reports invalid UTF-8 input.
	ErrInvalidUTF8 = errors.New("invalid utf-8 input")
	// ErrBinaryInput reports input that appears to be binary.
	ErrBinaryInput = errors.New("binary input detected")
	// ErrFrontMatter reports front matter that cannot be decoded.
	ErrFrontMatter = errors.New("invalid front matter")
)
