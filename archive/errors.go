package archive

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownRecipientID      = errors.New("unknown recipient id")
	ErrInvalidProtoData        = errors.New("invalid proto data")
	ErrDatabaseInsertionFailed = errors.New("database insertion failed")
	ErrDatabaseReadFailed      = errors.New("database read failed")
	ErrBuildFailed             = errors.New("frame build failed")
	ErrWriteFailed             = errors.New("frame write failed")
)

// ErrorKind classifies a FrameError
type ErrorKind int

const (
	KindInvalidProtoData ErrorKind = iota
	KindDatabaseInsertionFailed
	KindDatabaseReadFailed
	KindBuildFailed
	KindWriteFailed
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindInvalidProtoData:
		return ErrInvalidProtoData
	case KindDatabaseInsertionFailed:
		return ErrDatabaseInsertionFailed
	case KindDatabaseReadFailed:
		return ErrDatabaseReadFailed
	case KindBuildFailed:
		return ErrBuildFailed
	default:
		return ErrWriteFailed
	}
}

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidProtoData:
		return "invalid_proto_data"
	case KindDatabaseInsertionFailed:
		return "database_insertion_failed"
	case KindDatabaseReadFailed:
		return "database_read_failed"
	case KindBuildFailed:
		return "build_failed"
	default:
		return "write_failed"
	}
}

// FrameError is a failure to archive or restore a single recipient.
// It matches both the sentinel error of its Kind and the cause with errors.Is.
type FrameError struct {
	RecipientID RecipientID
	Kind        ErrorKind
	Err         error // may be nil
}

func newFrameError(id RecipientID, kind ErrorKind, err error) *FrameError {
	return &FrameError{RecipientID: id, Kind: kind, Err: err}
}

func (e *FrameError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("recipient %d: %v", e.RecipientID, e.Kind.sentinel())
	}
	return fmt.Sprintf("recipient %d: %v: %v", e.RecipientID, e.Kind.sentinel(), e.Err)
}

func (e *FrameError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// RestoreError is returned when a frame could not be restored
type RestoreError struct {
	RecipientID RecipientID
	Errors      []*FrameError
}

func (e *RestoreError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Error()
	}
	return fmt.Sprintf("restore recipient %d: %s", e.RecipientID, strings.Join(msgs, "; "))
}

func (e *RestoreError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, fe := range e.Errors {
		errs[i] = fe
	}
	return errs
}

func restoreFailure(id RecipientID, kind ErrorKind, err error) *RestoreError {
	return &RestoreError{
		RecipientID: id,
		Errors:      []*FrameError{newFrameError(id, kind, err)},
	}
}
