package archive

import (
	"errors"

	"github.com/PowerDNS/recipientbackup/backup"
)

// FrameBuilder builds a single frame
type FrameBuilder func() (*backup.Frame, error)

// WriteFrame builds one frame and writes it to the stream.
// Errors are returned as a FrameError for the given recipient instead of
// being propagated, so that the caller can continue with the next recipient.
// Failures of build and validation have KindBuildFailed, failures of the
// underlying writer KindWriteFailed.
func WriteFrame(w *backup.FrameWriter, id RecipientID, build FrameBuilder) *FrameError {
	f, err := build()
	if err != nil {
		return newFrameError(id, KindBuildFailed, err)
	}
	if err := w.WriteFrame(f); err != nil {
		if errors.Is(err, backup.ErrInvalidFrame) {
			return newFrameError(id, KindBuildFailed, err)
		}
		return newFrameError(id, KindWriteFailed, err)
	}
	return nil
}
