package backup

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/c2h5oh/datasize"

	"github.com/PowerDNS/recipientbackup/pbwire"
)

// MaxRecordSize limits the size of a single record we are willing to read
const MaxRecordSize = 16 * datasize.MB

// FrameWriter writes length delimited records to an io.Writer
type FrameWriter struct {
	w   io.Writer
	buf *pbwire.Buffer

	// Some statistics for logging
	NumFrames    int
	BytesWritten int64
}

func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{
		w:   w,
		buf: pbwire.NewBuffer(1024),
	}
}

// WriteInfo writes the BackupInfo, which must be the first record
func (fw *FrameWriter) WriteInfo(info *BackupInfo) error {
	return fw.writeRecord(info.Marshal())
}

// ErrInvalidFrame wraps errors of frames that could not be marshaled
var ErrInvalidFrame = errors.New("invalid frame")

// WriteFrame marshals and writes a frame. Nothing is written if the frame
// fails to marshal, in which case the error wraps ErrInvalidFrame.
func (fw *FrameWriter) WriteFrame(f *Frame) error {
	msg, err := f.Marshal()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFrame, err)
	}
	if err := fw.writeRecord(msg); err != nil {
		return err
	}
	fw.NumFrames++
	return nil
}

func (fw *FrameWriter) writeRecord(msg []byte) error {
	fw.buf.Reset()
	fw.buf.AppendVarint(uint64(len(msg)))
	n, err := fw.w.Write(fw.buf.Bytes())
	fw.BytesWritten += int64(n)
	if err != nil {
		return err
	}
	n, err = fw.w.Write(msg)
	fw.BytesWritten += int64(n)
	return err
}

// FrameReader reads length delimited records from an io.Reader
type FrameReader struct {
	r   *bufio.Reader
	buf []byte

	NumFrames int
}

func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: bufio.NewReader(r)}
}

// ReadInfo reads the BackupInfo, which must be the first record
func (fr *FrameReader) ReadInfo() (*BackupInfo, error) {
	msg, err := fr.readRecord()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("read backup info: %w", io.ErrUnexpectedEOF)
		}
		return nil, fmt.Errorf("read backup info: %w", err)
	}
	info := new(BackupInfo)
	if err := info.Unmarshal(msg); err != nil {
		return nil, fmt.Errorf("decode backup info: %w", err)
	}
	return info, nil
}

// Next reads the next frame. It returns io.EOF when the stream ends cleanly
// on a record boundary.
func (fr *FrameReader) Next() (*Frame, error) {
	msg, err := fr.readRecord()
	if err != nil {
		return nil, err
	}
	f := new(Frame)
	if err := f.Unmarshal(msg); err != nil {
		return nil, fmt.Errorf("decode frame %d: %w", fr.NumFrames, err)
	}
	fr.NumFrames++
	return f, nil
}

func (fr *FrameReader) readRecord() ([]byte, error) {
	size, err := binary.ReadUvarint(fr.r)
	if err != nil {
		return nil, err // io.EOF if nothing was read
	}
	if size > uint64(MaxRecordSize) {
		return nil, fmt.Errorf("record size %d exceeds maximum of %s",
			size, MaxRecordSize.HumanReadable())
	}
	if cap(fr.buf) < int(size) {
		fr.buf = make([]byte, size)
	}
	fr.buf = fr.buf[:size]
	if _, err := io.ReadFull(fr.r, fr.buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return fr.buf, nil
}
