// Package utils has small helpers for the commands
package utils

import (
	"encoding/binary"
	"fmt"
	"time"
)

// DisplayASCII represents a key or value as ascii if it only contains safe
// ascii characters. Unsafe characters are replaced by '.' and a hex
// representation is added to the output.
// An 8 byte value is also shown as a big endian row id, which is how the
// recipient stores key their records.
func DisplayASCII(b []byte) string {
	ret := make([]byte, len(b))
	unsafe := false
	for i, ch := range b {
		if ch < 32 || ch > 126 {
			ret[i] = '.'
			unsafe = true
		} else {
			ret[i] = ch
		}
	}
	if len(b) == 8 && unsafe {
		return fmt.Sprintf("%s [% 0x] (rowid %d)", string(ret), b, binary.BigEndian.Uint64(b))
	}
	if unsafe || len(b) < 8 {
		return fmt.Sprintf("%s [% 0x]", string(ret), b)
	}
	return string(ret)
}

// TimeDiff returns the difference between two times, rounded to seconds.
func TimeDiff(t1, t0 time.Time) time.Duration {
	return t1.Sub(t0).Round(time.Second)
}
