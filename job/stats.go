package job

import (
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/PowerDNS/recipientbackup/archive"
)

// ExportStats describe a finished export
type ExportStats struct {
	Name           string
	Archived       int
	Skipped        int
	Failed         int
	ErrorKinds     map[string]int
	StreamSize     datasize.ByteSize
	CompressedSize datasize.ByteSize
	Duration       time.Duration
}

// ImportStats describe a finished import
type ImportStats struct {
	Name       string
	Version    uint64
	BackupTime time.Time
	Frames     int
	Restored   int
	Unhandled  int
	Failed     int
	ErrorKinds map[string]int
	Duration   time.Duration
}

// countKinds counts errors per kind
func countKinds(errs []*archive.FrameError) map[string]int {
	groups := lo.GroupBy(errs, func(e *archive.FrameError) string {
		return e.Kind.String()
	})
	return lo.MapValues(groups, func(v []*archive.FrameError, _ string) int {
		return len(v)
	})
}

func (s ExportStats) Fields() logrus.Fields {
	return logrus.Fields{
		"name":            s.Name,
		"archived":        s.Archived,
		"skipped":         s.Skipped,
		"failed":          s.Failed,
		"error_kinds":     s.ErrorKinds,
		"stream_size":     s.StreamSize.HumanReadable(),
		"compressed_size": s.CompressedSize.HumanReadable(),
		"time_total":      s.Duration.Round(time.Millisecond),
	}
}

func (s ImportStats) Fields() logrus.Fields {
	return logrus.Fields{
		"name":        s.Name,
		"version":     s.Version,
		"backup_time": s.BackupTime,
		"frames":      s.Frames,
		"restored":    s.Restored,
		"unhandled":   s.Unhandled,
		"failed":      s.Failed,
		"error_kinds": s.ErrorKinds,
		"time_total":  s.Duration.Round(time.Millisecond),
	}
}
