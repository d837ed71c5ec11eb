package backup

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	timeFormat = "20060102-150405.000000000" // but need to s/./-/
	dotIndex   = 15                          // position of the '.'

	// Extension is the extension of stored backup blobs
	Extension = "binpb.gz"
)

func Timestamp(ts time.Time) string {
	return strings.Replace(ts.UTC().Format(timeFormat), ".", "-", 1)
}

// Name returns the blob name for a backup
func Name(prefix, instanceID string, ts time.Time) string {
	return fmt.Sprintf("%s__%s__%s.%s", prefix, instanceID, Timestamp(ts), Extension)
}

func ParseName(name string) (NameInfo, error) {
	var ni, empty NameInfo
	basename, found := strings.CutSuffix(name, "."+Extension)
	if !found {
		return empty, fmt.Errorf("unexpected extension: %s", name)
	}
	ni.FullName = name
	p := strings.Split(basename, "__")
	if len(p) < 3 {
		return empty, fmt.Errorf("not enough name parts: %s", name)
	}
	ni.Prefix = p[0]
	ni.InstanceID = p[1]
	ni.TimestampString = p[2]
	tss := ni.TimestampString
	if len(tss) != len(timeFormat) || tss[dotIndex] != '-' {
		return empty, fmt.Errorf("invalid timestamp format: %s in %s", tss, name)
	}
	tss = tss[:dotIndex] + "." + tss[dotIndex+1:] // replace second '-' with '.' for parsing
	ts, err := time.Parse(timeFormat, tss)        // returns time in UTC
	if err != nil {
		return empty, fmt.Errorf("timestamp parse error: %s", err)
	}
	ni.Timestamp = ts
	return ni, nil
}

type NameInfo struct {
	FullName        string
	Prefix          string
	InstanceID      string
	TimestampString string
	Timestamp       time.Time
}

// Latest returns the newest valid backup name with the given prefix.
// Names that cannot be parsed are ignored.
func Latest(names []string, prefix string) (NameInfo, bool) {
	var infos []NameInfo
	for _, name := range names {
		ni, err := ParseName(name)
		if err != nil || ni.Prefix != prefix {
			continue
		}
		infos = append(infos, ni)
	}
	if len(infos) == 0 {
		return NameInfo{}, false
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Timestamp.Before(infos[j].Timestamp)
	})
	return infos[len(infos)-1], true
}
