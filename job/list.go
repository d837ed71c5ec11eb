package job

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/PowerDNS/simpleblob"
	"golang.org/x/sync/errgroup"

	"github.com/PowerDNS/recipientbackup/backup"
	"github.com/PowerDNS/recipientbackup/utils"
)

// DefaultListConcurrency limits the number of backups loaded in parallel
// by ListBackups.
const DefaultListConcurrency = 4

// Listing describes one stored backup
type Listing struct {
	backup.NameInfo
	Size int64

	// Only set when requested
	Info   *backup.BackupInfo
	Frames int
	Err    error // error loading the backup, if any
}

// ListBackups lists the backups with the given prefix, oldest first. Blobs
// with other names are ignored. With withInfo set, every backup is loaded
// to read its BackupInfo and count its frames. Failures to load a single
// backup are reported in its Listing.
func ListBackups(ctx context.Context, st simpleblob.Interface, prefix string, withInfo bool, concurrency int) ([]Listing, error) {
	blobs, err := st.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	var listings []Listing
	for _, b := range blobs {
		ni, err := backup.ParseName(b.Name)
		if err != nil || (prefix != "" && ni.Prefix != prefix) {
			continue
		}
		listings = append(listings, Listing{NameInfo: ni, Size: b.Size})
	}
	sort.Slice(listings, func(i, j int) bool {
		return listings[i].Timestamp.Before(listings[j].Timestamp)
	})
	if !withInfo {
		return listings, nil
	}

	if concurrency <= 0 {
		concurrency = DefaultListConcurrency
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency)
	for i := range listings {
		li := &listings[i] // each goroutine writes its own element
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			li.Info, li.Frames, li.Err = inspect(ctx, st, li.FullName)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return listings, nil
}

func inspect(ctx context.Context, st simpleblob.Interface, name string) (*backup.BackupInfo, int, error) {
	fr, info, err := LoadStream(ctx, st, name)
	if err != nil {
		return nil, 0, err
	}
	for {
		_, err := fr.Next()
		if err == io.EOF {
			return info, fr.NumFrames, nil
		}
		if err != nil {
			return info, fr.NumFrames, err
		}
	}
}

// PrintListing writes a listing as one line
func PrintListing(w io.Writer, li Listing, long bool) {
	if !long {
		fmt.Fprintln(w, li.FullName)
		return
	}
	age := utils.TimeDiff(time.Now(), li.Timestamp)
	switch {
	case li.Err != nil:
		fmt.Fprintf(w, "%12d  %-10s  %s  ERROR: %v\n", li.Size, age, li.FullName, li.Err)
	case li.Info != nil:
		fmt.Fprintf(w, "%12d  %-10s  %s  v%d frames=%d\n", li.Size, age, li.FullName, li.Info.Version, li.Frames)
	default:
		fmt.Fprintf(w, "%12d  %-10s  %s\n", li.Size, age, li.FullName)
	}
}
