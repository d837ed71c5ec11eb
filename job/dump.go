package job

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PowerDNS/recipientbackup/backup"
	"github.com/PowerDNS/recipientbackup/recipient"
)

// DumpFrames writes a human readable line per frame, for debugging
func DumpFrames(w io.Writer, info *backup.BackupInfo, fr *backup.FrameReader) error {
	ts := time.UnixMilli(int64(info.BackupTimeMs)).UTC()
	fmt.Fprintf(w, "# version=%d time=%s\n", info.Version, ts.Format(time.RFC3339Nano))
	for {
		f, err := fr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(w, FormatFrame(f))
	}
}

// FormatFrame formats a frame as a single line
func FormatFrame(f *backup.Frame) string {
	if f.Recipient == nil {
		return fmt.Sprintf("unhandled item=%d", f.ItemTag)
	}
	r := f.Recipient
	if r.Contact == nil {
		return fmt.Sprintf("recipient id=%d unhandled destination=%d", r.ID, r.DestinationTag)
	}
	c := r.Contact

	parts := []string{fmt.Sprintf("recipient id=%d contact", r.ID)}
	if c.ACI != nil {
		parts = append(parts, "aci="+formatServiceID(c.ACI))
	}
	if c.PNI != nil {
		parts = append(parts, "pni="+formatServiceID(c.PNI))
	}
	if c.E164 != nil {
		parts = append(parts, fmt.Sprintf("e164=+%d", *c.E164))
	}
	parts = append(parts, "registered="+c.Registered.String())
	if c.Registered == backup.RegisteredNotRegistered {
		parts = append(parts, fmt.Sprintf("unregistered_at=%d", c.UnregisteredTimestamp))
	}
	for _, flag := range []struct {
		name string
		v    bool
	}{
		{"blocked", c.Blocked},
		{"hidden", c.Hidden},
		{"profile_sharing", c.ProfileSharing},
		{"hide_story", c.HideStory},
	} {
		if flag.v {
			parts = append(parts, flag.name)
		}
	}
	if c.ProfileKey != nil {
		parts = append(parts, fmt.Sprintf("profile_key_len=%d", len(c.ProfileKey)))
	}
	if c.ProfileGivenName != nil {
		parts = append(parts, fmt.Sprintf("given_name=%q", *c.ProfileGivenName))
	}
	if c.ProfileFamilyName != nil {
		parts = append(parts, fmt.Sprintf("family_name=%q", *c.ProfileFamilyName))
	}
	return strings.Join(parts, " ")
}

func formatServiceID(b []byte) string {
	id, err := recipient.ServiceIDFromBytes(b)
	if err != nil {
		return fmt.Sprintf("invalid[% 0x]", b)
	}
	return id.String()
}
