package backup

import (
	"fmt"

	"github.com/PowerDNS/recipientbackup/pbwire"
)

// Protobuf field numbers
const (
	FieldInfoVersion      = 1
	FieldInfoBackupTimeMs = 2
)

// BackupInfo is the first record in a backup stream
type BackupInfo struct {
	Version      uint64
	BackupTimeMs uint64
}

func (i *BackupInfo) Marshal() []byte {
	b := pbwire.NewBuffer(24)
	b.PutUInt64(FieldInfoVersion, i.Version)
	b.PutUInt64(FieldInfoBackupTimeMs, i.BackupTimeMs)
	return b.Bytes()
}

func (i *BackupInfo) Unmarshal(data []byte) error {
	d := pbwire.NewDecoder(data)
	for d.More() {
		tag, wireType, err := d.DecodeTag()
		if err != nil {
			return err
		}
		switch tag {
		case FieldInfoVersion:
			i.Version, err = pbwire.GetUInt64(d, tag, wireType)
			if err != nil {
				return err
			}
		case FieldInfoBackupTimeMs:
			i.BackupTimeMs, err = pbwire.GetUInt64(d, tag, wireType)
			if err != nil {
				return err
			}
		default:
			if _, err := d.Skip(tag, wireType); err != nil {
				return err
			}
		}
	}
	return nil
}

// CheckVersion checks if we can read a backup with this info
func (i *BackupInfo) CheckVersion() error {
	if i.Version < CompatFormatVersion || i.Version > CurrentFormatVersion {
		return fmt.Errorf("unsupported backup format version %d (supported: %d-%d)",
			i.Version, CompatFormatVersion, CurrentFormatVersion)
	}
	return nil
}
