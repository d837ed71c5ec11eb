package backup

const (
	// CurrentFormatVersion is the backup format version we write and the
	// highest version we can read.
	CurrentFormatVersion uint64 = 1

	// CompatFormatVersion is the oldest backup version we can read.
	CompatFormatVersion uint64 = 1
)
