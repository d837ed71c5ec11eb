// Package lmdbenv opens the LMDB environment that holds the recipient
// database and provides helpers for tests and inspection.
package lmdbenv

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/c2h5oh/datasize"
)

const (
	DefaultDirMask  = 0775
	DefaultFileMask = 0664
	DefaultMapSize  = 1 * datasize.GB
	DefaultMaxDBs   = 64
)

// Options are used for NewWithOptions, allowing a user to override them
// This type is also used for the yaml config file.
type Options struct {
	DirMask  os.FileMode       `yaml:"dir_mask"`
	FileMask os.FileMode       `yaml:"file_mask"`
	MapSize  datasize.ByteSize `yaml:"map_size"`
	MaxDBs   int               `yaml:"max_dbs"`
	NoSubdir bool              `yaml:"no_subdir"`
	Create   bool              `yaml:"create"`
	ReadOnly bool              `yaml:"read_only"`
	EnvFlags uint              `yaml:"-"` // Too dangerous for direct yaml support
}

// WithDefaults returns new Options with defaults set for values that were not set
func (o Options) WithDefaults() Options {
	if o.DirMask == 0 {
		o.DirMask = DefaultDirMask
	}
	if o.FileMask == 0 {
		o.FileMask = DefaultFileMask
	}
	if o.MaxDBs == 0 {
		o.MaxDBs = DefaultMaxDBs
	}
	return o
}

// New creates an LMDB Env with default options and the given flags.
// The returned env must be closed after use.
func New(path string, flags uint) (*lmdb.Env, error) {
	return NewWithOptions(path, Options{EnvFlags: flags})
}

// NewWithOptions creates an LMDB Env using given options.
// The returned env must be closed after use.
func NewWithOptions(path string, opt Options) (*lmdb.Env, error) {
	opt = opt.WithDefaults()
	if opt.ReadOnly && opt.Create {
		return nil, fmt.Errorf("lmdb env: create and read_only are mutually exclusive")
	}
	env, err := lmdb.NewEnv()
	if err != nil {
		return nil, fmt.Errorf("lmdb env: new: %v", err)
	}

	if opt.Create {
		opt.EnvFlags |= lmdb.Create
	}
	if opt.ReadOnly {
		opt.EnvFlags |= lmdb.Readonly
	}
	if opt.NoSubdir {
		opt.EnvFlags |= lmdb.NoSubdir
	}

	// Only if we create the database do we set a default MapSize. Otherwise
	// we leave it at 0, so that LMDB detects the size of the existing file.
	createIsSet := opt.EnvFlags&lmdb.Create > 0
	if createIsSet {
		dirPath := path
		if opt.EnvFlags&lmdb.NoSubdir > 0 {
			dirPath, _ = filepath.Split(dirPath)
		}
		if err := os.MkdirAll(dirPath, opt.DirMask); err != nil {
			env.Close()
			return nil, fmt.Errorf("lmdb env: mkdir: %v", err)
		}
	}

	mapSize := opt.MapSize
	if mapSize == 0 && createIsSet {
		mapSize = DefaultMapSize
	}
	if err := env.SetMapSize(int64(mapSize)); err != nil {
		env.Close()
		return nil, fmt.Errorf("lmdb env: setmapsize: %v", err)
	}
	if err := env.SetMaxDBs(opt.MaxDBs); err != nil {
		env.Close()
		return nil, fmt.Errorf("lmdb env: setmaxdbs: %v", err)
	}
	if err := env.Open(path, opt.EnvFlags, opt.FileMask); err != nil {
		env.Close()
		return nil, fmt.Errorf("lmdb env: open: %v", err)
	}
	return env, nil
}
