package lmdbenv

import (
	"os"

	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/pkg/errors"
)

// ErrRollback can be returned from an env.Update function to abort the
// transaction without reporting a failure.
var ErrRollback = errors.New("rollback")

type TestEnvFunc func(env *lmdb.Env) error

// TestEnv creates a temporary LMDB database and calls the given test function
// with the temporary LMDB Env. Any error returned by this function is returned
// unmodified to the caller.
func TestEnv(f TestEnvFunc) error {
	tmpdir, err := os.MkdirTemp("", "lmdbtest_")
	if err != nil {
		return errors.Wrap(err, "create tempdir")
	}
	if tmpdir == "" {
		panic("Empty tmpdir")
	}
	defer os.RemoveAll(tmpdir)

	env, err := NewWithOptions(tmpdir, Options{
		Create:  true,
		MapSize: DefaultMapSize / 16,
	})
	if err != nil {
		return errors.Wrap(err, "new lmdb env")
	}
	defer env.Close()

	return f(env)
}

// UpdateRollback runs f in a write transaction that is always rolled back.
// It returns the error of f, if any.
func UpdateRollback(env *lmdb.Env, f lmdb.TxnOp) error {
	err := env.Update(func(txn *lmdb.Txn) error {
		if err := f(txn); err != nil {
			return err
		}
		return ErrRollback
	})
	if errors.Is(err, ErrRollback) {
		return nil
	}
	return err
}
