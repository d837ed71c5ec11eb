package job

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/PowerDNS/lmdb-go/lmdb"
	"github.com/PowerDNS/simpleblob/backends/memory"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PowerDNS/recipientbackup/archive"
	"github.com/PowerDNS/recipientbackup/backup"
	"github.com/PowerDNS/recipientbackup/lmdbenv"
	"github.com/PowerDNS/recipientbackup/lmdbstore"
	"github.com/PowerDNS/recipientbackup/pbwire"
	"github.com/PowerDNS/recipientbackup/recipient"
)

var (
	aliceACI = mustServiceID("a1a1a1a1-0000-4000-8000-000000000001")
	bobACI   = mustServiceID("c3c3c3c3-0000-4000-8000-000000000003")
	phone    = recipient.E164("+15551234567")
)

func mustServiceID(s string) recipient.ServiceID {
	id, err := recipient.ParseServiceID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func ptr[T any](v T) *T {
	return &v
}

func testLogger() logrus.FieldLogger {
	l, _ := test.NewNullLogger()
	return l
}

// withEnv runs f with a temporary env and an opened store
func withEnv(t *testing.T, f func(env *lmdb.Env, s *lmdbstore.Store)) {
	t.Helper()
	err := lmdbenv.TestEnv(func(env *lmdb.Env) error {
		s, err := lmdbstore.Open(env)
		require.NoError(t, err)
		f(env, s)
		return nil
	})
	require.NoError(t, err)
}

// populate stores a few recipients with all kinds of side state
func populate(t *testing.T, env *lmdb.Env, s *lmdbstore.Store) {
	t.Helper()
	err := env.Update(func(txn *lmdb.Txn) error {
		alice := recipient.New(recipient.NewAddress(aliceACI, recipient.ServiceID{}, phone), recipient.Registered())
		require.NoError(t, s.Insert(txn, alice))
		bob := recipient.New(recipient.NewAddress(bobACI, recipient.ServiceID{}, ""), recipient.UnregisteredAt(1700000000))
		require.NoError(t, s.Insert(txn, bob))

		require.NoError(t, s.AddToWhitelist(txn, alice.Address))
		require.NoError(t, s.AddBlockedAddress(txn, bob.Address))
		require.NoError(t, s.AddHiddenRecipient(txn, bob, true))
		sc, err := s.GetOrCreateStoryContext(txn, aliceACI)
		require.NoError(t, err)
		require.NoError(t, s.UpdateStoryContext(txn, sc, true))
		require.NoError(t, s.SetProfile(txn, alice.Address, ptr("Alice"), nil, bytes.Repeat([]byte{1}, backup.ProfileKeySize)))
		return nil
	})
	require.NoError(t, err)
}

// rawBackup builds a compressed backup from raw frame messages
func rawBackup(t *testing.T, info *backup.BackupInfo, msgs ...[]byte) []byte {
	t.Helper()
	var out bytes.Buffer
	for _, msg := range append([][]byte{info.Marshal()}, msgs...) {
		lb := pbwire.NewBuffer(10)
		lb.AppendVarint(uint64(len(msg)))
		out.Write(lb.Bytes())
		out.Write(msg)
	}
	data, _, err := backup.DumpData(out.Bytes())
	require.NoError(t, err)
	return data
}

func contactFrame(t *testing.T, id uint64, c *backup.Contact) []byte {
	t.Helper()
	msg, err := backup.NewContactFrame(id, c).Marshal()
	require.NoError(t, err)
	return msg
}

// invalidFrame is a contact frame without any identifier, which only the
// restorer rejects
func invalidFrame(id uint64) []byte {
	cb := pbwire.NewBuffer(0)
	cb.PutBool(backup.FieldContactBlocked, true)
	rb := pbwire.NewBuffer(0)
	rb.PutUInt64(backup.FieldRecipientID, id)
	rb.FieldBytes(backup.FieldRecipientContact, cb.Bytes())
	fb := pbwire.NewBuffer(0)
	fb.FieldBytes(backup.FieldFrameRecipient, rb.Bytes())
	return fb.Bytes()
}

func countRecipients(t *testing.T, env *lmdb.Env, s *lmdbstore.Store) int {
	t.Helper()
	n := 0
	err := env.View(func(txn *lmdb.Txn) error {
		return s.EnumerateAll(txn, func(r *recipient.Recipient) error {
			n++
			return nil
		})
	})
	require.NoError(t, err)
	return n
}

var testInfo = &backup.BackupInfo{Version: backup.CurrentFormatVersion, BackupTimeMs: 1700000000000}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	var name string
	withEnv(t, func(env *lmdb.Env, s *lmdbstore.Store) {
		populate(t, env, s)
		stats, err := Export(ctx, env, s.Stores(), st, ExportOptions{InstanceID: "test"}, testLogger())
		require.NoError(t, err)
		assert.Equal(t, 2, stats.Archived)
		assert.Equal(t, 0, stats.Failed)
		assert.True(t, strings.HasPrefix(stats.Name, DefaultPrefix+"__test__"), stats.Name)
		assert.Greater(t, int(stats.CompressedSize), 0)
		name = stats.Name
	})

	withEnv(t, func(env *lmdb.Env, s *lmdbstore.Store) {
		stats, err := Import(ctx, env, s.Stores(), st, "", ImportOptions{}, testLogger())
		require.NoError(t, err)
		assert.Equal(t, name, stats.Name)
		assert.Equal(t, 2, stats.Frames)
		assert.Equal(t, 2, stats.Restored)
		assert.Equal(t, 0, stats.Failed)

		err = env.View(func(txn *lmdb.Txn) error {
			alice, err := s.RecipientFor(txn, recipient.NewAddress(recipient.ServiceID{}, recipient.ServiceID{}, phone))
			require.NoError(t, err)
			require.NotNil(t, alice)
			assert.True(t, alice.IsRegistered())
			assert.Equal(t, aliceACI, *alice.Address.ACI)

			bob, err := s.RecipientFor(txn, recipient.NewAddress(bobACI, recipient.ServiceID{}, ""))
			require.NoError(t, err)
			require.NotNil(t, bob)
			ts, known := bob.Registration.UnregisteredAt()
			assert.True(t, known)
			assert.Equal(t, uint64(1700000000), ts)

			blocked, err := s.BlockedAddresses(txn)
			require.NoError(t, err)
			assert.True(t, blocked.Contains(bob.Address))
			assert.False(t, blocked.Contains(alice.Address))

			wl, err := s.WhitelistedAddresses(txn)
			require.NoError(t, err)
			require.Len(t, wl, 1)
			assert.True(t, wl[0].Equal(alice.Address))

			hidden, err := s.IsHiddenRecipient(txn, bob)
			require.NoError(t, err)
			assert.True(t, hidden)
			locally, err := s.WasLocallyHidden(txn, bob)
			require.NoError(t, err)
			assert.False(t, locally, "restored hides are not locally initiated")

			sc, err := s.StoryContext(txn, aliceACI)
			require.NoError(t, err)
			require.NotNil(t, sc)
			assert.True(t, sc.IsHidden)

			p, err := s.UserProfile(txn, alice.Address)
			require.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, "Alice", *p.GivenName)
			assert.Nil(t, p.FamilyName)
			assert.Len(t, p.ProfileKey, backup.ProfileKeySize)
			return nil
		})
		require.NoError(t, err)

		// Importing again merges instead of inserting
		stats, err = Import(ctx, env, s.Stores(), st, name, ImportOptions{}, testLogger())
		require.NoError(t, err)
		assert.Equal(t, 2, stats.Restored)
		assert.Equal(t, 2, countRecipients(t, env, s))
	})
}

func TestExport_partial(t *testing.T) {
	ctx := context.Background()
	withEnv(t, func(env *lmdb.Env, s *lmdbstore.Store) {
		populate(t, env, s)
		// A profile key that cannot be archived
		err := env.Update(func(txn *lmdb.Txn) error {
			return s.SetProfile(txn, recipient.NewAddress(bobACI, recipient.ServiceID{}, ""), nil, nil, []byte{1, 2, 3})
		})
		require.NoError(t, err)

		st := memory.New()
		stats, err := Export(ctx, env, s.Stores(), st, ExportOptions{InstanceID: "test", FailOnPartial: true}, testLogger())
		assert.ErrorIs(t, err, ErrPartialBackup)
		assert.Equal(t, 1, stats.Failed)
		assert.Equal(t, map[string]int{archive.KindBuildFailed.String(): 1}, stats.ErrorKinds)
		list, err := st.List(ctx, "")
		require.NoError(t, err)
		assert.Len(t, list, 0)

		stats, err = Export(ctx, env, s.Stores(), st, ExportOptions{InstanceID: "test"}, testLogger())
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Archived)
		assert.Equal(t, 1, stats.Failed)
		list, err = st.List(ctx, "")
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}

func TestExport_canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	withEnv(t, func(env *lmdb.Env, s *lmdbstore.Store) {
		populate(t, env, s)
		_, err := Export(ctx, env, s.Stores(), memory.New(), ExportOptions{InstanceID: "test"}, testLogger())
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestExport_requiresInstance(t *testing.T) {
	withEnv(t, func(env *lmdb.Env, s *lmdbstore.Store) {
		_, err := Export(context.Background(), env, s.Stores(), memory.New(), ExportOptions{}, testLogger())
		assert.Error(t, err)
	})
}

func TestImport_failedFrames(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	name := backup.Name(DefaultPrefix, "test", time.Now())
	data := rawBackup(t, testInfo,
		contactFrame(t, 1, &backup.Contact{ACI: aliceACI.Bytes(), Blocked: true}),
		invalidFrame(2),
		contactFrame(t, 3, &backup.Contact{ACI: bobACI.Bytes()}),
	)
	require.NoError(t, st.Store(ctx, name, data))

	t.Run("continue", func(t *testing.T) {
		withEnv(t, func(env *lmdb.Env, s *lmdbstore.Store) {
			stats, err := Import(ctx, env, s.Stores(), st, name, ImportOptions{}, testLogger())
			require.NoError(t, err)
			assert.Equal(t, 3, stats.Frames)
			assert.Equal(t, 2, stats.Restored)
			assert.Equal(t, 1, stats.Failed)
			assert.Equal(t, map[string]int{"invalid_proto_data": 1}, stats.ErrorKinds)
			assert.Equal(t, 2, countRecipients(t, env, s))
		})
	})

	t.Run("abort", func(t *testing.T) {
		withEnv(t, func(env *lmdb.Env, s *lmdbstore.Store) {
			stats, err := Import(ctx, env, s.Stores(), st, name, ImportOptions{AbortOnError: true}, testLogger())
			assert.ErrorIs(t, err, archive.ErrInvalidProtoData)
			assert.Equal(t, 1, stats.Restored)
			assert.Equal(t, 1, stats.Failed)
			// The whole transaction was rolled back
			assert.Equal(t, 0, countRecipients(t, env, s))
			err = env.View(func(txn *lmdb.Txn) error {
				blocked, err := s.BlockedAddresses(txn)
				require.NoError(t, err)
				assert.Equal(t, 0, blocked.Len())
				return nil
			})
			require.NoError(t, err)
		})
	})
}

func TestImport_unhandledFrames(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	name := backup.Name(DefaultPrefix, "test", time.Now())

	chat := pbwire.NewBuffer(0)
	chat.FieldBytes(5, []byte{0x08, 0x01})
	group := pbwire.NewBuffer(0)
	rb := pbwire.NewBuffer(0)
	rb.PutUInt64(backup.FieldRecipientID, 9)
	rb.FieldBytes(3, []byte{0x0a, 0x00})
	group.FieldBytes(backup.FieldFrameRecipient, rb.Bytes())

	data := rawBackup(t, testInfo,
		chat.Bytes(),
		group.Bytes(),
		contactFrame(t, 1, &backup.Contact{ACI: aliceACI.Bytes()}),
	)
	require.NoError(t, st.Store(ctx, name, data))

	withEnv(t, func(env *lmdb.Env, s *lmdbstore.Store) {
		stats, err := Import(ctx, env, s.Stores(), st, "", ImportOptions{}, testLogger())
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Frames)
		assert.Equal(t, 2, stats.Unhandled)
		assert.Equal(t, 1, stats.Restored)
		assert.Equal(t, time.UnixMilli(1700000000000).UTC(), stats.BackupTime)
	})
}

func TestImport_errors(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	withEnv(t, func(env *lmdb.Env, s *lmdbstore.Store) {
		_, err := Import(ctx, env, s.Stores(), st, "", ImportOptions{}, testLogger())
		assert.ErrorIs(t, err, ErrNoBackup)

		_, err = Import(ctx, env, s.Stores(), st, "missing", ImportOptions{}, testLogger())
		assert.Error(t, err)

		newer := backup.Name(DefaultPrefix, "test", time.Now())
		require.NoError(t, st.Store(ctx, newer, rawBackup(t, &backup.BackupInfo{Version: backup.CurrentFormatVersion + 1})))
		_, err = Import(ctx, env, s.Stores(), st, newer, ImportOptions{}, testLogger())
		assert.Error(t, err)

		garbage := backup.Name(DefaultPrefix, "test", time.Now().Add(time.Second))
		require.NoError(t, st.Store(ctx, garbage, []byte("not gzip")))
		_, err = Import(ctx, env, s.Stores(), st, garbage, ImportOptions{}, testLogger())
		assert.Error(t, err)

		canceled, cancel := context.WithCancel(ctx)
		cancel()
		valid := backup.Name(DefaultPrefix, "test", time.Now().Add(2*time.Second))
		require.NoError(t, st.Store(ctx, valid, rawBackup(t, testInfo,
			contactFrame(t, 1, &backup.Contact{ACI: aliceACI.Bytes()}))))
		_, err = Import(canceled, env, s.Stores(), st, valid, ImportOptions{}, testLogger())
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, countRecipients(t, env, s))
	})
}

func TestListBackups(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	second := backup.Name(DefaultPrefix, "b", t0.Add(time.Hour))
	first := backup.Name(DefaultPrefix, "a", t0)
	require.NoError(t, st.Store(ctx, second, rawBackup(t, testInfo,
		contactFrame(t, 1, &backup.Contact{ACI: aliceACI.Bytes()}),
		contactFrame(t, 2, &backup.Contact{ACI: bobACI.Bytes()}),
	)))
	require.NoError(t, st.Store(ctx, first, []byte("broken")))
	require.NoError(t, st.Store(ctx, DefaultPrefix+"-unrelated.txt", []byte("x")))

	list, err := ListBackups(ctx, st, DefaultPrefix, false, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first, list[0].FullName)
	assert.Equal(t, second, list[1].FullName)
	assert.Nil(t, list[1].Info)

	list, err = ListBackups(ctx, st, DefaultPrefix, true, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Error(t, list[0].Err)
	require.NoError(t, list[1].Err)
	assert.Equal(t, backup.CurrentFormatVersion, list[1].Info.Version)
	assert.Equal(t, 2, list[1].Frames)

	var buf bytes.Buffer
	PrintListing(&buf, list[1], false)
	assert.Equal(t, second+"\n", buf.String())
	buf.Reset()
	PrintListing(&buf, list[1], true)
	assert.Contains(t, buf.String(), "v1 frames=2")
}

func TestDumpFrames(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	name := backup.Name(DefaultPrefix, "test", time.Now())
	require.NoError(t, st.Store(ctx, name, rawBackup(t, testInfo,
		contactFrame(t, 1, &backup.Contact{
			ACI:                   aliceACI.Bytes(),
			E164:                  ptr(phone.Uint64()),
			Registered:            backup.RegisteredNotRegistered,
			UnregisteredTimestamp: 1700000000,
			Blocked:               true,
			ProfileGivenName:      ptr("Alice"),
		}),
		invalidFrame(2),
	)))

	fr, info, err := LoadStream(ctx, st, name)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, DumpFrames(&buf, info, fr))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "# version=1 time=2023-11-14T22:13:20Z", lines[0])
	assert.Equal(t, "recipient id=1 contact aci=a1a1a1a1-0000-4000-8000-000000000001 e164=+15551234567 "+
		"registered=NOT_REGISTERED unregistered_at=1700000000 blocked given_name=\"Alice\"", lines[1])
	assert.Equal(t, "recipient id=2 contact registered=UNKNOWN blocked", lines[2])

	assert.Equal(t, "unhandled item=4", FormatFrame(&backup.Frame{ItemTag: 4}))
}
