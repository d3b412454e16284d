package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ridoystarlord/dupfix/cleaner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const dirtyColumns = `                columns: table => new
                {
                    Id = table.Column<Guid>(type: "uuid", nullable: false),
                    CustomerId = table.Column<Guid>(type: "uuid", nullable: false),
                    CustomerId1 = table.Column<Guid>(type: "uuid", nullable: true)
                },
`

func newTestWatcher(t *testing.T, dir string, opts ...Option) *Watcher {
	t.Helper()
	c, err := cleaner.New(cleaner.DefaultRules())
	require.NoError(t, err)
	opts = append([]Option{WithLogger(zap.NewNop())}, opts...)
	w, err := New(dir, c, []string{"*.cs"}, opts...)
	require.NoError(t, err)
	return w
}

func TestNew_RejectsFile(t *testing.T) {
	c, err := cleaner.New(cleaner.DefaultRules())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "Initial.cs")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	_, err = New(path, c, nil)
	assert.ErrorContains(t, err, "not a directory")

	_, err = New(filepath.Join(t.TempDir(), "missing"), c, nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestProcessDebounced_FixesSettledFiles(t *testing.T) {
	dir := t.TempDir()
	var fixed atomic.Int32
	w := newTestWatcher(t, dir, WithDebounce(0), OnFix(func(res *cleaner.Result) {
		fixed.Add(1)
		assert.Equal(t, 1, res.Removed[cleaner.CategoryColumn])
	}))
	defer w.Close()

	migration := filepath.Join(dir, "20251122235505_Initial.cs")
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(migration, []byte(dirtyColumns), 0644))
	require.NoError(t, os.WriteFile(notes, []byte(dirtyColumns), 0644))

	w.handleEvent(fsnotify.Event{Name: migration, Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: notes, Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: migration, Op: fsnotify.Chmod})
	w.processDebounced()

	data, err := os.ReadFile(migration)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "CustomerId1")

	data, err = os.ReadFile(notes)
	require.NoError(t, err)
	assert.Equal(t, dirtyColumns, string(data))

	stats := w.Stats()
	assert.Equal(t, 1, stats.Events)
	assert.Equal(t, 1, stats.FilesChecked)
	assert.Equal(t, 1, stats.FilesFixed)
	assert.Equal(t, migration, stats.LastFixedPath)
	assert.Equal(t, int32(1), fixed.Load())

	// the write-back event settles into a no-op pass
	w.handleEvent(fsnotify.Event{Name: migration, Op: fsnotify.Write})
	w.processDebounced()

	stats = w.Stats()
	assert.Equal(t, 2, stats.FilesChecked)
	assert.Equal(t, 1, stats.FilesFixed)
	assert.Equal(t, int32(1), fixed.Load())
}

func TestProcessDebounced_WaitsForQuietFile(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, dir, WithDebounce(time.Hour))
	defer w.Close()

	migration := filepath.Join(dir, "Initial.cs")
	require.NoError(t, os.WriteFile(migration, []byte(dirtyColumns), 0644))

	w.handleEvent(fsnotify.Event{Name: migration, Op: fsnotify.Create})
	w.processDebounced()

	data, err := os.ReadFile(migration)
	require.NoError(t, err)
	assert.Equal(t, dirtyColumns, string(data))
	assert.Zero(t, w.Stats().FilesChecked)
}

func TestProcessDebounced_DeletedFile(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, dir, WithDebounce(0))
	defer w.Close()

	w.handleEvent(fsnotify.Event{Name: filepath.Join(dir, "Gone.cs"), Op: fsnotify.Create})
	w.processDebounced()

	stats := w.Stats()
	assert.Zero(t, stats.Errors)
	assert.Zero(t, stats.FilesChecked)
}

func TestRun_FixesNewMigration(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "Migrations")
	require.NoError(t, os.Mkdir(sub, 0755))
	w := newTestWatcher(t, dir, WithDebounce(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// give Run time to register the directories
	time.Sleep(200 * time.Millisecond)
	migration := filepath.Join(sub, "Initial.cs")
	require.NoError(t, os.WriteFile(migration, []byte(dirtyColumns), 0644))

	assert.Eventually(t, func() bool {
		data, err := os.ReadFile(migration)
		return err == nil && !strings.Contains(string(data), "CustomerId1")
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
	assert.Equal(t, 1, w.Stats().FilesFixed)
}
