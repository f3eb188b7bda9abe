package tasks

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/phonedir/internal/database"
	syncrepo "github.com/mrlokans/phonedir/internal/database/sync"
	"github.com/mrlokans/phonedir/internal/entities"
)

type scriptedBackend struct {
	mu       sync.Mutex
	outcomes map[string]entities.ImportOutcome
	order    []string
}

func (b *scriptedBackend) Import(_ context.Context, dn string) (entities.ImportOutcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.order = append(b.order, dn)
	outcome, ok := b.outcomes[dn]
	if !ok {
		return entities.ImportOutcome{}, errors.New("contact not found in directory")
	}
	return outcome, nil
}

func (b *scriptedBackend) ResolveConflict(context.Context, uint, entities.ResolutionAction, string) error {
	return errors.New("not used")
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(title, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, title+": "+message)
	return nil
}

func setupRuns(t *testing.T) (string, *syncrepo.Repository) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "phonedir.db")
	db, err := database.NewDatabase(dbPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return dbPath, syncrepo.NewRepository(db.DB)
}

func waitForRun(t *testing.T, runs *syncrepo.Repository, runID string) *entities.SyncProgress {
	t.Helper()
	var progress *entities.SyncProgress
	require.Eventually(t, func() bool {
		p, err := runs.Get(runID)
		if err != nil {
			return false
		}
		progress = p
		return p.Status == entities.SyncStatusCompleted || p.Status == entities.SyncStatusFailed
	}, 10*time.Second, 20*time.Millisecond)
	return progress
}

func TestBatchImports_RunsQueuedBatch(t *testing.T) {
	dbPath, runs := setupRuns(t)

	cfg := DefaultConfig()
	cfg.Workers = 1
	client, err := NewClient(dbPath, cfg, nil)
	require.NoError(t, err)
	defer client.Close()

	backend := &scriptedBackend{outcomes: map[string]entities.ImportOutcome{
		"uid=a": entities.SuccessOutcome("ok"),
		"uid=b": entities.ConflictOutcome(7, "b", "exists"),
	}}
	notifier := &recordingNotifier{}
	client.Register(NewImportBatchQueue(backend, runs, notifier, time.Second, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	batches := NewBatchImports(client, runs, func() int { return 10 }, nil)
	runID, err := batches.Enqueue(ctx, []entities.ImportCandidate{{DN: "uid=a"}, {DN: "uid=b"}, {DN: "uid=c"}})
	require.NoError(t, err)

	progress := waitForRun(t, runs, runID)
	assert.Equal(t, entities.SyncStatusCompleted, progress.Status)
	assert.Equal(t, 3, progress.TotalItems)
	assert.Equal(t, 3, progress.Processed)
	assert.Equal(t, 1, progress.Succeeded)
	assert.Equal(t, 1, progress.Conflicts)
	assert.Equal(t, 1, progress.Failed)

	backend.mu.Lock()
	assert.Equal(t, []string{"uid=a", "uid=b", "uid=c"}, backend.order)
	backend.mu.Unlock()

	require.Eventually(t, func() bool {
		notifier.mu.Lock()
		defer notifier.mu.Unlock()
		return len(notifier.messages) == 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, "Batch Import Complete: Import completed: 1 successful, 1 conflicts, 1 errors", notifier.messages[0])

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	client.Stop(stopCtx)
}

func TestBatchImports_EmptyBatchCompletesImmediately(t *testing.T) {
	_, runs := setupRuns(t)
	batches := NewBatchImports(nil, runs, nil, nil)

	runID, err := batches.Enqueue(context.Background(), nil)
	require.NoError(t, err)

	progress, err := batches.Status(runID)
	require.NoError(t, err)
	assert.Equal(t, entities.SyncStatusCompleted, progress.Status)
	assert.Zero(t, progress.TotalItems)
	assert.Zero(t, progress.Processed)
}

func TestBatchImports_TooLarge(t *testing.T) {
	_, runs := setupRuns(t)
	batches := NewBatchImports(nil, runs, func() int { return 1 }, nil)

	_, err := batches.Enqueue(context.Background(), []entities.ImportCandidate{{DN: "a"}, {DN: "b"}})
	assert.ErrorIs(t, err, ErrBatchTooLarge)
}

type fakeCleaner struct {
	retention time.Duration
}

func (c *fakeCleaner) Cleanup(retention time.Duration) (int64, error) {
	c.retention = retention
	return 3, nil
}

func TestCleanupNotificationsProcessor(t *testing.T) {
	cleaner := &fakeCleaner{}
	process := CleanupNotificationsProcessor(cleaner, nil)

	require.NoError(t, process(context.Background(), CleanupNotificationsTask{RetentionDays: 7}))
	assert.Equal(t, 7*24*time.Hour, cleaner.retention)

	require.NoError(t, process(context.Background(), CleanupNotificationsTask{}))
	assert.Equal(t, DefaultNotificationRetentionDays*24*time.Hour, cleaner.retention)

	assert.Error(t, CleanupNotificationsProcessor(nil, nil)(context.Background(), CleanupNotificationsTask{}))
}
