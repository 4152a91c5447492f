package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/sakif/snippet-shelf/internal/apperror"
	"github.com/sakif/snippet-shelf/internal/model"
	"github.com/sakif/snippet-shelf/internal/repository"
)

// DefaultMigrationWorkers is the pool size when none is configured.
const DefaultMigrationWorkers = 4

// MigrationOutcome is the result of copying one local record.
type MigrationOutcome struct {
	Record   model.Snippet
	RemoteID string
	Err      error
}

// MigrationReport lists one outcome per local record, in local order.
type MigrationReport struct {
	OwnerID  string
	Outcomes []MigrationOutcome
}

// Total is the number of local records that were attempted.
func (r *MigrationReport) Total() int { return len(r.Outcomes) }

// Migrated counts records that now exist remotely.
func (r *MigrationReport) Migrated() int {
	return r.Total() - len(r.Failed())
}

// Failed returns the outcomes whose remote create failed.
func (r *MigrationReport) Failed() []MigrationOutcome {
	var failed []MigrationOutcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// Err returns a PartialMigration error when any record failed, else nil.
func (r *MigrationReport) Err() error {
	if failed := len(r.Failed()); failed > 0 {
		return apperror.PartialMigration(failed, r.Total())
	}
	return nil
}

// Migrator moves the anonymous local collection into an account.
//
// THE MIGRATION CONTRACT:
//  1. Read every local record.
//  2. Create each one remotely under the new owner (fresh id, same content
//     and timestamps). Creates run concurrently on an ants pool.
//  3. Wait for ALL creates to finish, successful or not.
//  4. Drop the snapshot from the local store, no matter how step 2 went.
//
// Step 4 removes exactly the records read in step 1. Anything an anonymous
// caller saved while the copies were running stays local. The local lock is
// held only around steps 1 and 4, so those writes are not blocked.
//
// Step 4 being unconditional means a record that failed in step 2 is gone.
// That is the accepted trade-off: the local store must never be read again
// as the source of truth once an account exists. Failures are logged and
// listed in the report so the caller can tell the user.
type Migrator struct {
	local   repository.LocalStore
	remote  repository.RemoteStore
	workers int
	localMu *sync.Mutex
	logger  *slog.Logger
	clock   func() time.Time
}

// NewMigrator creates a standalone Migrator with its own local lock.
// workers <= 0 uses DefaultMigrationWorkers. When a SnippetService writes to
// the same local store concurrently, use SnippetService.NewMigrator instead.
func NewMigrator(local repository.LocalStore, remote repository.RemoteStore, workers int, logger *slog.Logger) *Migrator {
	if workers <= 0 {
		workers = DefaultMigrationWorkers
	}
	return &Migrator{
		local:   local,
		remote:  remote,
		workers: workers,
		localMu: &sync.Mutex{},
		logger:  logger,
		clock:   time.Now,
	}
}

// NewMigrator returns a Migrator over the service's stores that shares its
// local lock, so migration and anonymous writes never interleave a
// read-modify-write.
func (s *SnippetService) NewMigrator(workers int) *Migrator {
	m := NewMigrator(s.local, s.remote, workers, s.logger)
	m.localMu = s.localMu
	m.clock = s.clock
	return m
}

// Migrate copies the local collection to ownerID and then clears it.
//
// The returned error is only for failures that stop the routine itself:
// reading or clearing the local store, or starting the pool. Per-record
// failures are in the report (see MigrationReport.Err).
func (m *Migrator) Migrate(ctx context.Context, ownerID string) (*MigrationReport, error) {
	if ownerID == "" || ownerID == model.LocalOwner {
		return nil, apperror.ValidationFailed("owner", "migration needs a signed-in owner")
	}

	m.localMu.Lock()
	records, err := m.local.Get(ctx)
	m.localMu.Unlock()
	if err != nil {
		return nil, apperror.BackendUnavailable(backendLocal, err)
	}

	report := &MigrationReport{OwnerID: ownerID, Outcomes: make([]MigrationOutcome, len(records))}
	if len(records) == 0 {
		return report, nil
	}

	pool, err := ants.NewPool(m.workers)
	if err != nil {
		return nil, fmt.Errorf("service: creating migration pool: %w", err)
	}
	defer pool.Release()

	target := &remoteBackend{store: m.remote, ownerID: ownerID}
	var wg sync.WaitGroup

	for i := range records {
		record := records[i]
		// Each goroutine writes only its own slot, so no lock is needed.
		slot := &report.Outcomes[i]
		slot.Record = record

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			slot.RemoteID, slot.Err = m.copyOne(ctx, target, record)
		})
		if submitErr != nil {
			wg.Done()
			slot.Err = fmt.Errorf("service: scheduling migration: %w", submitErr)
		}
	}

	wg.Wait()

	for _, o := range report.Failed() {
		m.logger.Error("snippet failed to migrate",
			slog.String("localID", o.Record.ID),
			slog.String("title", o.Record.Title),
			slog.String("error", o.Err.Error()),
		)
	}

	if err := m.dropSnapshot(ctx, records); err != nil {
		return report, apperror.BackendUnavailable(backendLocal, err)
	}

	m.logger.Info("local snippets migrated",
		slog.String("ownerID", ownerID),
		slog.Int("total", report.Total()),
		slog.Int("migrated", report.Migrated()),
	)
	return report, nil
}

// dropSnapshot removes the migrated records from the local store and keeps
// whatever was added since they were read.
func (m *Migrator) dropSnapshot(ctx context.Context, snapshot []model.Snippet) error {
	m.localMu.Lock()
	defer m.localMu.Unlock()

	current, err := m.local.Get(ctx)
	if err != nil {
		return err
	}

	migrated := make(map[string]struct{}, len(snapshot))
	for _, r := range snapshot {
		migrated[r.ID] = struct{}{}
	}
	kept := make([]model.Snippet, 0, len(current))
	for _, r := range current {
		if _, ok := migrated[r.ID]; !ok {
			kept = append(kept, r)
		}
	}

	if len(kept) == 0 {
		return m.local.Clear(ctx)
	}
	m.logger.Info("keeping snippets saved during migration", slog.Int("count", len(kept)))
	return m.local.Set(ctx, kept)
}

// copyOne carries kind, title, body, language, rich preview, tags and both
// timestamps. Pin state and usage counters start fresh on the remote side.
func (m *Migrator) copyOne(ctx context.Context, target Backend, record model.Snippet) (string, error) {
	draft := model.Draft{
		Kind:            record.Kind,
		Title:           record.Title,
		Body:            record.Body,
		Language:        record.Language,
		RichPreviewHTML: record.RichPreviewHTML,
		Tags:            record.Tags,
		CreatedAt:       record.CreatedAt,
		UpdatedAt:       record.UpdatedAt,
	}
	snippet, err := prepare(draft, m.clock())
	if err != nil {
		return "", err
	}
	if err := target.Create(ctx, &snippet); err != nil {
		return "", err
	}
	return snippet.ID, nil
}

// MigrationTrigger runs the Migrator at most once per process, the first
// time an owner appears after the anonymous state.
//
// The server starts anonymous. The first sign-in fires the migration;
// sign-out and later sign-ins (same or different account) do not.
type MigrationTrigger struct {
	migrator  *Migrator
	localOnly bool
	logger    *slog.Logger

	mu        sync.Mutex
	fired     bool
	lastOwner string
}

// NewMigrationTrigger creates a trigger. With localOnly set it never fires.
func NewMigrationTrigger(migrator *Migrator, localOnly bool, logger *slog.Logger) *MigrationTrigger {
	return &MigrationTrigger{migrator: migrator, localOnly: localOnly, logger: logger}
}

// OnAuthChange records the current owner ("" for signed out) and migrates
// if this is the first absent → present transition. The report is nil when
// nothing ran.
func (t *MigrationTrigger) OnAuthChange(ctx context.Context, ownerID string) (*MigrationReport, error) {
	t.mu.Lock()
	previous := t.lastOwner
	t.lastOwner = ownerID
	fire := !t.fired && !t.localOnly && previous == "" && ownerID != ""
	if fire {
		t.fired = true
	}
	t.mu.Unlock()

	if !fire {
		return nil, nil
	}

	t.logger.Info("first sign-in, migrating local snippets", slog.String("ownerID", ownerID))
	report, err := t.migrator.Migrate(ctx, ownerID)
	if err != nil {
		t.logger.Error("migration failed", slog.String("error", err.Error()))
		return report, err
	}
	if perr := report.Err(); perr != nil {
		t.logger.Warn("migration finished with failures", slog.String("error", perr.Error()))
	}
	return report, nil
}

// Fired reports whether the trigger has already run.
func (t *MigrationTrigger) Fired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fired
}
