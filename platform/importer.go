package platform

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/erg0nix/spill/jsonrpc"
	"github.com/erg0nix/spill/task"
)

// GetFunc fetches the value for one id. importCtx is whatever PrepareContext
// produced for this run.
type GetFunc func(ctx context.Context, id string, importCtx any) (any, error)

// CollectionGetFunc fetches an open-ended sequence of result batches for one
// id, passing each batch to emit as it becomes available.
type CollectionGetFunc func(ctx context.Context, id string, importCtx any, emit func(batch any)) error

// ImporterConfig wires an importer to its task manager, its fetch callbacks
// and its notification sinks.
type ImporterConfig struct {
	Tasks *task.Manager
	Name  string

	// PrepareContext runs once per import, before any fetch. Optional.
	PrepareContext func(ctx context.Context, ids []string) (any, error)

	Get GetFunc

	OnSuccess  func(id string, value any)
	OnFailure  func(id string, err *jsonrpc.Error)
	OnFinished func()

	// OnComplete is the integrator's post-import hook. Optional.
	OnComplete func()

	Logger *slog.Logger
}

// Importer turns one "import these ids" call into supervised per-id fetches
// with exactly one success or failure notification per id and a single
// finished notification after all fetches settle. At most one import run per
// Importer may be in progress.
type Importer struct {
	tasks          *task.Manager
	name           string
	prepareContext func(ctx context.Context, ids []string) (any, error)
	notifySuccess  func(id string, value any)
	notifyFailure  func(id string, err *jsonrpc.Error)
	notifyFinished func()
	complete       func()
	logger         *slog.Logger

	// importOne and fanOut are the variant hooks; constructors fill them.
	importOne func(ctx context.Context, id string, importCtx any)
	fanOut    func(ctx context.Context, ids []string, importCtx any)

	mu         sync.Mutex
	inProgress bool
}

func newImporter(cfg ImporterConfig) *Importer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	i := &Importer{
		tasks:          cfg.Tasks,
		name:           cfg.Name,
		prepareContext: cfg.PrepareContext,
		notifySuccess:  cfg.OnSuccess,
		notifyFailure:  cfg.OnFailure,
		notifyFinished: cfg.OnFinished,
		complete:       cfg.OnComplete,
		logger:         logger,
	}
	i.fanOut = i.fanOutConcurrent
	return i
}

// NewImporter creates the base variant: all ids fetched concurrently via
// cfg.Get.
func NewImporter(cfg ImporterConfig) *Importer {
	i := newImporter(cfg)
	get := cfg.Get
	i.importOne = func(ctx context.Context, id string, importCtx any) {
		value, err := get(ctx, id, importCtx)
		i.settleOne(id, err, func() { i.notifySuccess(id, value) })
	}
	return i
}

// NewCollectionImporter creates the streaming variant: each id yields a lazy
// sequence of batches, every batch produces a success notification, and a
// per-id partially-finished notification fires once the sequence is
// exhausted, before the shared finished notification.
func NewCollectionImporter(cfg ImporterConfig, get CollectionGetFunc, partiallyFinished func(id string)) *Importer {
	i := newImporter(cfg)
	i.importOne = func(ctx context.Context, id string, importCtx any) {
		defer partiallyFinished(id)
		err := get(ctx, id, importCtx, func(batch any) { i.notifySuccess(id, batch) })
		i.settleOne(id, err, nil)
	}
	return i
}

// NewSynchronousImporter creates the sequential variant for business methods
// that are not safe to call concurrently: ids are fetched one after another.
func NewSynchronousImporter(cfg ImporterConfig) *Importer {
	i := NewImporter(cfg)
	i.fanOut = i.fanOutSequential
	return i
}

// Start begins an import run for the given ids. It fails fast with
// ImportInProgress while a run is active. A context-preparation failure
// resets the session flag and propagates to the caller; no notifications
// have been sent and no fetches started. On success the run is handed to
// the task manager and Start returns immediately.
func (i *Importer) Start(ctx context.Context, ids []string) error {
	i.mu.Lock()
	if i.inProgress {
		i.mu.Unlock()
		return ImportInProgress()
	}
	i.inProgress = true
	i.mu.Unlock()

	var importCtx any
	if i.prepareContext != nil {
		var err error
		importCtx, err = i.prepareContext(ctx, ids)
		if err != nil {
			i.setInProgress(false)
			return err
		}
	}

	i.tasks.Create(ctx, i.name+" import", true, func(tctx context.Context) (any, error) {
		defer i.setInProgress(false)

		i.fanOut(tctx, ids, importCtx)
		if tctx.Err() != nil {
			i.logger.Debug("import cancelled", "importer", i.name)
			return nil, tctx.Err()
		}
		i.notifyFinished()
		if i.complete != nil {
			i.complete()
		}
		return nil, nil
	})
	return nil
}

func (i *Importer) fanOutConcurrent(ctx context.Context, ids []string, importCtx any) {
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			i.importOne(ctx, id, importCtx)
		}(id)
	}
	wg.Wait()
}

func (i *Importer) fanOutSequential(ctx context.Context, ids []string, importCtx any) {
	for _, id := range ids {
		i.importOne(ctx, id, importCtx)
	}
}

// settleOne maps a fetch outcome to its single notification: application
// errors become failures, cancellation is absorbed silently, anything else
// is logged and reported as an unknown-error failure.
func (i *Importer) settleOne(id string, err error, onSuccess func()) {
	switch {
	case err == nil:
		if onSuccess != nil {
			onSuccess()
		}
	case errors.Is(err, context.Canceled):
		// Teardown in progress, not a reportable business failure.
	default:
		var appErr *jsonrpc.Error
		if errors.As(err, &appErr) {
			i.notifyFailure(id, appErr)
			return
		}
		i.logger.Error("unexpected error in importer fetch", "importer", i.name, "id", id, "error", err)
		i.notifyFailure(id, jsonrpc.UnknownError(nil))
	}
}

func (i *Importer) setInProgress(v bool) {
	i.mu.Lock()
	i.inProgress = v
	i.mu.Unlock()
}

// InProgress reports whether an import run is currently active.
func (i *Importer) InProgress() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.inProgress
}
