package debounce

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/handsomefox/cinebrowse/internal/catalog"
	"github.com/handsomefox/cinebrowse/internal/logger"
)

const (
	DefaultDelay = 500 * time.Millisecond

	FailureMessage = "error loading search results"
)

type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusQuerying
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusQuerying:
		return "querying"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

// SearchFunc runs one search for text and returns the refined page.
type SearchFunc func(ctx context.Context, text string) (catalog.ResultPage, error)

// TextSink receives the committed search text. query.Store satisfies it,
// which resets the page and mirrors the text into the URL.
type TextSink interface {
	SetSearchText(text string)
}

type Snapshot struct {
	Status Status
	// Text is the latest typed input, Query the text of the last request.
	Text        string
	Query       string
	Results     catalog.ResultPage
	HasSearched bool
	Err         error
	Message     string
}

type TriggerConfig struct {
	Delay     time.Duration
	Search    SearchFunc
	Sink      TextSink
	OnChange  func(Snapshot)
	Logger    *slog.Logger
	AfterFunc AfterFunc
}

// Trigger turns keystrokes into at most one search per pause in typing.
// Each keystroke bumps a generation counter; responses from an older
// generation are dropped and their requests cancelled, so the displayed
// results always match the latest committed text.
type Trigger struct {
	debouncer *Debouncer
	search    SearchFunc
	sink      TextSink
	onChange  func(Snapshot)
	logger    *slog.Logger

	base       context.Context
	baseCancel context.CancelFunc

	mu       sync.Mutex
	gen      uint64
	inflight context.CancelFunc
	snap     Snapshot
}

func NewTrigger(cfg TriggerConfig) (*Trigger, error) {
	if cfg.Search == nil {
		return nil, errors.New("search func is required")
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Trigger{
		debouncer:  New(cfg.Delay, cfg.AfterFunc),
		search:     cfg.Search,
		sink:       cfg.Sink,
		onChange:   cfg.OnChange,
		logger:     logger,
		base:       base,
		baseCancel: cancel,
	}, nil
}

func (t *Trigger) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

// Keystroke records the new input and restarts the debounce timer. Any
// outstanding timer or in-flight request is abandoned.
func (t *Trigger) Keystroke(text string) {
	t.mu.Lock()
	t.gen++
	gen := t.gen
	t.abortLocked()
	t.snap.Status = StatusPending
	t.snap.Text = text
	snap := t.snap
	t.mu.Unlock()

	t.notify(snap)
	t.debouncer.Call(func() { t.fire(gen, text, true) })
}

// Submit searches for text at once without the debounce delay and without
// writing to the sink. It serves text that already came from the URL, so the
// page the URL asked for is kept. Blank text clears the results.
func (t *Trigger) Submit(text string) {
	t.debouncer.Cancel()
	t.mu.Lock()
	t.gen++
	gen := t.gen
	t.abortLocked()
	t.snap.Text = text
	t.mu.Unlock()

	t.fire(gen, text, false)
}

// Refresh re-runs the last committed query immediately, for filter or page
// changes that need fresh catalog data. It reports whether a search started:
// before any search there is nothing to re-run, and while a keystroke is
// pending the timer is left alone because its search reads the new state.
func (t *Trigger) Refresh() bool {
	t.mu.Lock()
	if t.snap.Query == "" || t.snap.Status == StatusPending {
		t.mu.Unlock()
		return false
	}
	t.gen++
	gen := t.gen
	t.abortLocked()
	query := t.snap.Query
	ctx := t.beginLocked(query)
	snap := t.snap
	t.mu.Unlock()

	t.notify(snap)
	t.run(ctx, gen, query)
	return true
}

// Close stops the timer and cancels any request in flight.
func (t *Trigger) Close() {
	t.debouncer.Cancel()
	t.mu.Lock()
	t.gen++
	t.abortLocked()
	t.mu.Unlock()
	t.baseCancel()
}

// fire runs when the debounce delay expires. commit mirrors the text into
// the sink, which also returns the store to page 1.
func (t *Trigger) fire(gen uint64, text string, commit bool) {
	trimmed := strings.TrimSpace(text)

	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return
	}
	if trimmed == "" {
		t.snap = Snapshot{Status: StatusIdle, Text: text}
		snap := t.snap
		t.mu.Unlock()

		if commit && t.sink != nil {
			t.sink.SetSearchText("")
		}
		t.notify(snap)
		return
	}
	ctx := t.beginLocked(trimmed)
	snap := t.snap
	t.mu.Unlock()

	// The sink is updated before searching so the search sees page 1.
	if commit && t.sink != nil {
		t.sink.SetSearchText(trimmed)
	}
	t.notify(snap)
	t.run(ctx, gen, trimmed)
}

// beginLocked moves to Querying and returns the request context.
func (t *Trigger) beginLocked(query string) context.Context {
	ctx, cancel := context.WithCancel(t.base)
	t.inflight = cancel
	t.snap.Status = StatusQuerying
	t.snap.Query = query
	t.snap.HasSearched = true
	t.snap.Err = nil
	t.snap.Message = ""
	return ctx
}

func (t *Trigger) abortLocked() {
	if t.inflight != nil {
		t.inflight()
		t.inflight = nil
	}
}

func (t *Trigger) run(ctx context.Context, gen uint64, query string) {
	started := time.Now()
	page, err := t.search(ctx, query)

	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		t.logger.Debug("search: dropped stale response",
			slog.String("query", query),
			slog.Uint64("generation", gen),
		)
		return
	}
	if t.inflight != nil {
		t.inflight()
		t.inflight = nil
	}
	if err != nil {
		t.snap.Status = StatusFailed
		t.snap.Err = err
		t.snap.Message = FailureMessage
	} else {
		t.snap.Status = StatusIdle
		t.snap.Results = page
	}
	snap := t.snap
	t.mu.Unlock()

	if err != nil {
		t.logger.Warn("search failed", slog.String("query", query), logger.Error(err))
	} else {
		t.logger.Debug("search done",
			slog.String("query", query),
			slog.Int("items", len(page.Items)),
			slog.Duration("took", time.Since(started)),
		)
	}
	t.notify(snap)
}

func (t *Trigger) notify(snap Snapshot) {
	if t.onChange != nil {
		t.onChange(snap)
	}
}
