// Package dictation implements the session state machine at the heart of the
// daemon: start/stop/toggle triggers, the audio-forward and stream-consume
// tasks, finalization with optional correction, and recovery of sessions left
// stale by a host suspend.
//
// All state mutations run behind one mutex. Calls that may block (permission
// prompts, provider start/stop, correction) release the mutex first and
// re-validate their session id before applying results, since a stop or a new
// start can occur while they are suspended.
package dictation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voxd/voxd/internal/bridge"
	"github.com/voxd/voxd/internal/correction"
	"github.com/voxd/voxd/internal/history"
	"github.com/voxd/voxd/internal/observe"
	"github.com/voxd/voxd/internal/promptctx"
	"github.com/voxd/voxd/pkg/audio"
	"github.com/voxd/voxd/pkg/provider/asr"
	"github.com/voxd/voxd/pkg/provider/correct"
	"github.com/voxd/voxd/pkg/types"
)

// Errors returned by the trigger entry points.
var (
	// ErrSessionActive is returned by Start when a session is already
	// recording, transcribing, or finalizing.
	ErrSessionActive = errors.New("dictation: session already active")

	// ErrNoSession is returned by Stop when nothing is recording.
	ErrNoSession = errors.New("dictation: no active session")
)

// Config holds the orchestrator timing knobs. The zero value is usable; every
// zero field falls back to its default.
type Config struct {
	// PreferStreaming selects streaming mode when the provider supports it.
	PreferStreaming bool

	// Language is the recognition language hint passed to the provider.
	Language string

	// Correction is the option set passed to the correction pipeline.
	Correction correct.Options

	// Debounce suppresses triggers arriving within this window of the
	// previous accepted trigger. Default 500ms.
	Debounce time.Duration

	// IdleTimeout releases the warm audio source after this long in idle.
	// Default 5 minutes.
	IdleTimeout time.Duration

	// ErrorRevert is how long the error state lasts before auto-reverting
	// to idle. Default 5s.
	ErrorRevert time.Duration

	// Heartbeat is the alive-signal publish interval. Default 2s.
	Heartbeat time.Duration

	// FinalizeWait bounds how long a recovery request waits for a
	// finalizing session to reach idle. Default 1s.
	FinalizeWait time.Duration

	// ContextCharBudget bounds the compacted context block in correction
	// prompts. Zero uses the promptctx default.
	ContextCharBudget int

	// MaxRecent caps the retained recent utterances for context. Zero uses
	// the promptctx default.
	MaxRecent int
}

func (c Config) withDefaults() Config {
	if c.Debounce <= 0 {
		c.Debounce = 500 * time.Millisecond
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 5 * time.Minute
	}
	if c.ErrorRevert <= 0 {
		c.ErrorRevert = 5 * time.Second
	}
	if c.Heartbeat <= 0 {
		c.Heartbeat = 2 * time.Second
	}
	if c.FinalizeWait <= 0 {
		c.FinalizeWait = time.Second
	}
	return c
}

// Orchestrator is the single-owner session state machine. All external
// triggers (toggle, start, stop, recover) funnel through its serialized entry
// points; background tasks never mutate state directly.
type Orchestrator struct {
	cfg      Config
	provider asr.Provider
	source   audio.Source
	bridge   bridge.Bridge
	pipeline *correction.Pipeline
	store    history.Store
	metrics  *observe.Metrics
	log      *slog.Logger

	mu           sync.Mutex
	state        State
	errMsg       string
	sessionID    string
	seq          int
	pctx         promptctx.Context
	streaming    bool
	batch        []audio.Chunk
	lastPartial  *types.TranscriptionResult
	lastFinal    *types.TranscriptionResult
	sourceWarm   bool
	pendingStart bool
	lastTrigger  time.Time
	sessionStart time.Time

	forwardCancel context.CancelFunc
	forwardDone   chan struct{}
	consumeCancel context.CancelFunc
	consumeDone   chan struct{}

	idleTimer   *time.Timer
	revertTimer *time.Timer
}

// Option is a functional option for configuring an Orchestrator.
type Option func(*Orchestrator)

// WithCorrection attaches the correction pipeline run over final transcripts.
func WithCorrection(p *correction.Pipeline) Option {
	return func(o *Orchestrator) { o.pipeline = p }
}

// WithHistory attaches the utterance history store. Append failures are
// logged, never fatal.
func WithHistory(s history.Store) Option {
	return func(o *Orchestrator) { o.store = s }
}

// WithMetrics attaches session metrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithUserTerms seeds the user dictionary terms used for recognition keywords
// and correction context.
func WithUserTerms(terms []string) Option {
	return func(o *Orchestrator) { o.pctx = o.pctx.WithTerms(terms) }
}

// New creates an Orchestrator in the idle state.
func New(cfg Config, provider asr.Provider, source audio.Source, br bridge.Bridge, opts ...Option) *Orchestrator {
	cfg = cfg.withDefaults()
	o := &Orchestrator{
		cfg:      cfg,
		provider: provider,
		source:   source,
		bridge:   br,
		log:      slog.Default(),
		state:    StateIdle,
		pctx:     promptctx.New(cfg.MaxRecent, 0),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current session state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// SessionID returns the id of the current (or most recent) session.
func (o *Orchestrator) SessionID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessionID
}

// ErrorMessage returns the message of the current error state, "" otherwise.
func (o *Orchestrator) ErrorMessage() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.errMsg
}

// SeedContext loads recent utterances (newest first) and user terms into the
// correction context, typically from the history store at startup.
func (o *Orchestrator) SeedContext(recent []string, terms []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	// Push iterates oldest first so the ring ends up newest first.
	for i := len(recent) - 1; i >= 0; i-- {
		o.pctx = o.pctx.Push(recent[i])
	}
	if terms != nil {
		o.pctx = o.pctx.WithTerms(terms)
	}
}

// SetCorrection replaces the correction options used by subsequent sessions.
// A session already finalizing keeps the options it started with.
func (o *Orchestrator) SetCorrection(opts correct.Options) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cfg.Correction = opts
}

// SetLanguage replaces the recognition language hint for subsequent sessions.
func (o *Orchestrator) SetLanguage(lang string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cfg.Language = lang
}

// SetUserTerms replaces the user dictionary terms for subsequent sessions.
func (o *Orchestrator) SetUserTerms(terms []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pctx = o.pctx.WithTerms(terms)
}

// Toggle is the external trigger entry point: starts when idle, stops when
// recording, and is ignored during finalizing. Triggers within the debounce
// window of the previous accepted trigger are dropped.
func (o *Orchestrator) Toggle(ctx context.Context) error {
	o.mu.Lock()
	now := time.Now()
	if now.Sub(o.lastTrigger) < o.cfg.Debounce {
		o.mu.Unlock()
		o.log.Debug("trigger debounced")
		return nil
	}
	o.lastTrigger = now
	state := o.state
	o.mu.Unlock()

	switch state {
	case StateIdle, StateError:
		return o.Start(ctx)
	case StateRecording, StateTranscribing:
		return o.Stop(ctx)
	default:
		// Finalizing: no queueing of a second stop.
		return nil
	}
}

// Start begins a new dictation session. It fails with [ErrSessionActive] when
// one is already running. Start-time failures (no provider, permission
// denied, unusable audio format) put the machine into the error state, which
// auto-reverts to idle after the configured delay.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.state.Active() || o.state == StateFinalizing || o.pendingStart {
		o.mu.Unlock()
		return ErrSessionActive
	}
	o.cancelRevertLocked()
	o.cancelIdleLocked()
	o.pendingStart = true

	sid := uuid.NewString()
	o.sessionID = sid
	o.seq = 0
	o.lastPartial = nil
	o.lastFinal = nil
	o.batch = nil
	o.errMsg = ""
	o.sessionStart = time.Now()
	warm := o.sourceWarm
	terms := o.pctx.Terms()
	language := o.cfg.Language
	preferStreaming := o.cfg.PreferStreaming
	o.mu.Unlock()

	o.bridge.Clear()

	if !o.provider.IsAvailable(ctx) {
		return o.failStart(sid, "transcription provider unavailable", nil)
	}

	if warm {
		if err := o.source.Resume(); err != nil {
			// The warm engine died underneath us; fall through to a cold start.
			o.log.Warn("resume on warm source failed, reacquiring", "error", err)
			warm = false
		}
	}
	if !warm {
		granted, err := o.source.RequestPermission(ctx)
		if err != nil {
			return o.failStart(sid, "microphone permission check failed", err)
		}
		if !granted {
			return o.failStart(sid, "microphone permission denied", nil)
		}
		if err := o.source.Start(ctx); err != nil {
			return o.failStart(sid, startErrorMessage(err), err)
		}
	}

	streaming := preferStreaming && o.provider.SupportsStreaming()
	var stream *asr.Stream
	if streaming {
		var err error
		stream, err = o.provider.StartStreaming(ctx, asr.StreamConfig{
			Format:   audio.FormatPCM16Mono,
			Language: language,
			Keywords: terms,
		})
		if err != nil {
			if idleErr := o.source.Idle(); idleErr != nil {
				o.log.Warn("idle after failed stream start", "error", idleErr)
			}
			o.mu.Lock()
			o.sourceWarm = true
			o.mu.Unlock()
			return o.failStart(sid, "streaming session could not be opened", err)
		}
	}

	o.mu.Lock()
	if o.sessionID != sid {
		// Superseded while suspended; abandon quietly.
		o.mu.Unlock()
		if stream != nil {
			_, _ = o.provider.StopStreaming(context.Background())
		}
		return nil
	}
	o.pendingStart = false
	o.streaming = streaming
	o.sourceWarm = true
	o.setStateLocked(StateRecording, sid)

	fctx, fcancel := context.WithCancel(context.Background())
	o.forwardCancel = fcancel
	o.forwardDone = make(chan struct{})
	go o.forwardAudio(fctx, sid, streaming, o.forwardDone)

	if streaming {
		cctx, ccancel := context.WithCancel(context.Background())
		o.consumeCancel = ccancel
		o.consumeDone = make(chan struct{})
		go o.consumeResults(cctx, sid, stream, o.consumeDone)
	} else {
		o.consumeCancel = nil
		o.consumeDone = nil
	}
	o.mu.Unlock()

	o.log.Info("dictation session started",
		"session_id", sid,
		"provider", o.provider.ID(),
		"streaming", streaming)
	return nil
}

// Stop finalizes the active session: parks the audio source in its idle tap,
// flushes the provider, runs correction, publishes the final text, and
// returns the machine to idle. A slow provider stop is awaited to completion
// rather than abandoned.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	if !o.state.Active() {
		o.mu.Unlock()
		return ErrNoSession
	}
	sid := o.sessionID
	streaming := o.streaming
	started := o.sessionStart
	o.setStateLocked(StateFinalizing, sid)
	if o.forwardCancel != nil {
		o.forwardCancel()
	}
	forwardDone := o.forwardDone
	batch := o.batch
	o.batch = nil
	copts := o.cfg.Correction
	o.mu.Unlock()

	// Keep the engine warm for near-instant restart; only the idle timer
	// fully releases it.
	if err := o.source.Idle(); err != nil {
		o.log.Warn("idle tap failed", "error", err)
	}
	if forwardDone != nil {
		<-forwardDone
	}

	final := o.flush(ctx, sid, streaming, batch)

	// Publish the raw final before correction so the overlay updates even
	// when the correction provider is slow.
	rawText := ""
	if final != nil {
		rawText = final.Text
	}
	if rawText != "" {
		o.publishPartial(sid, rawText, true)
	}

	text := rawText
	if final != nil && o.pipeline != nil && copts.Enabled {
		o.mu.Lock()
		pctx := o.pctx
		o.mu.Unlock()

		res, err := o.pipeline.Run(ctx, *final, pctx, copts)
		if err != nil {
			// Never fails the session; deliver the uncorrected text.
			o.log.Warn("correction failed, delivering uncorrected text",
				"session_id", sid, "error", err)
		} else if res.WasModified() {
			text = res.CorrectedText
			o.publishPartial(sid, text, true)
		}
	}

	if text != "" {
		o.recordUtterance(ctx, sid, text, rawText, final, time.Since(started))
		o.mu.Lock()
		o.pctx = o.pctx.Push(text)
		o.mu.Unlock()
	}

	o.mu.Lock()
	if o.sessionID == sid {
		o.lastPartial = nil
		o.lastFinal = nil
		o.streaming = false
		o.setStateLocked(StateIdle, sid)
		o.armIdleLocked()
	}
	o.mu.Unlock()

	if o.metrics != nil {
		outcome := "completed"
		if text == "" {
			outcome = "empty"
		}
		o.metrics.RecordSession(ctx, outcome, time.Since(started))
	}
	o.log.Info("dictation session finished", "session_id", sid, "chars", len(text))
	return nil
}

// Recover checks that an active session is actually alive. A live active
// session is left alone; a stale one (state says active but its tasks are
// gone, e.g. after a host suspend) is force-stopped and restarted. From idle
// there is nothing to recover, so the call is a no-op; from error it
// re-attempts the failed start. A request during finalizing waits up to
// FinalizeWait for idle before treating the session as stale.
func (o *Orchestrator) Recover(ctx context.Context) error {
	o.mu.Lock()
	state := o.state
	o.mu.Unlock()

	switch state {
	case StateIdle:
		return nil

	case StateError:
		return o.Start(ctx)

	case StateFinalizing:
		deadline := time.Now().Add(o.cfg.FinalizeWait)
		for time.Now().Before(deadline) {
			time.Sleep(20 * time.Millisecond)
			if o.State() == StateIdle {
				// The session ended cleanly while we waited.
				return nil
			}
		}
		o.log.Warn("finalizing session did not reach idle, recovering")
		o.forceStop()
		if o.metrics != nil {
			o.metrics.RecordRecovery(ctx, true)
		}
		return o.Start(ctx)

	default: // recording or transcribing
		if o.sessionLive() {
			return nil
		}
		o.log.Warn("stale session detected, recovering", "session_id", o.SessionID())
		o.forceStop()
		if o.metrics != nil {
			o.metrics.RecordRecovery(ctx, true)
		}
		return o.Start(ctx)
	}
}

// Run publishes the periodic heartbeat for the lifetime of ctx and performs
// an orderly shutdown when ctx is cancelled: any active session is force
// stopped and the audio source fully released.
func (o *Orchestrator) Run(ctx context.Context) error {
	ticker := time.NewTicker(o.cfg.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.shutdown()
			return nil
		case <-ticker.C:
			o.mu.Lock()
			state, sid := o.state, o.sessionID
			o.mu.Unlock()
			o.bridge.PublishState(string(state), sid)
		}
	}
}

// ---- background tasks -------------------------------------------------------

// forwardAudio moves chunks from the source into the provider (streaming) or
// the batch buffer. Feed errors are logged and swallowed: a dropped chunk
// does not end the session.
func (o *Orchestrator) forwardAudio(ctx context.Context, sid string, streaming bool, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-o.source.Chunks():
			if !ok {
				return
			}
			if streaming {
				if err := o.provider.FeedAudio(chunk); err != nil {
					o.log.Debug("feed audio failed", "session_id", sid, "error", err)
				}
				continue
			}
			o.mu.Lock()
			if o.sessionID == sid {
				o.batch = append(o.batch, chunk)
			}
			o.mu.Unlock()
		}
	}
}

// consumeResults applies streaming results in arrival order, advancing the
// sequence counter on every non-empty partial and moving to transcribing the
// moment a final is observed.
func (o *Orchestrator) consumeResults(ctx context.Context, sid string, stream *asr.Stream, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-stream.Results():
			if !ok {
				return
			}
			o.applyResult(sid, res)
		}
	}
}

func (o *Orchestrator) applyResult(sid string, res types.TranscriptionResult) {
	o.mu.Lock()
	if o.sessionID != sid || (!o.state.Active() && o.state != StateFinalizing) {
		o.mu.Unlock()
		return
	}
	cp := res
	if res.IsFinal {
		o.lastFinal = &cp
	} else {
		o.lastPartial = &cp
	}
	publish := res.Text != ""
	if publish {
		o.seq++
	}
	seq := o.seq
	if res.IsFinal && o.state == StateRecording {
		o.setStateLocked(StateTranscribing, sid)
	}
	o.mu.Unlock()

	if publish {
		o.bridge.PublishPartial(res.Text, seq, res.IsFinal, sid)
		if o.metrics != nil {
			o.metrics.RecordPartial(context.Background(), o.provider.ID())
		}
	}
}

// ---- finalization -----------------------------------------------------------

// flush obtains the definitive result for the utterance: the provider's
// stop/flush answer for streaming sessions, a one-shot Transcribe for batch.
// Flush failures are logged and degrade to whatever was already captured.
func (o *Orchestrator) flush(ctx context.Context, sid string, streaming bool, batch []audio.Chunk) *types.TranscriptionResult {
	if streaming {
		stopRes, err := o.provider.StopStreaming(ctx)
		if err != nil {
			o.log.Warn("provider stop failed, using captured partials",
				"session_id", sid, "error", err)
		}

		o.mu.Lock()
		if o.consumeCancel != nil {
			o.consumeCancel()
		}
		consumeDone := o.consumeDone
		o.mu.Unlock()
		if consumeDone != nil {
			<-consumeDone
		}

		o.mu.Lock()
		lastFinal, lastPartial := o.lastFinal, o.lastPartial
		o.mu.Unlock()

		if stopRes != nil {
			return asr.PreferredStopResult(stopRes, lastPartial)
		}
		return asr.PreferredStopResult(lastFinal, lastPartial)
	}

	if len(batch) == 0 {
		return nil
	}
	chunk, err := audio.Concat(batch)
	if err != nil {
		o.log.Warn("batch concat failed", "session_id", sid, "error", err)
		return nil
	}
	start := time.Now()
	res, err := o.provider.Transcribe(ctx, chunk)
	if o.metrics != nil {
		o.metrics.RecordTranscription(ctx, o.provider.ID(), time.Since(start), err == nil)
	}
	if err != nil {
		o.log.Warn("batch transcription failed", "session_id", sid, "error", err)
		return nil
	}
	return res
}

// recordUtterance appends the finished utterance to history. Best effort.
func (o *Orchestrator) recordUtterance(ctx context.Context, sid, text, rawText string, final *types.TranscriptionResult, dur time.Duration) {
	if o.store == nil {
		return
	}
	u := history.Utterance{
		ID:        uuid.NewString(),
		SessionID: sid,
		Text:      text,
		RawText:   rawText,
		Provider:  o.provider.ID(),
		Timestamp: time.Now(),
		Duration:  dur,
	}
	if final != nil {
		u.Language = string(final.Language)
	}
	if err := o.store.Append(ctx, u); err != nil {
		o.log.Warn("history append failed", "session_id", sid, "error", err)
	}
}

// ---- recovery ---------------------------------------------------------------

// sessionLive reports whether the active session still has its machinery:
// an uncancelled forward task, an uncancelled consume task, or a running
// audio engine.
func (o *Orchestrator) sessionLive() bool {
	o.mu.Lock()
	forwardDone := o.forwardDone
	consumeDone := o.consumeDone
	o.mu.Unlock()

	if taskRunning(forwardDone) || taskRunning(consumeDone) {
		return true
	}
	return o.source.EngineRunning()
}

func taskRunning(done chan struct{}) bool {
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// forceStop tears the current session down without finalization: tasks are
// cancelled, the provider flushed best effort, and the machine reset to idle.
func (o *Orchestrator) forceStop() {
	o.mu.Lock()
	sid := o.sessionID
	streaming := o.streaming
	if o.forwardCancel != nil {
		o.forwardCancel()
	}
	if o.consumeCancel != nil {
		o.consumeCancel()
	}
	forwardDone, consumeDone := o.forwardDone, o.consumeDone
	o.mu.Unlock()

	if forwardDone != nil {
		<-forwardDone
	}
	if streaming {
		if _, err := o.provider.StopStreaming(context.Background()); err != nil {
			o.log.Debug("force stop flush", "session_id", sid, "error", err)
		}
	}
	if consumeDone != nil {
		<-consumeDone
	}
	if err := o.source.Idle(); err != nil {
		o.log.Debug("force stop idle tap", "session_id", sid, "error", err)
	}

	o.mu.Lock()
	if o.sessionID == sid {
		o.batch = nil
		o.lastPartial = nil
		o.lastFinal = nil
		o.streaming = false
		o.pendingStart = false
		o.setStateLocked(StateIdle, sid)
	}
	o.mu.Unlock()
}

// shutdown runs at Run exit: force stop any active session and fully release
// the audio source.
func (o *Orchestrator) shutdown() {
	o.mu.Lock()
	active := o.state.Active()
	o.cancelIdleLocked()
	o.cancelRevertLocked()
	o.mu.Unlock()

	if active {
		o.forceStop()
	}
	if err := o.source.Stop(); err != nil {
		o.log.Warn("audio source stop", "error", err)
	}
	o.mu.Lock()
	o.sourceWarm = false
	o.mu.Unlock()
	o.bridge.Clear()
}

// ---- state helpers (o.mu held) ----------------------------------------------

func (o *Orchestrator) setStateLocked(s State, sid string) {
	o.state = s
	o.bridge.PublishState(string(s), sid)
	o.log.Debug("state change", "state", string(s), "session_id", sid)
}

func (o *Orchestrator) publishPartial(sid, text string, isFinal bool) {
	o.mu.Lock()
	if o.sessionID != sid {
		o.mu.Unlock()
		return
	}
	o.seq++
	seq := o.seq
	o.mu.Unlock()
	o.bridge.PublishPartial(text, seq, isFinal, sid)
}

// failStart moves the machine into the error state and arms the auto-revert
// timer. A superseding start cancels the revert and takes priority.
func (o *Orchestrator) failStart(sid, msg string, cause error) error {
	o.mu.Lock()
	if o.sessionID != sid {
		o.mu.Unlock()
		return nil
	}
	o.pendingStart = false
	o.errMsg = msg
	o.setStateLocked(StateError, sid)
	o.cancelRevertLocked()
	o.revertTimer = time.AfterFunc(o.cfg.ErrorRevert, func() {
		o.mu.Lock()
		if o.sessionID == sid && o.state == StateError {
			o.errMsg = ""
			o.setStateLocked(StateIdle, sid)
		}
		o.mu.Unlock()
	})
	o.mu.Unlock()

	o.bridge.Notify(bridge.Event{Kind: "error", Message: msg})
	if cause != nil {
		o.log.Error("session start failed", "session_id", sid, "reason", msg, "error", cause)
		return fmt.Errorf("dictation: %s: %w", msg, cause)
	}
	o.log.Error("session start failed", "session_id", sid, "reason", msg)
	return errors.New("dictation: " + msg)
}

func (o *Orchestrator) cancelRevertLocked() {
	if o.revertTimer != nil {
		o.revertTimer.Stop()
		o.revertTimer = nil
	}
}

func (o *Orchestrator) cancelIdleLocked() {
	if o.idleTimer != nil {
		o.idleTimer.Stop()
		o.idleTimer = nil
	}
}

// armIdleLocked schedules the full release of the audio source. A new start
// before it fires keeps the warm engine.
func (o *Orchestrator) armIdleLocked() {
	o.cancelIdleLocked()
	o.idleTimer = time.AfterFunc(o.cfg.IdleTimeout, func() {
		o.mu.Lock()
		if o.state != StateIdle || !o.sourceWarm {
			o.mu.Unlock()
			return
		}
		o.sourceWarm = false
		o.mu.Unlock()

		if err := o.source.Stop(); err != nil {
			o.log.Warn("idle timeout release", "error", err)
		}
		o.log.Debug("audio source released after idle timeout")
	})
}

// startErrorMessage maps audio start failures onto user-visible messages.
func startErrorMessage(err error) string {
	switch {
	case errors.Is(err, audio.ErrNoPermission):
		return "microphone permission denied"
	case errors.Is(err, audio.ErrNoInputFormat):
		return "no usable audio input format"
	case errors.Is(err, audio.ErrFormatUnsupported):
		return "audio input format unsupported"
	default:
		return "audio engine could not be started"
	}
}
