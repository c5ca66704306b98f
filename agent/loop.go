// Package agent orchestrates the conversation loop between a ModelGateway and
// a ToolExecutor.
//
// A turn runs as an explicit state machine over a queue of pending
// invocations:
//
//	AwaitingUserInput -> AwaitingModelResponse
//	  -> (DispatchingTool -> AwaitingModelResponse)*
//	  -> EmittingText -> AwaitingUserInput
//
// Tool results are turned into conversation entries by an [Interpreter], and
// a [Trigger] may queue a follow-up invocation that is dispatched before the
// model is consulted again. Exactly one tool call is in flight at a time.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fwojciec/converse"
	"github.com/rs/zerolog"
)

const (
	// EmptyTurnText is emitted when the model answers with no text, unless
	// replaced with WithEmptyTurnText.
	EmptyTurnText = "The model returned no message."

	skippedCallText = "Skipped pending call to %s."

	malformedTurnNotice = "Your last response could not be processed. Reply with plain text, or with exactly one function call."
	chainLimitNotice    = "Stopped automatic follow-up calls after reaching the chaining limit."

	defaultMaxCorrections = 2
	defaultMaxChainDepth  = 4
)

// Loop drives sessions turn by turn. A Loop holds no per-session state and
// may serve many sessions concurrently.
type Loop struct {
	gateway       converse.ModelGateway
	executor      converse.ToolExecutor
	validator     converse.ArgsValidator
	interpreter   *Interpreter
	trigger       *Trigger
	announcements Announcements
	logger        zerolog.Logger

	modelTimeout   time.Duration
	toolTimeout    time.Duration
	maxCorrections int
	maxChainDepth  int
	emptyTurnText  string
}

// Option configures a [Loop].
type Option func(*Loop)

// WithEmptyTurnText sets the text emitted when the model answers with no
// text, for example to name the provider behind the gateway.
func WithEmptyTurnText(text string) Option {
	return func(l *Loop) { l.emptyTurnText = text }
}

// WithInterpreter replaces the default result interpreter.
func WithInterpreter(i *Interpreter) Option {
	return func(l *Loop) { l.interpreter = i }
}

// WithTrigger replaces the default chain trigger.
func WithTrigger(t *Trigger) Option {
	return func(l *Loop) { l.trigger = t }
}

// WithValidator checks invocation arguments against tool schemas before
// dispatch. Without a validator only the tool name is checked.
func WithValidator(v converse.ArgsValidator) Option {
	return func(l *Loop) { l.validator = v }
}

// WithAnnouncements replaces the per-tool announcement table.
func WithAnnouncements(a Announcements) Option {
	return func(l *Loop) { l.announcements = a }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Loop) { l.logger = logger }
}

// WithModelTimeout bounds each ModelGateway call. Zero means no bound beyond
// the caller's context.
func WithModelTimeout(d time.Duration) Option {
	return func(l *Loop) { l.modelTimeout = d }
}

// WithToolTimeout bounds each ToolExecutor call. Zero means no bound beyond
// the caller's context.
func WithToolTimeout(d time.Duration) Option {
	return func(l *Loop) { l.toolTimeout = d }
}

// WithMaxCorrections sets how many consecutive malformed turns are answered
// with a corrective notice before the turn fails.
func WithMaxCorrections(n int) Option {
	return func(l *Loop) { l.maxCorrections = n }
}

// WithMaxChainDepth caps the number of synthesized invocations dispatched
// between two model calls.
func WithMaxChainDepth(n int) Option {
	return func(l *Loop) { l.maxChainDepth = n }
}

// New creates a Loop with the given gateway, executor and options.
func New(gateway converse.ModelGateway, executor converse.ToolExecutor, opts ...Option) *Loop {
	l := &Loop{
		gateway:        gateway,
		executor:       executor,
		interpreter:    DefaultInterpreter(),
		trigger:        DefaultTrigger(),
		announcements:  DefaultAnnouncements(),
		logger:         zerolog.Nop(),
		maxCorrections: defaultMaxCorrections,
		maxChainDepth:  defaultMaxChainDepth,
		emptyTurnText:  EmptyTurnText,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// RunOption configures a single Run or Resume invocation.
type RunOption func(*runConfig)

type runConfig struct {
	onEvent func(Event)
}

// WithEventHandler sets a callback that receives each state change and each
// appended entry during the run. If nil or not set, events are discarded.
func WithEventHandler(h func(Event)) RunOption {
	return func(c *runConfig) {
		c.onEvent = h
	}
}

// Run handles one line of user input and returns the text emitted to the
// user. The exit sentinel moves the session to StateTerminated and returns
// ErrTerminated. A gateway failure ends the turn with an error wrapping
// ErrConnectivity; the store keeps every entry appended up to that point.
// Invocations still queued from an interrupted turn are skipped, with a model
// entry noting each one, before the input is appended.
func (l *Loop) Run(ctx context.Context, s *Session, input string, opts ...RunOption) (string, error) {
	cfg := newRunConfig(opts)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() == StateTerminated {
		return "", converse.ErrTerminated
	}
	if converse.IsExit(input) {
		l.transition(s, cfg, StateTerminated)
		l.logger.Info().Str("session", s.ID).Msg("session terminated by user")
		return "", converse.ErrTerminated
	}

	l.skipPending(s, cfg)
	l.append(s, cfg, converse.NewText(converse.RoleUser, input))
	return l.drive(ctx, s, cfg)
}

// skipPending drops invocations left queued by an interrupted turn. New input
// supersedes them; only Resume dispatches them.
func (l *Loop) skipPending(s *Session, cfg *runConfig) {
	for {
		inv, ok := s.pop()
		if !ok {
			return
		}
		l.logger.Warn().Str("session", s.ID).Str("tool", inv.Name).Msg("skipping stale invocation")
		l.append(s, cfg, model(fmt.Sprintf(skippedCallText, inv.Name)))
	}
}

// Resume continues a session without new user input. Invocations still queued
// from an interrupted turn are dispatched first, without consulting the model.
func (l *Loop) Resume(ctx context.Context, s *Session, opts ...RunOption) (string, error) {
	cfg := newRunConfig(opts)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() == StateTerminated {
		return "", converse.ErrTerminated
	}
	return l.drive(ctx, s, cfg)
}

func newRunConfig(opts []RunOption) *runConfig {
	var cfg runConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// drive runs the state machine until text is emitted or the turn fails.
// Every exit path leaves the session in StateAwaitingUserInput.
func (l *Loop) drive(ctx context.Context, s *Session, cfg *runConfig) (string, error) {
	defer l.transition(s, cfg, StateAwaitingUserInput)

	corrections := 0
	for {
		if err := l.dispatchPending(ctx, s, cfg); err != nil {
			return "", err
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}

		l.transition(s, cfg, StateAwaitingModelResponse)
		turn, err := l.generate(ctx, s)
		if err != nil {
			l.logger.Error().Err(err).Str("session", s.ID).Msg("model gateway failed")
			return "", err
		}

		d, err := turn.Decide()
		if err != nil {
			corrections++
			l.logger.Warn().Err(err).Str("session", s.ID).Int("attempt", corrections).Msg("malformed model turn")
			if corrections > l.maxCorrections {
				return "", fmt.Errorf("model turn: %w: %w", err, converse.ErrValidation)
			}
			l.append(s, cfg, notice(malformedTurnNotice))
			continue
		}
		corrections = 0

		if d.Call != nil {
			if d.Text != "" {
				l.append(s, cfg, model(d.Text))
			}
			s.push(converse.Invocation{Name: d.Call.Name, Args: d.Call.Args})
			continue
		}

		text := d.Text
		if text == "" {
			text = l.emptyTurnText
		}
		l.transition(s, cfg, StateEmittingText)
		l.append(s, cfg, model(text))
		return text, nil
	}
}

// dispatchPending drains the invocation queue. Follow-ups synthesized by the
// trigger are queued and dispatched before returning, up to maxChainDepth.
// It returns only context errors; the remaining queue is kept for Resume.
func (l *Loop) dispatchPending(ctx context.Context, s *Session, cfg *runConfig) error {
	depth := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		inv, ok := s.pop()
		if !ok {
			return nil
		}
		l.transition(s, cfg, StateDispatchingTool)

		next := l.dispatch(ctx, s, cfg, inv)
		if next == nil {
			continue
		}
		depth++
		if depth > l.maxChainDepth {
			l.logger.Warn().Str("session", s.ID).Str("tool", next.Name).Int("depth", depth).Msg("chain limit reached")
			l.append(s, cfg, model(chainLimitNotice))
			continue
		}
		s.push(*next)
	}
}

// dispatch runs a single invocation and appends the interpreted outcome. It
// returns the follow-up invocation synthesized by the trigger, if any.
func (l *Loop) dispatch(ctx context.Context, s *Session, cfg *runConfig, inv converse.Invocation) *converse.Invocation {
	log := l.logger.With().Str("session", s.ID).Str("tool", inv.Name).Bool("synthetic", inv.Synthetic).Logger()

	var o converse.Outcome
	if err := l.validate(s, inv); err != nil {
		o = converse.Classify(nil, err)
	} else {
		l.append(s, cfg, model(l.announcements.For(inv.Name)))
		start := time.Now()
		o = l.invoke(ctx, inv)
		log.Debug().Dur("duration", time.Since(start)).Msg("tool returned")
	}

	ev := log.Info()
	if o.Failed() {
		ev = log.Warn()
	}
	ev.Stringer("outcome", o.Kind).Msg("tool outcome")

	for _, e := range l.interpreter.Interpret(inv.Name, o) {
		l.append(s, cfg, e)
	}

	next, entries := l.trigger.Next(inv.Name, o)
	for _, e := range entries {
		l.append(s, cfg, e)
	}
	if next != nil {
		log.Info().Str("next", next.Name).Msg("chained invocation")
	}
	return next
}

// validate rejects invocations of tools outside the session catalog and,
// when a validator is configured, arguments that do not match the schema.
func (l *Loop) validate(s *Session, inv converse.Invocation) error {
	if err := s.Catalog.Check(inv); err != nil {
		return err
	}
	if l.validator == nil {
		return nil
	}
	tool, _ := s.Catalog.Lookup(inv.Name)
	if err := l.validator.ValidateArgs(tool, inv.Args); err != nil {
		if !errors.Is(err, converse.ErrValidation) {
			err = fmt.Errorf("%w: %w", err, converse.ErrValidation)
		}
		return err
	}
	return nil
}

func (l *Loop) invoke(ctx context.Context, inv converse.Invocation) converse.Outcome {
	callCtx, cancel := withTimeout(ctx, l.toolTimeout)
	defer cancel()

	result, err := l.executor.Invoke(callCtx, inv)
	if err != nil && !errors.Is(err, converse.ErrValidation) && !errors.Is(err, converse.ErrTransport) {
		err = fmt.Errorf("%w: %w", converse.ErrTransport, err)
	}
	return converse.Classify(result, err)
}

func (l *Loop) generate(ctx context.Context, s *Session) (converse.Turn, error) {
	callCtx, cancel := withTimeout(ctx, l.modelTimeout)
	defer cancel()

	turn, err := l.gateway.Generate(callCtx, s.Store.Entries(), s.Catalog.List())
	if err == nil {
		return turn, nil
	}
	if ctx.Err() != nil {
		return converse.Turn{}, ctx.Err()
	}
	if !errors.Is(err, converse.ErrConnectivity) {
		err = fmt.Errorf("%w: %w", converse.ErrConnectivity, err)
	}
	return converse.Turn{}, err
}

func (l *Loop) append(s *Session, cfg *runConfig, e converse.Entry) {
	s.Store.Append(e)
	if cfg.onEvent != nil {
		cfg.onEvent(EventEntry{Entry: e})
	}
}

func (l *Loop) transition(s *Session, cfg *runConfig, to State) {
	from := State(s.state.Swap(int32(to)))
	if from == to {
		return
	}
	if from == StateTerminated {
		// Terminated is final.
		s.state.Store(int32(StateTerminated))
		return
	}
	l.logger.Debug().Str("session", s.ID).Stringer("from", from).Stringer("to", to).Msg("state change")
	if cfg.onEvent != nil {
		cfg.onEvent(EventStateChange{From: from, To: to})
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
