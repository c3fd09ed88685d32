// Package attempt drives a single quiz attempt from its first question to
// one graded submission, enforcing the time budget and the completeness
// policy of the platform.
package attempt

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quizbd/quizbd-go/internal/api"
	"github.com/quizbd/quizbd-go/internal/domain"
	"github.com/quizbd/quizbd-go/internal/errors"
	"github.com/quizbd/quizbd-go/internal/event"
)

// Phase of an attempt. Submitted is terminal; Failed is terminal only when
// the quiz fetch itself failed.
type Phase string

const (
	PhaseLoading    Phase = "loading"
	PhaseActive     Phase = "active"
	PhaseSubmitting Phase = "submitting"
	PhaseSubmitted  Phase = "submitted"
	PhaseFailed     Phase = "failed"
)

// Trial policy: a free attempt sees a fixed question prefix and a fixed
// per-question time unit, never the quiz's configured duration.
const (
	TrialQuestionLimit      = 5
	TrialSecondsPerQuestion = 60
)

// defaultDuration backstops quizzes served without a configured duration.
const defaultDuration = 300

// Fetcher loads one quiz definition.
type Fetcher interface {
	FetchQuiz(ctx context.Context, id string, trial bool) (*domain.Quiz, error)
}

// Submitter posts the single submission of an attempt.
type Submitter interface {
	SubmitResult(ctx context.Context, req api.SubmitResultRequest) error
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type Config struct {
	QuizID        string
	Trial         bool
	Fetcher       Fetcher
	Submitter     Submitter
	EventBus      *event.Bus
	NewTickerFunc func(d time.Duration) Ticker
}

// Engine is the attempt state machine. All transitions run under one lock;
// the countdown, user actions and network completions are serialized, so
// whichever submission path reaches the active->submitting transition
// first suppresses every other one.
type Engine struct {
	id        string
	quizID    string
	trial     bool
	fetcher   Fetcher
	submitter Submitter
	eb        *event.Bus
	newTicker func(d time.Duration) Ticker

	mu        sync.Mutex
	phase     Phase
	questions []domain.Question
	answers   map[int]int
	pos       int
	remaining int
	closed    bool
	ticker    Ticker
	quit      chan struct{}
}

func New(c Config) *Engine {
	nt := c.NewTickerFunc
	if nt == nil {
		nt = func(d time.Duration) Ticker { return realTicker{time.NewTicker(d)} }
	}

	return &Engine{
		id:        uuid.New().String(),
		quizID:    c.QuizID,
		trial:     c.Trial,
		fetcher:   c.Fetcher,
		submitter: c.Submitter,
		eb:        c.EventBus,
		newTicker: nt,
		phase:     PhaseLoading,
		answers:   make(map[int]int),
	}
}

// ID identifies this attempt in events and logs.
func (e *Engine) ID() string { return e.id }

// Start fetches the quiz and activates the attempt. On fetch failure the
// attempt is failed for good and the caller should navigate away.
func (e *Engine) Start(ctx context.Context) error {
	q, err := e.fetcher.FetchQuiz(ctx, e.quizID, e.trial)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		// The attempt was abandoned while the fetch was in flight.
		return nil
	}

	if err != nil {
		e.setPhaseLocked(ctx, PhaseFailed)
		return err
	}

	questions := q.Questions
	budget := q.Duration

	if e.trial {
		if len(questions) > TrialQuestionLimit {
			questions = questions[:TrialQuestionLimit]
		}
		budget = len(questions) * TrialSecondsPerQuestion
	}
	if budget <= 0 {
		budget = defaultDuration
	}

	if len(questions) == 0 {
		e.setPhaseLocked(ctx, PhaseFailed)
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("quiz %s has no questions", e.quizID))
	}

	e.questions = questions
	e.remaining = budget
	e.setPhaseLocked(ctx, PhaseActive)

	e.ticker = e.newTicker(time.Second)
	e.quit = make(chan struct{})
	go e.run(ctx, e.ticker, e.quit)

	return nil
}

func (e *Engine) run(ctx context.Context, t Ticker, quit chan struct{}) {
	for {
		select {
		case <-quit:
			return
		case <-ctx.Done():
			return
		case <-t.C():
			e.tick(ctx)
		}
	}
}

// tick burns one countdown second. The forced submission fires exactly on
// the transition to zero, so a late duplicate tick or a failed forced
// submission can never trigger a second automatic submit.
func (e *Engine) tick(ctx context.Context) {
	e.mu.Lock()

	if e.closed || e.phase != PhaseActive || e.remaining == 0 {
		e.mu.Unlock()
		return
	}

	e.remaining--
	if e.eb != nil {
		e.eb.Publish(ctx, domain.EventAttemptTick{AttemptID: e.id, RemainingSeconds: e.remaining})
	}

	if e.remaining > 0 {
		e.mu.Unlock()
		return
	}

	// Time is up: submit whatever was answered.
	e.submitLocked(ctx)
}

// Next moves the cursor forward, bounded to the last question.
func (e *Engine) Next() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase == PhaseActive && e.pos < len(e.questions)-1 {
		e.pos++
	}
}

// Prev moves the cursor back, bounded to the first question.
func (e *Engine) Prev() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase == PhaseActive && e.pos > 0 {
		e.pos--
	}
}

// Select records the option for the current question. Answers are frozen
// as soon as a submission begins.
func (e *Engine) Select(option int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseActive {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("attempt is not active"))
	}

	if option < 0 || option >= len(e.questions[e.pos].Options) {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("option %d out of range", option))
	}

	e.answers[e.pos] = option
	return nil
}

// Submit is the user-driven submission. It is rejected while any question
// is unanswered; the forced timeout path has no such gate.
func (e *Engine) Submit(ctx context.Context) error {
	e.mu.Lock()

	if e.closed || e.phase != PhaseActive {
		e.mu.Unlock()
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("attempt is not active"))
	}

	if len(e.answers) < len(e.questions) {
		e.mu.Unlock()
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("please answer all questions"))
	}

	return e.submitLocked(ctx)
}

// submitLocked performs the active->submitting transition, releases the
// lock for the network call, then applies the outcome. Caller holds e.mu;
// it is released on return.
func (e *Engine) submitLocked(ctx context.Context) error {
	e.setPhaseLocked(ctx, PhaseSubmitting)
	payload := e.payloadLocked()
	e.mu.Unlock()

	err := e.submitter.SubmitResult(ctx, payload)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		// Abandoned mid-flight; never touch a dead attempt.
		return err
	}

	if err != nil {
		// Back to active so the user may retry by hand. The clock is not
		// refilled; a timed-out attempt retries with zero seconds left.
		e.setPhaseLocked(ctx, PhaseActive)
		return err
	}

	e.setPhaseLocked(ctx, PhaseSubmitted)
	e.stopTimerLocked()
	return nil
}

// payloadLocked flattens the sparse answer map into the ordered submission
// payload. Unanswered positions are omitted, not defaulted; the server
// grades partial submissions from what arrives.
func (e *Engine) payloadLocked() api.SubmitResultRequest {
	positions := make([]int, 0, len(e.answers))
	for p := range e.answers {
		positions = append(positions, p)
	}
	sort.Ints(positions)

	answers := make([]domain.Answer, 0, len(positions))
	for _, p := range positions {
		answers = append(answers, domain.Answer{
			QuestionID:     e.questions[p].ID,
			SelectedOption: e.answers[p],
		})
	}

	return api.SubmitResultRequest{
		QuizID:  e.quizID,
		Answers: answers,
		IsTrial: e.trial,
	}
}

// Close abandons the attempt: the countdown stops and results of in-flight
// calls are discarded when they land. Safe to call more than once.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	e.stopTimerLocked()
}

func (e *Engine) stopTimerLocked() {
	if e.ticker == nil {
		return
	}

	e.ticker.Stop()
	e.ticker = nil
	close(e.quit)
}

func (e *Engine) setPhaseLocked(ctx context.Context, p Phase) {
	if e.phase == p {
		return
	}

	e.phase = p
	if e.eb != nil {
		e.eb.Publish(ctx, domain.EventAttemptPhase{AttemptID: e.id, Phase: string(p)})
	}
}

// Snapshot is a consistent view of the attempt for rendering.
type Snapshot struct {
	Phase            Phase
	Position         int
	Total            int
	Question         domain.Question
	Selected         int
	HasSelected      bool
	Answered         int
	RemainingSeconds int
	Trial            bool
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{
		Phase:            e.phase,
		Position:         e.pos,
		Total:            len(e.questions),
		Answered:         len(e.answers),
		RemainingSeconds: e.remaining,
		Trial:            e.trial,
	}

	if e.pos < len(e.questions) {
		s.Question = e.questions[e.pos]
	}
	if sel, ok := e.answers[e.pos]; ok {
		s.Selected, s.HasSelected = sel, true
	}

	return s
}

// Questions returns the question sequence of this attempt, already
// truncated for trials.
func (e *Engine) Questions() []domain.Question {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]domain.Question(nil), e.questions...)
}

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }
