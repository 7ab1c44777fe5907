package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
)

// SuccessFunc runs once, after the success delay. It is the only code path that
// touches the cart and the draft.
type SuccessFunc func(ctx context.Context, draft domain.OrderDraft, res Result) error

type SessionOptions struct {
	SuccessDelay time.Duration
	OnSuccess    SuccessFunc
	Logger       *slog.Logger
}

// Status is a point-in-time view of a Session.
type Status struct {
	Provider  Provider `json:"provider"`
	DraftID   string   `json:"draft_id"`
	State     State    `json:"state"`
	Prepared  bool     `json:"prepared"`
	Message   string   `json:"message,omitempty"`
	Reference string   `json:"reference,omitempty"`
}

// Session drives one payment attempt cycle for one draft. There are no retries and no
// timeouts; every attempt after a failure is an explicit Submit.
type Session struct {
	adapter   Adapter
	draft     domain.OrderDraft
	delay     time.Duration
	onSuccess SuccessFunc
	log       *slog.Logger
	once      sync.Once

	mu      sync.Mutex
	state   State
	prep    *Preparation
	message string
	result  *Result
}

func NewSession(adapter Adapter, draft domain.OrderDraft, opts SessionOptions) *Session {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	delay := opts.SuccessDelay
	if delay < 0 {
		delay = 0
	}
	return &Session{
		adapter:   adapter,
		draft:     draft,
		delay:     delay,
		onSuccess: opts.OnSuccess,
		log: log.With(
			slog.String("component", "payment"),
			slog.String("provider", adapter.Provider().String()),
			slog.String("draft_id", draft.ID)),
		state: StateIdle,
	}
}

func (s *Session) Draft() domain.OrderDraft {
	return s.draft
}

// Prepare loads the provider side of the payment. It is idempotent; a failed Prepare leaves
// the session unprepared so Submit keeps reporting ErrSDKNotLoaded.
func (s *Session) Prepare(ctx context.Context) (Preparation, error) {
	s.mu.Lock()
	if s.prep != nil {
		p := *s.prep
		s.mu.Unlock()
		return p, nil
	}
	s.mu.Unlock()

	prep, err := s.adapter.Prepare(ctx, s.draft)
	if err != nil {
		s.log.ErrorContext(ctx, "prepare payment failed", slog.Any("error", err))
		return Preparation{}, fmt.Errorf("prepare %s payment: %w", s.adapter.Provider(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prep == nil {
		s.prep = &prep
	}
	return *s.prep, nil
}

// Submit confirms the payment. On success it waits for the success delay and then runs the
// success callback exactly once before returning.
func (s *Session) Submit(ctx context.Context, c Confirmation) (Result, error) {
	s.mu.Lock()
	if !CanTransitionTo(s.state, StateProcessing) {
		state := s.state
		s.mu.Unlock()
		if state.IsTerminal() {
			return Result{}, ErrAlreadyPaid
		}
		return Result{}, ErrPaymentInProgress
	}
	if s.prep == nil {
		s.mu.Unlock()
		return Result{}, ErrSDKNotLoaded
	}
	prep := *s.prep
	s.state = StateProcessing
	s.message = ""
	s.mu.Unlock()

	res, err := s.adapter.Confirm(ctx, prep, c)
	if err != nil || !res.Succeeded {
		msg := failureMessage(res, err)
		s.mu.Lock()
		s.state = StateError
		s.message = msg
		s.mu.Unlock()

		s.log.WarnContext(ctx, "payment failed", slog.String("status", res.Status), slog.String("message", msg), slog.Any("error", err))
		return res, &DeclinedError{Provider: s.adapter.Provider(), Message: msg, Err: err}
	}

	s.mu.Lock()
	s.state = StateSuccess
	s.result = &res
	s.mu.Unlock()
	s.log.InfoContext(ctx, "payment succeeded", slog.String("reference", res.Reference))

	s.wait(ctx)
	s.once.Do(func() {
		if s.onSuccess == nil {
			return
		}
		// finalization must complete even if the request is gone
		if err := s.onSuccess(context.WithoutCancel(ctx), s.draft, res); err != nil {
			s.log.ErrorContext(ctx, "payment success handler failed", slog.Any("error", err))
		}
	})
	return res, nil
}

func (s *Session) wait(ctx context.Context) {
	if s.delay == 0 {
		return
	}
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Provider: s.adapter.Provider(),
		DraftID:  s.draft.ID,
		State:    s.state,
		Prepared: s.prep != nil,
		Message:  s.message,
	}
	if s.result != nil {
		st.Reference = s.result.Reference
	}
	return st
}

func failureMessage(res Result, err error) string {
	if res.Message != "" {
		return res.Message
	}
	var declined *DeclinedError
	if errors.As(err, &declined) && declined.Message != "" {
		return declined.Message
	}
	return FallbackMessage
}
