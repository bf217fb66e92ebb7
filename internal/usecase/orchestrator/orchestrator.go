package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goalvault/goalvault-backend/internal/domain"
	"github.com/goalvault/goalvault-backend/internal/usecase/classifier"
	"github.com/goalvault/goalvault-backend/internal/usecase/validator"
)

// Progress messages published alongside state transitions. Transient
// states carry a short progress message, never an error message.
const (
	msgValidating   = "Validating transfer details..."
	msgAuthorizing  = "Checking authorization..."
	msgAuthCreated  = "A new transfer authorization was created"
	msgTransferring = "Transferring funds..."
	msgCompleting   = "Finishing up..."
	msgSuccess      = "Transfer complete"
)

var (
	// ErrTransferInFlight is returned by Submit when a request is
	// already being processed. The caller must not queue behind it.
	ErrTransferInFlight = errors.New("a transfer is already in flight: submit is only allowed from the idle or error state")

	// ErrRetryNotAllowed is returned by Retry outside the error state.
	ErrRetryNotAllowed = errors.New("retry is only allowed from the error state")

	// ErrResetMidFlight is returned by Reset during transient states.
	// The remote authorization/transfer, once issued, cannot be safely
	// un-issued, so mid-flight cancellation is unsupported.
	ErrResetMidFlight = errors.New("cannot reset while a transfer is in flight")
)

// StateUpdate is emitted to sinks on every transition and carries the
// current-state stream contract for the presentation adapter.
type StateUpdate struct {
	State   domain.TransferState
	Message string

	// AuthorizationCreated marks the authorization-created
	// micro-update published while still logically Authorizing,
	// letting the presentation layer tell a freshly created
	// authorization apart from a reused one.
	AuthorizationCreated bool

	// Outcome is set on terminal states only.
	Outcome *domain.TransferOutcome
}

// Sink receives state updates. Sinks are invoked sequentially on the
// submitting goroutine, in transition order.
type Sink func(StateUpdate)

// Orchestrator drives a single transfer from submission to terminal
// outcome. It owns exactly one TransferState and admits at most one
// in-flight request at a time.
type Orchestrator struct {
	Directory domain.AccountDirectory
	Gateway   domain.TransferGateway

	mu         sync.Mutex
	state      domain.TransferState
	request    *domain.TransferRequest
	lastUpdate *StateUpdate
	sinks      []Sink

	// minStepDwell paces Authorizing/Transferring/Completing so
	// progress stays perceptible. Purely UX, not correctness.
	minStepDwell time.Duration
}

// NewOrchestrator creates a new Orchestrator instance in the idle state
func NewOrchestrator(directory domain.AccountDirectory, gateway domain.TransferGateway) *Orchestrator {
	return &Orchestrator{
		Directory: directory,
		Gateway:   gateway,
		state:     domain.StateIdle,
	}
}

// Subscribe registers a sink for the state stream. Register sinks
// before the first Submit; registration is not synchronized with an
// in-flight run.
func (o *Orchestrator) Subscribe(sink Sink) {
	o.sinks = append(o.sinks, sink)
}

// SetMinStepDwell overrides the pacing delay applied to the
// Authorizing, Transferring and Completing states.
func (o *Orchestrator) SetMinStepDwell(d time.Duration) {
	o.minStepDwell = d
}

// CurrentState returns the orchestrator's current state.
func (o *Orchestrator) CurrentState() domain.TransferState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// LastUpdate returns the most recently published state update, or nil
// before the first submission.
func (o *Orchestrator) LastUpdate() *StateUpdate {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastUpdate
}

// Submit admits a new transfer request and runs it to a terminal
// state, returning the terminal update. Submission is accepted only
// from the idle or error state; anything else is a caller programming
// error and is rejected without touching the in-flight run.
func (o *Orchestrator) Submit(ctx context.Context, req *domain.TransferRequest) (*StateUpdate, error) {
	o.mu.Lock()
	if o.state != domain.StateIdle && o.state != domain.StateError {
		o.mu.Unlock()
		return nil, ErrTransferInFlight
	}
	o.state = domain.StateValidating
	o.request = req
	o.mu.Unlock()

	return o.run(ctx, req), nil
}

// Retry re-enters the pipeline from the top after an error, re-running
// validation against a freshly fetched account snapshot in case the
// underlying condition changed. Retry is always offered for terminal
// errors, even when another attempt is practically certain to fail
// again: the core has no authority to judge that permanently.
func (o *Orchestrator) Retry(ctx context.Context) (*StateUpdate, error) {
	o.mu.Lock()
	if o.state != domain.StateError {
		o.mu.Unlock()
		return nil, ErrRetryNotAllowed
	}
	o.state = domain.StateValidating
	req := o.request
	o.mu.Unlock()

	return o.run(ctx, req), nil
}

// Reset discards all orchestrator-owned state and returns to idle.
// Allowed only from terminal states; resetting in idle is a no-op.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	if o.state == domain.StateIdle {
		o.mu.Unlock()
		return nil
	}
	if !o.state.IsTerminal() {
		o.mu.Unlock()
		return ErrResetMidFlight
	}
	o.state = domain.StateIdle
	o.request = nil
	o.lastUpdate = nil
	o.mu.Unlock()

	o.emit(StateUpdate{State: domain.StateIdle})
	return nil
}

// run drives the pipeline from Validating to a terminal state. The
// caller has already moved the machine into Validating under the lock.
//
// Transitions are strictly sequential along the legal path: each step
// advances only after the prior call's response has been fully
// consumed, and no step is skipped even when the gateway response
// would allow jumping ahead. The uniform progress narrative is a
// deliberate choice, not an artifact of network latency.
func (o *Orchestrator) run(ctx context.Context, req *domain.TransferRequest) *StateUpdate {
	o.emit(StateUpdate{State: domain.StateValidating, Message: msgValidating})

	// Fresh snapshot on every run, never the one from a prior attempt.
	snapshot, err := o.Directory.GetAccountSnapshot(ctx, req.SourceAccountID)
	if err != nil {
		return o.fail(domain.NewValidationError("source account must reference a known account"))
	}

	if err := validator.Validate(req, snapshot); err != nil {
		// Local validation failures never reach the gateway.
		return o.fail(err)
	}

	o.transition(domain.StateAuthorizing, StateUpdate{
		State:   domain.StateAuthorizing,
		Message: msgAuthorizing,
	})
	o.dwell()

	result, err := o.Gateway.ExecuteTransfer(ctx, req)
	if err != nil {
		return o.fail(classifier.ClassifyError(err))
	}

	if result.AuthorizationCreated {
		// Still logically Authorizing: a micro-update, not a state
		// change, published before proceeding so the presentation
		// layer sees the distinction at least once before Success.
		o.emit(StateUpdate{
			State:                domain.StateAuthorizing,
			Message:              msgAuthCreated,
			AuthorizationCreated: true,
		})
	}

	o.transition(domain.StateTransferring, StateUpdate{
		State:   domain.StateTransferring,
		Message: msgTransferring,
	})
	o.dwell()

	o.transition(domain.StateCompleting, StateUpdate{
		State:   domain.StateCompleting,
		Message: msgCompleting,
	})
	o.dwell()

	terminal := StateUpdate{
		State:   domain.StateSuccess,
		Message: msgSuccess,
		Outcome: &domain.TransferOutcome{
			AuthorizationCreated: result.AuthorizationCreated,
			TransferID:           result.TransferID,
		},
	}
	o.transition(domain.StateSuccess, terminal)
	return &terminal
}

// fail moves the machine into the terminal error state with the
// classified kind and message. There is no compensating rollback: if
// the gateway call partially succeeded remotely, remediation is left
// to the user or operator.
func (o *Orchestrator) fail(err error) *StateUpdate {
	terminal := StateUpdate{
		State:   domain.StateError,
		Message: err.Error(),
		Outcome: &domain.TransferOutcome{
			ErrorKind:   domain.KindOf(err),
			ErrorDetail: err.Error(),
		},
	}
	o.transition(domain.StateError, terminal)
	return &terminal
}

// transition applies a state change and publishes the update. Illegal
// transitions indicate an orchestrator bug and panic rather than
// corrupting the progress narrative.
func (o *Orchestrator) transition(to domain.TransferState, update StateUpdate) {
	o.mu.Lock()
	if err := domain.ValidateTransition(o.state, to); err != nil {
		o.mu.Unlock()
		panic(err)
	}
	o.state = to
	o.mu.Unlock()

	o.emit(update)
}

// emit publishes an update to all sinks and records it as the latest.
func (o *Orchestrator) emit(update StateUpdate) {
	o.mu.Lock()
	o.lastUpdate = &update
	sinks := o.sinks
	o.mu.Unlock()

	for _, sink := range sinks {
		sink(update)
	}
}

func (o *Orchestrator) dwell() {
	if o.minStepDwell > 0 {
		time.Sleep(o.minStepDwell)
	}
}
