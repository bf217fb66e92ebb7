package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/goalvault/goalvault-backend/internal/domain"
)

// MockAccountDirectory is a mock implementation of domain.AccountDirectory for testing
type MockAccountDirectory struct {
	mock.Mock
}

func (m *MockAccountDirectory) GetAccountSnapshot(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

// MockTransferGateway is a mock implementation of domain.TransferGateway for testing
type MockTransferGateway struct {
	mock.Mock
}

func (m *MockTransferGateway) ExecuteTransfer(ctx context.Context, req *domain.TransferRequest) (*domain.GatewayResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GatewayResult), args.Error(1)
}

// stubGateway is a function-backed gateway for tests that need to hold
// a call open while asserting on the orchestrator from another goroutine.
type stubGateway struct {
	execute func(ctx context.Context, req *domain.TransferRequest) (*domain.GatewayResult, error)
}

func (s *stubGateway) ExecuteTransfer(ctx context.Context, req *domain.TransferRequest) (*domain.GatewayResult, error) {
	return s.execute(ctx, req)
}

func newRequest(sourceID uuid.UUID, amount string) *domain.TransferRequest {
	return &domain.TransferRequest{
		SourceAccountID:      sourceID,
		DestinationAccountID: uuid.New(),
		Amount:               decimal.RequireFromString(amount),
		Description:          "Goal con",
	}
}

func checkingAccount(id uuid.UUID, balance string) *domain.Account {
	return &domain.Account{
		ID:       id,
		Type:     domain.AccountTypeChecking,
		Balance:  decimal.RequireFromString(balance),
		Currency: "USD",
	}
}

func recordUpdates(o *Orchestrator) *[]StateUpdate {
	updates := make([]StateUpdate, 0)
	o.Subscribe(func(u StateUpdate) {
		updates = append(updates, u)
	})
	return &updates
}

func statesOf(updates []StateUpdate) []domain.TransferState {
	states := make([]domain.TransferState, 0, len(updates))
	for _, u := range updates {
		states = append(states, u.State)
	}
	return states
}

func TestSubmit_HappyPath(t *testing.T) {
	ctx := context.Background()
	mockDirectory := new(MockAccountDirectory)
	mockGateway := new(MockTransferGateway)

	sourceID := uuid.New()
	request := newRequest(sourceID, "50.00")

	mockDirectory.On("GetAccountSnapshot", ctx, sourceID).Return(checkingAccount(sourceID, "100.00"), nil)
	mockGateway.On("ExecuteTransfer", ctx, request).Return(&domain.GatewayResult{
		AuthorizationCreated: false,
		TransferID:           "t1",
	}, nil)

	o := NewOrchestrator(mockDirectory, mockGateway)
	updates := recordUpdates(o)

	terminal, err := o.Submit(ctx, request)

	require.NoError(t, err)
	require.NotNil(t, terminal)
	assert.Equal(t, domain.StateSuccess, terminal.State)
	require.NotNil(t, terminal.Outcome)
	assert.Equal(t, "t1", terminal.Outcome.TransferID)
	assert.False(t, terminal.Outcome.AuthorizationCreated)
	assert.Equal(t, domain.StateSuccess, o.CurrentState())

	// Every step of the pipeline is narrated, none skipped.
	assert.Equal(t, []domain.TransferState{
		domain.StateValidating,
		domain.StateAuthorizing,
		domain.StateTransferring,
		domain.StateCompleting,
		domain.StateSuccess,
	}, statesOf(*updates))

	for _, u := range *updates {
		assert.False(t, u.AuthorizationCreated)
	}

	mockDirectory.AssertExpectations(t)
	mockGateway.AssertExpectations(t)
}

func TestSubmit_AuthorizationCreatedMicroUpdate(t *testing.T) {
	ctx := context.Background()
	mockDirectory := new(MockAccountDirectory)
	mockGateway := new(MockTransferGateway)

	sourceID := uuid.New()
	request := newRequest(sourceID, "50.00")

	mockDirectory.On("GetAccountSnapshot", ctx, sourceID).Return(checkingAccount(sourceID, "100.00"), nil)
	mockGateway.On("ExecuteTransfer", ctx, request).Return(&domain.GatewayResult{
		AuthorizationCreated: true,
		TransferID:           "t2",
	}, nil)

	o := NewOrchestrator(mockDirectory, mockGateway)
	updates := recordUpdates(o)

	terminal, err := o.Submit(ctx, request)

	require.NoError(t, err)
	assert.Equal(t, domain.StateSuccess, terminal.State)
	assert.True(t, terminal.Outcome.AuthorizationCreated)
	assert.Equal(t, "t2", terminal.Outcome.TransferID)

	// The authorization-created micro-update is published while still
	// logically Authorizing, before Transferring is ever entered.
	microIndex := -1
	transferringIndex := -1
	for i, u := range *updates {
		if u.AuthorizationCreated {
			assert.Equal(t, domain.StateAuthorizing, u.State)
			microIndex = i
		}
		if u.State == domain.StateTransferring && transferringIndex == -1 {
			transferringIndex = i
		}
	}
	require.NotEqual(t, -1, microIndex, "authorization-created update was never published")
	require.NotEqual(t, -1, transferringIndex)
	assert.Less(t, microIndex, transferringIndex)
}

func TestSubmit_ValidationFailureNeverCallsGateway(t *testing.T) {
	ctx := context.Background()
	mockGateway := new(MockTransferGateway)

	sourceID := uuid.New()

	tests := []struct {
		name    string
		request *domain.TransferRequest
		errMsg  string
	}{
		{
			name: "Overlong description",
			request: &domain.TransferRequest{
				SourceAccountID:      sourceID,
				DestinationAccountID: uuid.New(),
				Amount:               decimal.RequireFromString("50.00"),
				Description:          "This description is too long",
			},
			errMsg: "description exceeds the partner limit",
		},
		{
			name:    "Amount above snapshot balance",
			request: newRequest(sourceID, "500.00"),
			errMsg:  "insufficient funds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockDirectory := new(MockAccountDirectory)
			mockDirectory.On("GetAccountSnapshot", ctx, sourceID).Return(checkingAccount(sourceID, "100.00"), nil)

			o := NewOrchestrator(mockDirectory, mockGateway)
			updates := recordUpdates(o)

			terminal, err := o.Submit(ctx, tt.request)

			require.NoError(t, err)
			assert.Equal(t, domain.StateError, terminal.State)
			assert.Equal(t, domain.ErrorKindValidation, terminal.Outcome.ErrorKind)
			assert.Contains(t, terminal.Outcome.ErrorDetail, tt.errMsg)

			// Fail fast: Authorizing and Transferring are never entered.
			assert.Equal(t, []domain.TransferState{
				domain.StateValidating,
				domain.StateError,
			}, statesOf(*updates))
		})
	}

	mockGateway.AssertNotCalled(t, "ExecuteTransfer", mock.Anything, mock.Anything)
}

func TestSubmit_UnknownSourceAccount(t *testing.T) {
	ctx := context.Background()
	mockDirectory := new(MockAccountDirectory)
	mockGateway := new(MockTransferGateway)

	sourceID := uuid.New()
	mockDirectory.On("GetAccountSnapshot", ctx, sourceID).Return(nil, assert.AnError)

	o := NewOrchestrator(mockDirectory, mockGateway)

	terminal, err := o.Submit(ctx, newRequest(sourceID, "50.00"))

	require.NoError(t, err)
	assert.Equal(t, domain.StateError, terminal.State)
	assert.Equal(t, domain.ErrorKindValidation, terminal.Outcome.ErrorKind)
	assert.Contains(t, terminal.Outcome.ErrorDetail, "known account")
	mockGateway.AssertNotCalled(t, "ExecuteTransfer", mock.Anything, mock.Anything)
}

// Local validation success never implies eventual success: the partner's
// live check is authoritative and may still reject for insufficient funds.
func TestSubmit_PartnerInsufficientFundsAfterLocalPass(t *testing.T) {
	ctx := context.Background()
	mockDirectory := new(MockAccountDirectory)
	mockGateway := new(MockTransferGateway)

	sourceID := uuid.New()
	request := newRequest(sourceID, "50.00")

	mockDirectory.On("GetAccountSnapshot", ctx, sourceID).Return(checkingAccount(sourceID, "100.00"), nil)
	mockGateway.On("ExecuteTransfer", ctx, request).Return(nil, &domain.GatewayError{
		Code:    "PARTNER_ERROR",
		Message: "insufficient funds after pending debits",
	})

	o := NewOrchestrator(mockDirectory, mockGateway)

	terminal, err := o.Submit(ctx, request)

	require.NoError(t, err)
	assert.Equal(t, domain.StateError, terminal.State)
	assert.Equal(t, domain.ErrorKindPartnerInsufficientFunds, terminal.Outcome.ErrorKind)
}

func TestSubmit_PartnerErrorThenRetryUsesFreshSnapshot(t *testing.T) {
	ctx := context.Background()
	mockDirectory := new(MockAccountDirectory)
	mockGateway := new(MockTransferGateway)

	sourceID := uuid.New()
	request := newRequest(sourceID, "50.00")

	// First run sees a healthy balance but the partner rejects the
	// authorization; the retry re-fetches the snapshot and finds the
	// balance has since dropped below the requested amount.
	mockDirectory.On("GetAccountSnapshot", ctx, sourceID).Return(checkingAccount(sourceID, "100.00"), nil).Once()
	mockDirectory.On("GetAccountSnapshot", ctx, sourceID).Return(checkingAccount(sourceID, "40.00"), nil).Once()
	mockGateway.On("ExecuteTransfer", ctx, request).Return(nil, &domain.GatewayError{
		Code:    "PLAID_ERROR",
		Message: "authorization expired",
	}).Once()

	o := NewOrchestrator(mockDirectory, mockGateway)
	updates := recordUpdates(o)

	terminal, err := o.Submit(ctx, request)
	require.NoError(t, err)
	assert.Equal(t, domain.StateError, terminal.State)
	assert.Equal(t, domain.ErrorKindPartnerAuthorizationFailed, terminal.Outcome.ErrorKind)

	retryTerminal, err := o.Retry(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StateError, retryTerminal.State)
	assert.Equal(t, domain.ErrorKindValidation, retryTerminal.Outcome.ErrorKind)
	assert.Contains(t, retryTerminal.Outcome.ErrorDetail, "insufficient funds")

	// The retry re-entered the pipeline from the top.
	assert.Equal(t, []domain.TransferState{
		domain.StateValidating,
		domain.StateAuthorizing,
		domain.StateError,
		domain.StateValidating,
		domain.StateError,
	}, statesOf(*updates))

	mockDirectory.AssertNumberOfCalls(t, "GetAccountSnapshot", 2)
	mockDirectory.AssertExpectations(t)
	mockGateway.AssertExpectations(t)
}

func TestRetry_OnlyFromErrorState(t *testing.T) {
	ctx := context.Background()
	mockDirectory := new(MockAccountDirectory)
	mockGateway := new(MockTransferGateway)

	o := NewOrchestrator(mockDirectory, mockGateway)

	terminal, err := o.Retry(ctx)
	assert.Nil(t, terminal)
	assert.ErrorIs(t, err, ErrRetryNotAllowed)

	sourceID := uuid.New()
	request := newRequest(sourceID, "50.00")
	mockDirectory.On("GetAccountSnapshot", ctx, sourceID).Return(checkingAccount(sourceID, "100.00"), nil)
	mockGateway.On("ExecuteTransfer", ctx, request).Return(&domain.GatewayResult{TransferID: "t1"}, nil)

	_, err = o.Submit(ctx, request)
	require.NoError(t, err)
	require.Equal(t, domain.StateSuccess, o.CurrentState())

	terminal, err = o.Retry(ctx)
	assert.Nil(t, terminal)
	assert.ErrorIs(t, err, ErrRetryNotAllowed)
}

func TestSubmit_SingleFlight(t *testing.T) {
	ctx := context.Background()
	mockDirectory := new(MockAccountDirectory)

	sourceID := uuid.New()
	request := newRequest(sourceID, "50.00")
	mockDirectory.On("GetAccountSnapshot", ctx, sourceID).Return(checkingAccount(sourceID, "100.00"), nil)

	entered := make(chan struct{})
	release := make(chan struct{})
	gateway := &stubGateway{
		execute: func(ctx context.Context, req *domain.TransferRequest) (*domain.GatewayResult, error) {
			close(entered)
			<-release
			return &domain.GatewayResult{TransferID: "t1"}, nil
		},
	}

	o := NewOrchestrator(mockDirectory, gateway)

	type result struct {
		terminal *StateUpdate
		err      error
	}
	done := make(chan result, 1)
	go func() {
		terminal, err := o.Submit(ctx, request)
		done <- result{terminal, err}
	}()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("gateway call was never issued")
	}

	// A second submission while a request is in flight is rejected
	// without disturbing the running one.
	terminal, err := o.Submit(ctx, newRequest(sourceID, "10.00"))
	assert.Nil(t, terminal)
	assert.ErrorIs(t, err, ErrTransferInFlight)

	// Mid-flight reset is equally off limits.
	assert.ErrorIs(t, o.Reset(), ErrResetMidFlight)

	close(release)

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Equal(t, domain.StateSuccess, res.terminal.State)
		assert.Equal(t, "t1", res.terminal.Outcome.TransferID)
	case <-time.After(5 * time.Second):
		t.Fatal("in-flight submission never completed")
	}
}

func TestReset_FromTerminalStates(t *testing.T) {
	ctx := context.Background()
	mockDirectory := new(MockAccountDirectory)
	mockGateway := new(MockTransferGateway)

	sourceID := uuid.New()
	request := newRequest(sourceID, "50.00")
	mockDirectory.On("GetAccountSnapshot", ctx, sourceID).Return(checkingAccount(sourceID, "100.00"), nil)
	mockGateway.On("ExecuteTransfer", ctx, request).Return(&domain.GatewayResult{TransferID: "t1"}, nil)

	o := NewOrchestrator(mockDirectory, mockGateway)

	// Resetting an idle orchestrator is a no-op.
	assert.NoError(t, o.Reset())
	assert.Equal(t, domain.StateIdle, o.CurrentState())

	_, err := o.Submit(ctx, request)
	require.NoError(t, err)
	require.Equal(t, domain.StateSuccess, o.CurrentState())

	assert.NoError(t, o.Reset())
	assert.Equal(t, domain.StateIdle, o.CurrentState())

	// A fresh submission is admitted after reset.
	terminal, err := o.Submit(ctx, request)
	require.NoError(t, err)
	assert.Equal(t, domain.StateSuccess, terminal.State)
}
