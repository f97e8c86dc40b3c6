package state

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landverify/client-sdk-go/client"
	"github.com/landverify/client-sdk-go/types"
	"github.com/landverify/client-sdk-go/utils"
)

type fakeLedger struct {
	mu        sync.Mutex
	accounts  map[string]*client.AccountState
	apps      map[uint64]*client.ApplicationState
	appErr    error
	delay     time.Duration
	accountN  atomic.Int32
	appN      atomic.Int32
	failFirst bool
}

// wait 模拟网络延迟，ctx 结束时提前返回
func (f *fakeLedger) wait(ctx context.Context) error {
	if f.delay <= 0 {
		return nil
	}
	select {
	case <-time.After(f.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeLedger) GetAccountState(ctx context.Context, address string) (*client.AccountState, error) {
	n := f.accountN.Add(1)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.failFirst && n == 1 {
		return nil, types.NewError(types.CodeNetwork, "node unreachable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[address]
	if !ok {
		return nil, types.NewError(types.CodeNotFound, "account not found")
	}
	return a, nil
}

func (f *fakeLedger) GetApplicationState(ctx context.Context, appID uint64) (*client.ApplicationState, error) {
	f.appN.Add(1)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.appErr != nil {
		return nil, f.appErr
	}
	a, ok := f.apps[appID]
	if !ok {
		return nil, types.NewError(types.CodeNotFound, "application not found")
	}
	return a, nil
}

type fakeHistory struct {
	page *client.TransactionPage
	err  error
	got  struct {
		appID    uint64
		minRound uint64
		limit    uint64
		next     string
	}
}

func (f *fakeHistory) ListApplicationTransactions(ctx context.Context, appID uint64, minRound uint64, limit uint64, next string) (*client.TransactionPage, error) {
	f.got.appID, f.got.minRound, f.got.limit, f.got.next = appID, minRound, limit, next
	return f.page, f.err
}

func newLedger() *fakeLedger {
	return &fakeLedger{
		accounts: map[string]*client.AccountState{
			"A": {Address: "A", Balance: 1_000_000},
			"B": {Address: "B", Balance: 2_000_000},
		},
		apps: map[uint64]*client.ApplicationState{
			77: {
				AppID: 77,
				Global: map[string]client.StateValue{
					VerifiedHashKey: {Type: client.StateTypeBytes, Bytes: []byte("abc123")},
					"land_count":    {Type: client.StateTypeUint, Uint: 3},
				},
			},
			78: {AppID: 78, Global: map[string]client.StateValue{}},
			79: {
				AppID: 79,
				Global: map[string]client.StateValue{
					VerifiedHashKey: {Type: client.StateTypeUint, Uint: 1},
				},
			},
		},
	}
}

func TestService_VerifiedHash(t *testing.T) {
	tests := []struct {
		name    string
		appID   uint64
		appErr  error
		want    string
		wantErr error
	}{
		{name: "present", appID: 77, want: "abc123"},
		{name: "absent", appID: 78, wantErr: types.ErrNotFound},
		{name: "wrong type", appID: 79, wantErr: types.ErrInternal},
		{name: "unknown app", appID: 99, wantErr: types.ErrNotFound},
		{name: "node error", appID: 77, appErr: types.NewError(types.CodeNetwork, "down"), wantErr: types.ErrNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := newLedger()
			ledger.appErr = tt.appErr
			svc := NewService(ledger, nil)

			got, err := svc.VerifiedHash(context.Background(), tt.appID)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_FetchAccounts(t *testing.T) {
	svc := NewService(newLedger(), nil)

	res, err := svc.FetchAccounts(context.Background(), []string{"A", "missing", "B"})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Success)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Results, 3)
	assert.Equal(t, uint64(1_000_000), res.Results[0].Balance)
	assert.Nil(t, res.Results[1])
	assert.Equal(t, uint64(2_000_000), res.Results[2].Balance)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 1, res.Errors[0].Index)
	assert.True(t, errors.Is(res.Errors[0].Error, types.ErrNotFound))
}

func TestService_ListAppTransactions(t *testing.T) {
	hist := &fakeHistory{page: &client.TransactionPage{
		Transactions: []client.TransactionInfo{
			{TxID: "TX1", AppID: 77, Args: [][]byte{[]byte(utils.OpSubmitVerification), []byte("abc123")}},
			{TxID: "TX2", AppID: 77},
		},
		NextToken: "page-2",
	}}
	svc := NewService(newLedger(), hist)

	out, err := svc.ListAppTransactions(context.Background(), 77, 5, 10, "page-1")
	require.NoError(t, err)

	assert.Equal(t, uint64(77), hist.got.appID)
	assert.Equal(t, uint64(5), hist.got.minRound)
	assert.Equal(t, uint64(10), hist.got.limit)
	assert.Equal(t, "page-1", hist.got.next)
	assert.Equal(t, "page-2", out.NextToken)
	require.Len(t, out.Calls, 2)
	require.NotNil(t, out.Calls[0].Call)
	assert.Equal(t, "abc123", out.Calls[0].Call.DocumentHash)
	assert.Equal(t, "TX1", out.Calls[0].TxID)
	assert.Nil(t, out.Calls[1].Call)
}

func TestService_ListAppTransactions_NoIndexer(t *testing.T) {
	svc := NewService(newLedger(), nil)

	_, err := svc.ListAppTransactions(context.Background(), 77, 0, 10, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrConfigMissing))
}

func TestView_CachesWithinRender(t *testing.T) {
	ledger := newLedger()
	svc := NewService(ledger, nil)
	ctx := context.Background()

	view := svc.NewView()
	for i := 0; i < 3; i++ {
		a, err := view.Account(ctx, "A")
		require.NoError(t, err)
		assert.Equal(t, "A", a.Address)

		h, err := view.VerifiedHash(ctx, 77)
		require.NoError(t, err)
		assert.Equal(t, "abc123", h)
	}
	assert.Equal(t, int32(1), ledger.accountN.Load())
	assert.Equal(t, int32(1), ledger.appN.Load())

	// 新视图重新查询
	_, err := svc.NewView().Account(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, int32(2), ledger.accountN.Load())
}

func TestView_CoalescesConcurrentRequests(t *testing.T) {
	ledger := newLedger()
	ledger.delay = 50 * time.Millisecond
	view := NewService(ledger, nil).NewView()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := view.App(context.Background(), 77)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ledger.appN.Load())
}

func TestView_DoesNotCacheFailures(t *testing.T) {
	ledger := newLedger()
	ledger.failFirst = true
	view := NewService(ledger, nil).NewView()

	_, err := view.Account(context.Background(), "A")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrNetwork))

	a, err := view.Account(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, "A", a.Address)
	assert.Equal(t, int32(2), ledger.accountN.Load())
}

func TestView_CallerCancelDoesNotFailOthers(t *testing.T) {
	ledger := newLedger()
	ledger.delay = 100 * time.Millisecond
	view := NewService(ledger, nil).NewView()

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := view.Account(first, "A")
		firstErr <- err
	}()

	// 等第一个调用进入合并查询后再发起第二个
	require.Eventually(t, func() bool { return ledger.accountN.Load() == 1 }, time.Second, time.Millisecond)
	secondDone := make(chan struct{})
	var (
		got *client.AccountState
		err error
	)
	go func() {
		defer close(secondDone)
		got, err = view.Account(context.Background(), "A")
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	<-secondDone
	require.NoError(t, err)
	assert.Equal(t, "A", got.Address)
	assert.Equal(t, int32(1), ledger.accountN.Load())
}
