package client

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/common/models"
	"github.com/algorand/go-algorand-sdk/v2/crypto"
	sdk "github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landverify/client-sdk-go/types"
)

// fakeAlgod 内存账本节点
type fakeAlgod struct {
	mu sync.Mutex

	lastRound uint64
	// confirmAtPoll 第 N 次查询（从 1 开始）返回确认；0 表示从不确认
	confirmAtPoll  int
	confirmedRound uint64
	poolError      string
	pendingErr     error
	sendErr        error
	sendTxID       string
	accountErrs    []error
	paramsErrs     []error
	blockErr       error

	calls        int
	pendingPolls int
	sent         [][]byte
}

func (f *fakeAlgod) count() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeAlgod) AccountInformation(_ context.Context, address string) (models.Account, error) {
	f.count()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.accountErrs) > 0 {
		err := f.accountErrs[0]
		f.accountErrs = f.accountErrs[1:]
		return models.Account{}, err
	}
	return models.Account{
		Address:    address,
		Amount:     5_000_000,
		MinBalance: 100_000,
		Status:     "Offline",
		Round:      f.lastRound,
		Assets:     []models.AssetHolding{{AssetId: 42, Amount: 1}},
		CreatedApps: []models.Application{
			{Id: 1001},
		},
	}, nil
}

func (f *fakeAlgod) SuggestedParams(context.Context) (sdk.SuggestedParams, error) {
	f.count()
	f.mu.Lock()
	if len(f.paramsErrs) > 0 {
		err := f.paramsErrs[0]
		f.paramsErrs = f.paramsErrs[1:]
		f.mu.Unlock()
		return sdk.SuggestedParams{}, err
	}
	f.mu.Unlock()
	return sdk.SuggestedParams{
		Fee:             0,
		MinFee:          1000,
		FirstRoundValid: sdk.Round(f.lastRound),
		LastRoundValid:  sdk.Round(f.lastRound + 1000),
		GenesisID:       "testnet-v1.0",
		GenesisHash:     make([]byte, 32),
		FlatFee:         true,
	}, nil
}

func (f *fakeAlgod) SendRawTransaction(_ context.Context, raw []byte) (string, error) {
	f.count()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, raw)
	return f.sendTxID, nil
}

func (f *fakeAlgod) PendingTransactionInformation(_ context.Context, _ string) (models.PendingTransactionInfoResponse, error) {
	f.count()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pendingPolls++
	if f.pendingErr != nil {
		return models.PendingTransactionInfoResponse{}, f.pendingErr
	}
	if f.poolError != "" {
		return models.PendingTransactionInfoResponse{PoolError: f.poolError}, nil
	}
	if f.confirmAtPoll > 0 && f.pendingPolls >= f.confirmAtPoll {
		return models.PendingTransactionInfoResponse{ConfirmedRound: f.confirmedRound}, nil
	}
	return models.PendingTransactionInfoResponse{}, nil
}

func (f *fakeAlgod) Status(context.Context) (models.NodeStatus, error) {
	f.count()
	f.mu.Lock()
	defer f.mu.Unlock()
	return models.NodeStatus{LastRound: f.lastRound}, nil
}

func (f *fakeAlgod) StatusAfterBlock(ctx context.Context, round uint64) (models.NodeStatus, error) {
	f.count()
	if err := ctx.Err(); err != nil {
		return models.NodeStatus{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.blockErr != nil {
		return models.NodeStatus{}, f.blockErr
	}
	f.lastRound = round + 1
	return models.NodeStatus{LastRound: f.lastRound}, nil
}

func (f *fakeAlgod) GetApplicationByID(_ context.Context, appID uint64) (models.Application, error) {
	f.count()
	enc := base64.StdEncoding.EncodeToString
	return models.Application{
		Id: appID,
		Params: models.ApplicationParams{
			Creator: "CREATOR",
			GlobalState: []models.TealKeyValue{
				{Key: enc([]byte("verified_hash")), Value: models.TealValue{Type: 1, Bytes: enc([]byte("abc123"))}},
				{Key: enc([]byte("count")), Value: models.TealValue{Type: 2, Uint: 7}},
				{Key: "!!not-base64!!", Value: models.TealValue{Type: 2, Uint: 1}},
			},
		},
	}, nil
}

func (f *fakeAlgod) HealthCheck(context.Context) error {
	f.count()
	return nil
}

func (f *fakeAlgod) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func fastRetry() *RetryConfig {
	rc := DefaultRetryConfig()
	rc.InitialDelay = 1
	rc.MaxDelay = 2
	return rc
}

func testAddress(t *testing.T) string {
	t.Helper()
	return crypto.GenerateAccount().Address.String()
}

func TestLedgerClient_GetAccountState(t *testing.T) {
	t.Run("malformed address makes no network call", func(t *testing.T) {
		for _, addr := range []string{"", "not-an-address", "ABC"} {
			api := &fakeAlgod{}
			c := NewLedgerClientWithAPI(api, "testnet", nil)
			_, err := c.GetAccountState(context.Background(), addr)
			assert.True(t, errors.Is(err, types.ErrValidation), addr)
			assert.Equal(t, 0, api.callCount(), addr)
		}
	})

	t.Run("maps account model", func(t *testing.T) {
		api := &fakeAlgod{lastRound: 12}
		c := NewLedgerClientWithAPI(api, "testnet", nil)
		addr := testAddress(t)
		st, err := c.GetAccountState(context.Background(), addr)
		require.NoError(t, err)
		assert.Equal(t, addr, st.Address)
		assert.Equal(t, uint64(5_000_000), st.Balance)
		assert.Equal(t, uint64(12), st.Round)
		require.Len(t, st.Assets, 1)
		assert.Equal(t, uint64(42), st.Assets[0].AssetID)
		assert.Equal(t, []uint64{1001}, st.CreatedApps)
	})

	t.Run("retries transient network errors", func(t *testing.T) {
		api := &fakeAlgod{accountErrs: []error{errors.New("connection refused"), errors.New("HTTP 503 Service Unavailable")}}
		c := NewLedgerClientWithAPI(api, "testnet", &Config{Retry: fastRetry()})
		_, err := c.GetAccountState(context.Background(), testAddress(t))
		require.NoError(t, err)
		assert.Equal(t, 3, api.callCount())
	})

	t.Run("not found is not retried", func(t *testing.T) {
		api := &fakeAlgod{accountErrs: []error{errors.New("HTTP 404 Not Found: no accounts found")}}
		c := NewLedgerClientWithAPI(api, "testnet", &Config{Retry: fastRetry()})
		_, err := c.GetAccountState(context.Background(), testAddress(t))
		assert.True(t, errors.Is(err, types.ErrNotFound))
		assert.Equal(t, 1, api.callCount())
	})
}

func TestLedgerClient_GetSuggestedParams_NoRetry(t *testing.T) {
	api := &fakeAlgod{lastRound: 5, paramsErrs: []error{errors.New("connection refused")}}
	c := NewLedgerClientWithAPI(api, "testnet", &Config{Retry: fastRetry()})

	_, err := c.GetSuggestedParams(context.Background())
	assert.True(t, errors.Is(err, types.ErrNetwork))
	assert.Equal(t, 1, api.callCount())

	params, err := c.GetSuggestedParams(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sdk.Round(5), params.FirstRoundValid)
}

func TestLedgerClient_Submit(t *testing.T) {
	signed := &types.SignedTransaction{TxID: "LOCALID", Bytes: []byte{1, 2, 3}}

	tests := []struct {
		name     string
		api      *fakeAlgod
		signed   *types.SignedTransaction
		wantID   string
		wantCode string
	}{
		{name: "node txid", api: &fakeAlgod{sendTxID: "NODEID"}, signed: signed, wantID: "NODEID"},
		{name: "fallback to derived id", api: &fakeAlgod{}, signed: signed, wantID: "LOCALID"},
		{name: "rejected", api: &fakeAlgod{sendErr: errors.New("HTTP 400 Bad Request: overspend")}, signed: signed, wantCode: types.CodeSubmit},
		{name: "empty payload", api: &fakeAlgod{}, signed: &types.SignedTransaction{}, wantCode: types.CodeSubmit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewLedgerClientWithAPI(tt.api, "testnet", &Config{Retry: fastRetry()})
			id, err := c.Submit(context.Background(), tt.signed)
			if tt.wantCode != "" {
				e, ok := types.AsError(err)
				require.True(t, ok)
				assert.Equal(t, tt.wantCode, e.Code)
				assert.LessOrEqual(t, tt.api.callCount(), 1, "submit is never retried")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
		})
	}

	t.Run("rejection reason is kept", func(t *testing.T) {
		c := NewLedgerClientWithAPI(&fakeAlgod{sendErr: errors.New("overspend")}, "testnet", nil)
		_, err := c.Submit(context.Background(), signed)
		e, ok := types.AsError(err)
		require.True(t, ok)
		assert.Equal(t, "overspend", e.Details["reason"])
		assert.Equal(t, "LOCALID", e.TxID)
	})
}

func TestLedgerClient_AwaitConfirmation(t *testing.T) {
	tests := []struct {
		name        string
		api         *fakeAlgod
		maxRounds   uint64
		wantRound   uint64
		wantCode    string
		wantMaxPoll int
	}{
		{
			name:        "confirmed on third poll",
			api:         &fakeAlgod{lastRound: 7, confirmAtPoll: 3, confirmedRound: 10},
			maxRounds:   4,
			wantRound:   10,
			wantMaxPoll: 3,
		},
		{
			name:        "never confirmed",
			api:         &fakeAlgod{lastRound: 7},
			maxRounds:   4,
			wantCode:    types.CodeTimeout,
			wantMaxPoll: 4,
		},
		{
			name:        "default budget",
			api:         &fakeAlgod{lastRound: 1},
			maxRounds:   0,
			wantCode:    types.CodeTimeout,
			wantMaxPoll: int(DefaultConfirmationRounds),
		},
		{
			name:        "pool error",
			api:         &fakeAlgod{lastRound: 1, poolError: "logic eval error"},
			maxRounds:   4,
			wantCode:    types.CodeSubmit,
			wantMaxPoll: 1,
		},
		{
			name:        "lookup errors tolerated until budget ends",
			api:         &fakeAlgod{lastRound: 1, pendingErr: errors.New("HTTP 500")},
			maxRounds:   3,
			wantCode:    types.CodeTimeout,
			wantMaxPoll: 3,
		},
		{
			name:        "block wait failure",
			api:         &fakeAlgod{lastRound: 1, blockErr: errors.New("connection reset")},
			maxRounds:   3,
			wantCode:    types.CodeNetwork,
			wantMaxPoll: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewLedgerClientWithAPI(tt.api, "testnet", nil)
			res, err := c.AwaitConfirmation(context.Background(), "TXID", tt.maxRounds)
			assert.LessOrEqual(t, tt.api.pendingPolls, tt.wantMaxPoll)
			if tt.wantCode != "" {
				e, ok := types.AsError(err)
				require.True(t, ok, "%v", err)
				assert.Equal(t, tt.wantCode, e.Code)
				if tt.wantCode == types.CodeTimeout {
					assert.Equal(t, "TXID", e.TxID)
					assert.Equal(t, tt.wantMaxPoll, tt.api.pendingPolls)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, &types.ConfirmationResult{TxID: "TXID", ConfirmedRound: tt.wantRound}, res)
		})
	}
}

func TestLedgerClient_AwaitConfirmation_Cancel(t *testing.T) {
	api := &fakeAlgod{lastRound: 1}
	c := NewLedgerClientWithAPI(api, "testnet", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.AwaitConfirmation(ctx, "TXID", 100)
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, api.pendingPolls, 1)
}

func TestLedgerClient_AwaitConfirmationAsync(t *testing.T) {
	api := &fakeAlgod{lastRound: 3, confirmAtPoll: 2, confirmedRound: 5}
	c := NewLedgerClientWithAPI(api, "testnet", nil)

	f := c.AwaitConfirmationAsync(context.Background(), "TXID", 4)
	select {
	case <-f.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("future did not complete")
	}

	res, err := f.Result()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), res.ConfirmedRound)

	res, err = f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "TXID", res.TxID)
}

func TestLedgerClient_LastRound(t *testing.T) {
	c := NewLedgerClientWithAPI(&fakeAlgod{lastRound: 42}, "testnet", nil)
	round, err := c.LastRound(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), round)
}

func TestLedgerClient_GetApplicationState(t *testing.T) {
	c := NewLedgerClientWithAPI(&fakeAlgod{}, "testnet", nil)

	_, err := c.GetApplicationState(context.Background(), 0)
	assert.True(t, errors.Is(err, types.ErrValidation))

	st, err := c.GetApplicationState(context.Background(), 1001)
	require.NoError(t, err)
	assert.Equal(t, "CREATOR", st.Creator)
	assert.Equal(t, crypto.GetApplicationAddress(1001).String(), st.Address)
	assert.Equal(t, []string{"count", "verified_hash"}, st.Keys())
	assert.Equal(t, StateValue{Type: StateTypeBytes, Bytes: []byte("abc123")}, st.Global["verified_hash"])
	assert.Equal(t, StateValue{Type: StateTypeUint, Uint: 7}, st.Global["count"])
}

func TestLedgerClient_SuggestedParamsAndHealth(t *testing.T) {
	c := NewLedgerClientWithAPI(&fakeAlgod{lastRound: 9}, "mainnet", nil)
	p, err := c.GetSuggestedParams(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sdk.Round(9), p.FirstRoundValid)
	assert.NoError(t, c.HealthCheck(context.Background()))
	assert.Equal(t, "mainnet", c.Network())
}
