package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/algorand/go-algorand-sdk/v2/crypto"

	"github.com/landverify/client-sdk-go/types"
	"github.com/landverify/client-sdk-go/utils"
)

// LedgerClient 账本访问客户端接口
//
// 连接在构造后只读，可在多个组件间共享。
type LedgerClient interface {
	// GetAccountState 读取账户状态（地址格式在任何网络调用之前校验）
	GetAccountState(ctx context.Context, address string) (*AccountState, error)

	// GetSuggestedParams 读取当前网络参数
	GetSuggestedParams(ctx context.Context) (types.NetworkParams, error)

	// Submit 广播已签名交易，返回交易 ID
	Submit(ctx context.Context, signed *types.SignedTransaction) (string, error)

	// AwaitConfirmation 阻塞轮询直到确认或超过 maxRounds 轮
	AwaitConfirmation(ctx context.Context, txID string, maxRounds uint64) (*types.ConfirmationResult, error)

	// AwaitConfirmationAsync 在独立 goroutine 中轮询，结果通过 future 交付
	AwaitConfirmationAsync(ctx context.Context, txID string, maxRounds uint64) *types.ConfirmationFuture

	// GetApplicationState 读取应用全局状态
	GetApplicationState(ctx context.Context, appID uint64) (*ApplicationState, error)

	// HealthCheck 节点健康检查
	HealthCheck(ctx context.Context) error

	// LastRound 节点最新轮次
	LastRound(ctx context.Context) (uint64, error)

	// Network 网络名称
	Network() string
}

// ledgerClient LedgerClient 实现
type ledgerClient struct {
	api     AlgodAPI
	network string
	config  *Config
}

// NewLedgerClient 基于解析后的网络配置创建账本客户端
func NewLedgerClient(cfg *NetworkConfig, config *Config) (LedgerClient, error) {
	if cfg == nil {
		return nil, types.ConfigMissingError(key(EndpointLedger, "SERVER"), key(EndpointLedger, "TOKEN"))
	}
	api, err := NewAlgodAPI(cfg)
	if err != nil {
		return nil, types.Wrap(types.CodeNetwork, fmt.Errorf("create ledger client: %w", err)).WithLayer(types.LayerLedger)
	}
	return NewLedgerClientWithAPI(api, cfg.Network, config), nil
}

// NewLedgerClientWithAPI 使用给定的节点 API 创建账本客户端
func NewLedgerClientWithAPI(api AlgodAPI, network string, config *Config) LedgerClient {
	return &ledgerClient{
		api:     api,
		network: network,
		config:  config.normalize(),
	}
}

func (c *ledgerClient) Network() string {
	return c.network
}

// networkError 把节点错误归类为 NetworkError
func networkError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if _, ok := types.AsError(err); ok {
		return err
	}
	if isNotFound(err) {
		e := types.Wrap(types.CodeNotFound, fmt.Errorf("%s: %w", op, err))
		return e.WithLayer(types.LayerLedger)
	}
	e := types.Wrap(types.CodeNetwork, fmt.Errorf("%s: %w", op, err))
	return e.WithLayer(types.LayerLedger)
}

// isNotFound 节点返回 404
func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "HTTP 404")
}

func (c *ledgerClient) GetAccountState(ctx context.Context, address string) (*AccountState, error) {
	if !utils.IsValidAddress(address) {
		return nil, types.ValidationError("invalid account address: %q", address)
	}

	var out *AccountState
	err := withRetry(ctx, func() error {
		m, err := c.api.AccountInformation(ctx, address)
		if err != nil {
			return networkError("get account state", err)
		}
		out = accountFromModel(m)
		return nil
	}, c.config.Retry)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetSuggestedParams 当前网络参数
//
// 属于提交流程的构建阶段，不重试；失败直接返回 NetworkError，由用户重新发起。
func (c *ledgerClient) GetSuggestedParams(ctx context.Context) (types.NetworkParams, error) {
	params, err := c.api.SuggestedParams(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.NetworkParams{}, ctxErr
		}
		return types.NetworkParams{}, networkError("get suggested params", err)
	}
	return params, nil
}

// Submit 广播已签名交易
//
// **说明**：
// - 不重试；节点拒绝时返回 SubmitError，由用户重新发起
// - 节点返回空交易 ID 时使用签名时派生的 ID
func (c *ledgerClient) Submit(ctx context.Context, signed *types.SignedTransaction) (string, error) {
	if signed == nil || len(signed.Bytes) == 0 {
		return "", types.NewError(types.CodeSubmit, "empty signed transaction")
	}

	txID, err := c.api.SendRawTransaction(ctx, signed.Bytes)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		e := types.Wrap(types.CodeSubmit, err).WithLayer(types.LayerLedger).WithTxID(signed.TxID)
		e.Details = map[string]interface{}{"reason": err.Error()}
		return "", e
	}
	if txID == "" {
		txID = signed.TxID
	}
	c.config.Logger.Info("transaction submitted", "txId", txID)
	return txID, nil
}

// AwaitConfirmation 轮询交易确认
//
// **流程**：
// 1. 读取节点当前轮次，从下一轮开始计数
// 2. 每轮查询一次待处理交易：已确认则返回轮次；池中报错则返回 SubmitError
// 3. 等待下一个区块后继续，最多 maxRounds 轮
// 4. 超过轮次返回携带 txId 的 TimeoutError（交易之后仍可能被确认）
//
// 单次查询失败在轮次预算内容忍；ctx 取消时立即返回。
func (c *ledgerClient) AwaitConfirmation(ctx context.Context, txID string, maxRounds uint64) (*types.ConfirmationResult, error) {
	if txID == "" {
		return nil, types.ValidationError("transaction id is required")
	}
	if maxRounds == 0 {
		maxRounds = c.config.ConfirmationRounds
	}

	status, err := c.api.Status(ctx)
	if err != nil {
		return nil, networkError("get node status", err)
	}
	startRound := status.LastRound + 1
	currentRound := startRound

	for currentRound < startRound+maxRounds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, err := c.api.PendingTransactionInformation(ctx, txID)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			c.config.Logger.Debug("pending transaction lookup failed", "txId", txID, "round", currentRound, "error", err)
		case info.ConfirmedRound > 0:
			c.config.Logger.Info("transaction confirmed", "txId", txID, "round", info.ConfirmedRound)
			return &types.ConfirmationResult{TxID: txID, ConfirmedRound: info.ConfirmedRound}, nil
		case info.PoolError != "":
			e := types.NewError(types.CodeSubmit, "transaction rejected from pool: "+info.PoolError)
			e.Layer = types.LayerLedger
			e.TxID = txID
			e.Details = map[string]interface{}{"reason": info.PoolError}
			return nil, e
		}

		if _, err := c.api.StatusAfterBlock(ctx, currentRound); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, networkError("wait for block", err)
		}
		currentRound++
	}

	c.config.Logger.Warn("transaction not confirmed within round budget", "txId", txID, "rounds", maxRounds)
	return nil, types.TimeoutError(txID, maxRounds).WithLayer(types.LayerLedger)
}

func (c *ledgerClient) AwaitConfirmationAsync(ctx context.Context, txID string, maxRounds uint64) *types.ConfirmationFuture {
	f := types.NewConfirmationFuture()
	go func() {
		f.Complete(c.AwaitConfirmation(ctx, txID, maxRounds))
	}()
	return f
}

func (c *ledgerClient) GetApplicationState(ctx context.Context, appID uint64) (*ApplicationState, error) {
	if appID == 0 {
		return nil, types.ValidationError("application id must be non-zero")
	}

	var out *ApplicationState
	err := withRetry(ctx, func() error {
		app, err := c.api.GetApplicationByID(ctx, appID)
		if err != nil {
			return networkError("get application", err)
		}
		out = &ApplicationState{
			AppID:   appID,
			Creator: app.Params.Creator,
			Address: crypto.GetApplicationAddress(appID).String(),
			Global:  decodeTealState(app.Params.GlobalState),
		}
		return nil
	}, c.config.Retry)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerClient) LastRound(ctx context.Context) (uint64, error) {
	status, err := c.api.Status(ctx)
	if err != nil {
		return 0, networkError("get node status", err)
	}
	return status.LastRound, nil
}

func (c *ledgerClient) HealthCheck(ctx context.Context) error {
	if err := c.api.HealthCheck(ctx); err != nil {
		return networkError("health check", err)
	}
	return nil
}
