package client

import (
	"context"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/algod"
	"github.com/algorand/go-algorand-sdk/v2/client/v2/common/models"
	sdk "github.com/algorand/go-algorand-sdk/v2/types"
)

// AlgodAPI 账本节点 HTTP API 的最小接口
//
// 生产实现为 algodAdapter；测试使用内存实现。
type AlgodAPI interface {
	AccountInformation(ctx context.Context, address string) (models.Account, error)
	SuggestedParams(ctx context.Context) (sdk.SuggestedParams, error)
	SendRawTransaction(ctx context.Context, raw []byte) (string, error)
	PendingTransactionInformation(ctx context.Context, txID string) (models.PendingTransactionInfoResponse, error)
	Status(ctx context.Context) (models.NodeStatus, error)
	StatusAfterBlock(ctx context.Context, round uint64) (models.NodeStatus, error)
	GetApplicationByID(ctx context.Context, appID uint64) (models.Application, error)
	HealthCheck(ctx context.Context) error
}

// algodAdapter 将 SDK 的 algod.Client 适配为 AlgodAPI
type algodAdapter struct {
	c *algod.Client
}

// NewAlgodAPI 基于网络配置创建账本节点 API
func NewAlgodAPI(cfg *NetworkConfig) (AlgodAPI, error) {
	c, err := algod.MakeClient(cfg.Address(), cfg.Token)
	if err != nil {
		return nil, err
	}
	return &algodAdapter{c: c}, nil
}

func (a *algodAdapter) AccountInformation(ctx context.Context, address string) (models.Account, error) {
	return a.c.AccountInformation(address).Do(ctx)
}

func (a *algodAdapter) SuggestedParams(ctx context.Context) (sdk.SuggestedParams, error) {
	return a.c.SuggestedParams().Do(ctx)
}

func (a *algodAdapter) SendRawTransaction(ctx context.Context, raw []byte) (string, error) {
	return a.c.SendRawTransaction(raw).Do(ctx)
}

func (a *algodAdapter) PendingTransactionInformation(ctx context.Context, txID string) (models.PendingTransactionInfoResponse, error) {
	info, _, err := a.c.PendingTransactionInformation(txID).Do(ctx)
	return info, err
}

func (a *algodAdapter) Status(ctx context.Context) (models.NodeStatus, error) {
	return a.c.Status().Do(ctx)
}

func (a *algodAdapter) StatusAfterBlock(ctx context.Context, round uint64) (models.NodeStatus, error) {
	return a.c.StatusAfterBlock(round).Do(ctx)
}

func (a *algodAdapter) GetApplicationByID(ctx context.Context, appID uint64) (models.Application, error) {
	return a.c.GetApplicationByID(appID).Do(ctx)
}

func (a *algodAdapter) HealthCheck(ctx context.Context) error {
	return a.c.HealthCheck().Do(ctx)
}
