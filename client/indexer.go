package client

import (
	"context"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/common/models"
	"github.com/algorand/go-algorand-sdk/v2/client/v2/indexer"

	"github.com/landverify/client-sdk-go/types"
)

// IndexerAPI 索引节点 API 的最小接口
type IndexerAPI interface {
	SearchApplicationTransactions(ctx context.Context, appID uint64, minRound uint64, limit uint64, next string) (models.TransactionsResponse, error)
}

type indexerAdapter struct {
	c *indexer.Client
}

// NewIndexerAPI 基于网络配置创建索引节点 API
func NewIndexerAPI(cfg *NetworkConfig) (IndexerAPI, error) {
	c, err := indexer.MakeClient(cfg.Address(), cfg.Token)
	if err != nil {
		return nil, err
	}
	return &indexerAdapter{c: c}, nil
}

func (a *indexerAdapter) SearchApplicationTransactions(ctx context.Context, appID uint64, minRound uint64, limit uint64, next string) (models.TransactionsResponse, error) {
	q := a.c.SearchForTransactions().ApplicationId(appID)
	if minRound > 0 {
		q = q.MinRound(minRound)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if next != "" {
		q = q.NextToken(next)
	}
	return q.Do(ctx)
}

// TransactionPage 一页应用调用记录
type TransactionPage struct {
	Transactions []TransactionInfo `json:"transactions"`
	NextToken    string            `json:"nextToken,omitempty"`
}

// IndexClient 索引查询客户端
type IndexClient struct {
	api    IndexerAPI
	config *Config
}

// NewIndexClient 基于解析后的网络配置创建索引客户端
func NewIndexClient(cfg *NetworkConfig, config *Config) (*IndexClient, error) {
	api, err := NewIndexerAPI(cfg)
	if err != nil {
		return nil, types.Wrap(types.CodeNetwork, err).WithLayer(types.LayerLedger)
	}
	return NewIndexClientWithAPI(api, config), nil
}

// NewIndexClientWithAPI 使用给定的索引 API 创建客户端
func NewIndexClientWithAPI(api IndexerAPI, config *Config) *IndexClient {
	return &IndexClient{api: api, config: config.normalize()}
}

// ListApplicationTransactions 查询某应用的调用历史（按轮次升序分页）
//
// minRound 为 0 表示不限制；翻页时 next 必须与相同的 minRound 一起使用。
func (c *IndexClient) ListApplicationTransactions(ctx context.Context, appID uint64, minRound uint64, limit uint64, next string) (*TransactionPage, error) {
	if appID == 0 {
		return nil, types.ValidationError("application id must be non-zero")
	}

	var resp models.TransactionsResponse
	err := withRetry(ctx, func() error {
		r, err := c.api.SearchApplicationTransactions(ctx, appID, minRound, limit, next)
		if err != nil {
			return networkError("search application transactions", err)
		}
		resp = r
		return nil
	}, c.config.Retry)
	if err != nil {
		return nil, err
	}

	page := &TransactionPage{
		Transactions: make([]TransactionInfo, 0, len(resp.Transactions)),
		NextToken:    resp.NextToken,
	}
	for _, tx := range resp.Transactions {
		page.Transactions = append(page.Transactions, TransactionInfo{
			TxID:           tx.Id,
			Sender:         tx.Sender,
			ConfirmedRound: tx.ConfirmedRound,
			RoundTime:      tx.RoundTime,
			AppID:          tx.ApplicationTransaction.ApplicationId,
			Args:           tx.ApplicationTransaction.ApplicationArgs,
		})
	}
	return page, nil
}
