// Package state 提供只读的账户与应用状态查询
package state

import (
	"context"

	"github.com/landverify/client-sdk-go/client"
	"github.com/landverify/client-sdk-go/types"
	"github.com/landverify/client-sdk-go/utils"
)

// VerifiedHashKey 应用全局状态中已验证文档哈希的键
const VerifiedHashKey = "verified_hash"

// Ledger 状态查询使用的账本操作
type Ledger interface {
	GetAccountState(ctx context.Context, address string) (*client.AccountState, error)
	GetApplicationState(ctx context.Context, appID uint64) (*client.ApplicationState, error)
}

// History 应用调用历史查询
type History interface {
	ListApplicationTransactions(ctx context.Context, appID uint64, minRound uint64, limit uint64, next string) (*client.TransactionPage, error)
}

// Service 应用状态服务接口
//
// 所有查询只读、无副作用，可安全重试与缓存。
type Service interface {
	// FetchAccount 账户状态
	FetchAccount(ctx context.Context, address string) (*client.AccountState, error)

	// FetchAppState 应用全局状态
	FetchAppState(ctx context.Context, appID uint64) (*client.ApplicationState, error)

	// VerifiedHash 应用记录的已验证文档哈希
	VerifiedHash(ctx context.Context, appID uint64) (string, error)

	// FetchAccounts 批量查询账户，单项失败不影响其他项
	FetchAccounts(ctx context.Context, addresses []string) (*utils.BatchQueryResult[*client.AccountState], error)

	// ListAppTransactions 应用调用历史（需要索引节点），minRound 为 0 表示从最早开始
	ListAppTransactions(ctx context.Context, appID uint64, minRound uint64, limit uint64, next string) (*AppHistory, error)

	// NewView 创建单次渲染内有效的缓存视图
	NewView() *View
}

// AppCallRecord 一条解码后的应用调用
type AppCallRecord struct {
	client.TransactionInfo
	// Call 解码失败时为 nil
	Call *utils.AppCall `json:"call,omitempty"`
}

// AppHistory 一页应用调用历史
type AppHistory struct {
	Calls     []AppCallRecord `json:"calls"`
	NextToken string          `json:"nextToken,omitempty"`
}

// stateService Service 实现
type stateService struct {
	ledger  Ledger
	history History
	batch   *utils.BatchConfig
}

// NewService 创建状态服务；history 为 nil 时历史查询返回 ConfigMissing
func NewService(ledger Ledger, history History) Service {
	return &stateService{
		ledger:  ledger,
		history: history,
		batch:   utils.DefaultBatchConfig(),
	}
}

func (s *stateService) FetchAccount(ctx context.Context, address string) (*client.AccountState, error) {
	return s.ledger.GetAccountState(ctx, address)
}

func (s *stateService) FetchAppState(ctx context.Context, appID uint64) (*client.ApplicationState, error) {
	return s.ledger.GetApplicationState(ctx, appID)
}

func (s *stateService) VerifiedHash(ctx context.Context, appID uint64) (string, error) {
	app, err := s.ledger.GetApplicationState(ctx, appID)
	if err != nil {
		return "", err
	}
	return verifiedHash(app)
}

// verifiedHash 从全局状态读取已验证哈希
func verifiedHash(app *client.ApplicationState) (string, error) {
	v, ok := app.Global[VerifiedHashKey]
	if !ok {
		return "", types.NewError(types.CodeNotFound, "application has no verified hash")
	}
	if v.Type != client.StateTypeBytes {
		return "", types.NewError(types.CodeInternal, "verified hash is not a byte value")
	}
	return string(v.Bytes), nil
}

func (s *stateService) FetchAccounts(ctx context.Context, addresses []string) (*utils.BatchQueryResult[*client.AccountState], error) {
	return utils.BatchQuery(ctx, addresses, func(ctx context.Context, addr string, _ int) (*client.AccountState, error) {
		return s.ledger.GetAccountState(ctx, addr)
	}, s.batch)
}

func (s *stateService) ListAppTransactions(ctx context.Context, appID uint64, minRound uint64, limit uint64, next string) (*AppHistory, error) {
	if s.history == nil {
		return nil, types.ConfigMissingError("INDEX_SERVER", "INDEX_TOKEN")
	}

	page, err := s.history.ListApplicationTransactions(ctx, appID, minRound, limit, next)
	if err != nil {
		return nil, err
	}

	out := &AppHistory{
		Calls:     make([]AppCallRecord, 0, len(page.Transactions)),
		NextToken: page.NextToken,
	}
	for _, tx := range page.Transactions {
		rec := AppCallRecord{TransactionInfo: tx}
		if call, err := utils.DecodeAppArgs(tx.Args); err == nil {
			rec.Call = call
		}
		out.Calls = append(out.Calls, rec)
	}
	return out, nil
}

func (s *stateService) NewView() *View {
	return newView(s.ledger)
}
