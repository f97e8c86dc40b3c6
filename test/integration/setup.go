//go:build integration

// Package integration 连接真实账本节点（通常是本地 localnet）的集成测试工具
//
// 运行方式：
//
//	LEDGER_SERVER=http://localhost LEDGER_PORT=4001 LEDGER_TOKEN=aaaa... \
//	INDEX_SERVER=http://localhost INDEX_PORT=8980 INDEX_PUBLIC=true \
//	APP_ID=1001 SIGNER_MNEMONIC="..." go test -tags integration ./test/integration/...
//
// 缺少配置时测试被跳过。
package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/landverify/client-sdk-go/client"
	"github.com/landverify/client-sdk-go/types"
	"github.com/landverify/client-sdk-go/wallet"
)

const (
	// DefaultTimeout 默认超时时间
	DefaultTimeout = 30 * time.Second
	// TransactionConfirmTimeout 交易确认超时时间
	TransactionConfirmTimeout = 90 * time.Second
)

// Env 测试环境
type Env struct {
	Settings *client.Settings
	Ledger   client.LedgerClient
	// Index 未配置索引节点时为 nil
	Index  *client.IndexClient
	Signer *wallet.AccountSigner
}

// SetupEnv 解析环境变量并连接节点
//
// **功能**：
// - 配置缺失时跳过测试
// - 检查节点健康状态，节点未运行时测试失败
// - 检查签名账户有余额支付手续费
func SetupEnv(t *testing.T) *Env {
	t.Helper()

	resolver := client.NewResolver(nil)
	settings, err := resolver.Settings()
	skipIfAbsent(t, err)
	ledgerCfg, err := resolver.Resolve(client.EndpointLedger)
	skipIfAbsent(t, err)

	config := client.DefaultConfig()
	config.ConfirmationRounds = settings.ConfirmationRounds
	ledger, err := client.NewLedgerClient(ledgerCfg, config)
	require.NoError(t, err, "创建账本客户端失败")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ledger.HealthCheck(ctx), "节点未运行，请先启动节点: %s", ledgerCfg.Address())

	env := &Env{Settings: settings, Ledger: ledger}
	if indexCfg, err := resolver.Resolve(client.EndpointIndex); err == nil {
		env.Index, err = client.NewIndexClient(indexCfg, config)
		require.NoError(t, err, "创建索引客户端失败")
	}

	mnemonic := os.Getenv("SIGNER_MNEMONIC")
	if mnemonic == "" {
		t.Skip("SIGNER_MNEMONIC 未设置，跳过集成测试")
	}
	env.Signer, err = wallet.NewAccountSignerFromMnemonic(mnemonic)
	require.NoError(t, err, "从助记词创建签名器失败")

	account, err := ledger.GetAccountState(ctx, env.Signer.Address())
	require.NoError(t, err, "查询签名账户失败")
	require.Greater(t, account.Balance, account.MinBalance, "签名账户余额不足: %s", env.Signer.Address())

	return env
}

func skipIfAbsent(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		return
	}
	if types.IsConfigAbsence(err) {
		t.Skipf("集成测试配置缺失: %v", err)
	}
	require.NoError(t, err)
}
