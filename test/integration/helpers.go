//go:build integration

package integration

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/landverify/client-sdk-go/services/landtitle"
	"github.com/landverify/client-sdk-go/services/state"
	"github.com/landverify/client-sdk-go/wallet"
)

// NewWorkflow 使用环境中的签名账户创建提交流程
func NewWorkflow(t *testing.T, env *Env, signer wallet.Signer) *landtitle.Workflow {
	t.Helper()
	if signer == nil {
		signer = env.Signer
	}
	w, err := landtitle.NewWorkflow(env.Ledger, signer, landtitle.WorkflowConfig{
		AppID:              env.Settings.AppID,
		ConfirmationRounds: env.Settings.ConfirmationRounds,
	})
	require.NoError(t, err, "创建提交流程失败")
	return w
}

// StateService 状态服务（索引节点可选）
func StateService(env *Env) state.Service {
	if env.Index == nil {
		return state.NewService(env.Ledger, nil)
	}
	return state.NewService(env.Ledger, env.Index)
}

// UniqueHash 每次测试使用不同的文档哈希
func UniqueHash() string {
	return "it-" + uuid.New().String()
}

// WithTimeout 测试上下文
func WithTimeout(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), TransactionConfirmTimeout)
	t.Cleanup(cancel)
	return ctx
}
