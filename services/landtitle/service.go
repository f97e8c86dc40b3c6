package landtitle

import (
	"context"
	"fmt"

	"github.com/landverify/client-sdk-go/types"
)

// Service 土地产权业务服务接口
type Service interface {
	// SubmitVerification 提交文档哈希验证，等待确认
	SubmitVerification(ctx context.Context, documentHash string) (*types.ConfirmationResult, error)

	// TransferOwnership 转移土地代币所有权，等待确认
	TransferOwnership(ctx context.Context, tokenID uint64, buyerAddress string) (*types.ConfirmationResult, error)

	// Workflow 底层提交流程
	Workflow() *Workflow
}

// landTitleService Service 实现
type landTitleService struct {
	workflow *Workflow
}

// NewService 基于提交流程创建服务
func NewService(workflow *Workflow) Service {
	return &landTitleService{workflow: workflow}
}

func (s *landTitleService) Workflow() *Workflow {
	return s.workflow
}

func (s *landTitleService) SubmitVerification(ctx context.Context, documentHash string) (*types.ConfirmationResult, error) {
	return s.submit(ctx, SubmitVerification(documentHash))
}

func (s *landTitleService) TransferOwnership(ctx context.Context, tokenID uint64, buyerAddress string) (*types.ConfirmationResult, error) {
	return s.submit(ctx, TransferOwnership(tokenID, buyerAddress))
}

// submit 同步执行一次尝试
//
// **流程**：
// 1. 通过 Workflow 发起尝试
// 2. 等待结果；ctx 结束时取消尝试并等待其释放
// 3. 确认结果，使流程回到 Idle
func (s *landTitleService) submit(ctx context.Context, intent *Intent) (*types.ConfirmationResult, error) {
	attempt, err := s.workflow.Send(ctx, intent)
	if err != nil {
		return nil, err
	}

	result, err := attempt.Wait(ctx)
	if ctx.Err() != nil && err == ctx.Err() {
		s.workflow.Cancel()
		<-attempt.Done()
		result, err = attempt.Result()
	}

	if ackErr := s.workflow.Acknowledge(); ackErr != nil {
		return nil, fmt.Errorf("acknowledge attempt: %w", ackErr)
	}
	return result, err
}
