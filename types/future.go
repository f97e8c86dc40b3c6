package types

import (
	"context"
	"sync"
)

// ConfirmationFuture 异步确认结果
//
// 账本客户端的异步确认与提交流程的尝试共用该类型；只有首次 Complete 生效。
type ConfirmationFuture struct {
	done   chan struct{}
	once   sync.Once
	result *ConfirmationResult
	err    error
}

// NewConfirmationFuture 创建未完成的 future
func NewConfirmationFuture() *ConfirmationFuture {
	return &ConfirmationFuture{done: make(chan struct{})}
}

// Complete 交付结果，之后的调用被忽略
func (f *ConfirmationFuture) Complete(result *ConfirmationResult, err error) {
	f.once.Do(func() {
		f.result = result
		f.err = err
		close(f.done)
	})
}

// Done 完成时关闭
func (f *ConfirmationFuture) Done() <-chan struct{} {
	return f.done
}

// Wait 等待结果；ctx 结束只放弃等待，不取消产生结果的任务
func (f *ConfirmationFuture) Wait(ctx context.Context) (*ConfirmationResult, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result 非阻塞读取；未完成时返回 NotReady
func (f *ConfirmationFuture) Result() (*ConfirmationResult, error) {
	select {
	case <-f.done:
		return f.result, f.err
	default:
		return nil, NewError(CodeNotReady, "confirmation still pending")
	}
}
