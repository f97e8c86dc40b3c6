package utils

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// BatchConfig 批量查询配置
type BatchConfig struct {
	// Concurrency 并发数量
	Concurrency int
}

// DefaultBatchConfig 返回默认批量配置
func DefaultBatchConfig() *BatchConfig {
	return &BatchConfig{
		Concurrency: 5,
	}
}

// BatchError 批量查询中单项的错误
type BatchError struct {
	Index int
	Error error
}

// BatchQueryResult 批量查询结果
// Results 与输入一一对应，失败项保留零值并记录在 Errors 中
type BatchQueryResult[R any] struct {
	Results []R
	Errors  []BatchError
	Success int
	Failed  int
}

// BatchQuery 并发执行只读查询，单项失败不影响其他项
//
// 示例：
//
//	res, err := BatchQuery(ctx, addrs, func(ctx context.Context, addr string, _ int) (*client.AccountState, error) {
//	    return ledger.GetAccountState(ctx, addr)
//	}, DefaultBatchConfig())
func BatchQuery[T any, R any](
	ctx context.Context,
	items []T,
	queryFn func(ctx context.Context, item T, index int) (R, error),
	config *BatchConfig,
) (*BatchQueryResult[R], error) {
	if config == nil {
		config = DefaultBatchConfig()
	}
	concurrency := config.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}

	result := &BatchQueryResult[R]{
		Results: make([]R, len(items)),
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, item := range items {
		g.Go(func() error {
			r, err := queryFn(gctx, item, i)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors = append(result.Errors, BatchError{Index: i, Error: err})
				result.Failed++
				return nil
			}
			result.Results[i] = r
			result.Success++
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}
