package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/landverify/client-sdk-go/types"
)

// RetryConfig 重试配置
//
// 只用于只读、幂等的查询（账户、应用状态、外部列表）。
// 交易提交与确认轮询不使用重试，失败后由用户重新发起。
type RetryConfig struct {
	// MaxRetries 最大重试次数
	MaxRetries int
	// InitialDelay 初始延迟（毫秒）
	InitialDelay int
	// MaxDelay 最大延迟（毫秒）
	MaxDelay int
	// BackoffMultiplier 退避倍数
	BackoffMultiplier float64
	// Retryable 判断错误是否可重试的函数
	Retryable func(error) bool
	// OnRetry 重试前的回调函数
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig 返回默认重试配置
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        3,
		InitialDelay:      1000,
		MaxDelay:          10000,
		BackoffMultiplier: 2.0,
		Retryable:         isRetryableError,
		OnRetry:           nil,
	}
}

// isRetryableError 判断错误是否可重试
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// 已分类的错误以 Retriable 标记为准，只对网络错误自动重试
	if e, ok := types.AsError(err); ok {
		return e.Code == types.CodeNetwork
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	errMsg := err.Error()
	for _, s := range []string{
		"connection refused",
		"connection reset",
		"no such host",
		"network is unreachable",
		"timeout",
		"HTTP 5",
		"HTTP 429",
	} {
		if strings.Contains(errMsg, s) {
			return true
		}
	}
	return false
}

// isRetryableHTTPError 判断 HTTP 响应错误是否可重试
func isRetryableHTTPError(statusCode int) bool {
	return (statusCode >= 500 && statusCode < 600) || statusCode == 429
}

// Retry 带指数退避的执行器（导出给只读服务使用）
func Retry(ctx context.Context, config *RetryConfig, fn func() error) error {
	return withRetry(ctx, fn, config)
}

// withRetry 带重试的函数执行器
func withRetry(ctx context.Context, fn func() error, config *RetryConfig) error {
	if config == nil {
		return fn()
	}

	retryable := config.Retryable
	if retryable == nil {
		retryable = isRetryableError
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Duration(config.InitialDelay) * time.Millisecond
	b.MaxInterval = time.Duration(config.MaxDelay) * time.Millisecond
	if config.BackoffMultiplier > 0 {
		b.Multiplier = config.BackoffMultiplier
	}
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0

	var maxRetries uint64
	if config.MaxRetries > 0 {
		maxRetries = uint64(config.MaxRetries)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx)

	attempts := 0
	operation := func() error {
		attempts++
		err := fn()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, _ time.Duration) {
		if config.OnRetry != nil {
			config.OnRetry(attempts, err)
		}
	}

	err := backoff.RetryNotify(operation, policy, notify)
	if err == nil {
		return nil
	}
	if attempts > 1 && retryable(err) {
		return fmt.Errorf("retry failed after %d attempts: %w", attempts, err)
	}
	return err
}
