// Package docauth 对接外部文档认证服务
//
// 登录地址由认证服务通过重定向给出；认证成功后回调地址的查询参数携带文档哈希。
package docauth

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/landverify/client-sdk-go/types"
)

// LoginPath 登录入口路径
const LoginPath = "/digilocker/login"

// HashParam 回调中携带文档哈希的查询参数
const HashParam = "hash"

// Redirector 解析重定向目标
type Redirector interface {
	Redirect(ctx context.Context, path string) (string, error)
}

// Service 文档认证服务接口
type Service interface {
	// LoginURL 认证服务的登录地址
	LoginURL(ctx context.Context) (string, error)
}

type docAuthService struct {
	redirector Redirector
}

// NewService 创建文档认证服务
func NewService(redirector Redirector) Service {
	return &docAuthService{redirector: redirector}
}

func (s *docAuthService) LoginURL(ctx context.Context) (string, error) {
	u, err := s.redirector.Redirect(ctx, LoginPath)
	if err != nil {
		return "", fmt.Errorf("resolve login url: %w", err)
	}
	return u, nil
}

// HashFromCallback 从回调地址中取出文档哈希
//
// 接受完整 URL 或仅查询串；优先读取 hash 参数，其次读取 fragment 中的同名参数。
func HashFromCallback(callback string) (string, error) {
	callback = strings.TrimSpace(callback)
	if callback == "" {
		return "", types.ValidationError("callback url is empty")
	}

	u, err := url.Parse(callback)
	if err != nil {
		return "", types.ValidationError("invalid callback url: %v", err)
	}

	query := u.Query()
	if u.RawQuery == "" && !strings.Contains(callback, "://") && strings.Contains(callback, "=") {
		query, err = url.ParseQuery(strings.TrimPrefix(callback, "?"))
		if err != nil {
			return "", types.ValidationError("invalid callback query: %v", err)
		}
	}

	if h := strings.TrimSpace(query.Get(HashParam)); h != "" {
		return h, nil
	}
	if u.Fragment != "" {
		if frag, err := url.ParseQuery(u.Fragment); err == nil {
			if h := strings.TrimSpace(frag.Get(HashParam)); h != "" {
				return h, nil
			}
		}
	}
	return "", types.ValidationError("callback does not carry a %q parameter", HashParam)
}
