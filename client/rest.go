package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/landverify/client-sdk-go/types"
)

// MaxResponseSize 外部服务响应体上限（4MB）
const MaxResponseSize = 4 << 20

// RESTClient 外部协作服务的 JSON 客户端（房产列表、文档认证）
type RESTClient struct {
	baseURL *url.URL
	client  *http.Client
	logger  Logger
	debug   bool
	retry   *RetryConfig
}

// NewRESTClient 创建 REST 客户端
func NewRESTClient(baseURL string, config *Config) (*RESTClient, error) {
	config = config.normalize()

	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, types.ValidationError("invalid base url: %q", baseURL)
	}

	retryConfig := config.Retry
	if retryConfig != nil && config.Debug {
		rc := *retryConfig
		rc.OnRetry = func(attempt int, err error) {
			config.Logger.Warn("Retrying request", "attempt", attempt, "error", err)
		}
		retryConfig = &rc
	}

	return &RESTClient{
		baseURL: u,
		client: &http.Client{
			Timeout: time.Duration(config.Timeout) * time.Second,
		},
		logger: config.Logger,
		debug:  config.Debug,
		retry:  retryConfig,
	}, nil
}

// BaseURL 服务根地址
func (c *RESTClient) BaseURL() string {
	return c.baseURL.String()
}

// URL 拼接路径
func (c *RESTClient) URL(path string) string {
	return c.baseURL.String() + "/" + strings.TrimLeft(path, "/")
}

// statusError 非 2xx 响应
type statusError struct {
	status int
	body   []byte
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.status, strings.TrimSpace(string(e.body)))
}

// GetJSON 发送 GET 请求并解析 JSON 响应
//
// **说明**：
// - 5xx、429 与连接错误按 RetryConfig 重试（只读请求）
// - 404 返回 NotFound
// - 其他错误响应优先按 Problem Details 解析
func (c *RESTClient) GetJSON(ctx context.Context, path string, out interface{}) error {
	var body []byte
	err := withRetry(ctx, func() error {
		b, err := c.get(ctx, path)
		if err != nil {
			var se *statusError
			if errors.As(err, &se) && !isRetryableHTTPError(se.status) {
				return err
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if _, ok := types.AsError(err); ok {
				return err
			}
			return types.Wrap(types.CodeNetwork, err).WithLayer(types.LayerCollaborator)
		}
		body = b
		return nil
	}, c.retry)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			return c.statusToError(path, se)
		}
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return types.Wrap(types.CodeInternal, fmt.Errorf("unmarshal response failed: %w", err)).WithLayer(types.LayerCollaborator)
	}
	return nil
}

func (c *RESTClient) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(path), nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("Failed to close response body", "error", err)
		}
	}()

	body, err := readBody(resp.Body)
	if err != nil {
		return nil, err
	}
	if c.debug {
		c.logger.Debug("REST response", "path", path, "status", resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{status: resp.StatusCode, body: body}
	}
	return body, nil
}

// readBody 读取响应体，超过 MaxResponseSize 时返回错误（不重试）
func readBody(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("read response failed: %w", err)
	}
	if len(body) > MaxResponseSize {
		return nil, types.NewError(types.CodeInternal, fmt.Sprintf("response body exceeds %d bytes", MaxResponseSize)).WithLayer(types.LayerCollaborator)
	}
	return body, nil
}

// statusToError 将错误响应转换为 *types.Error
func (c *RESTClient) statusToError(path string, se *statusError) error {
	var raw map[string]interface{}
	if json.Unmarshal(se.body, &raw) == nil {
		if pd, err := types.ParseProblemDetails(raw); err == nil {
			return types.NewErrorFromProblemDetails(pd)
		}
	}

	code := types.CodeNetwork
	if se.status == http.StatusNotFound {
		code = types.CodeNotFound
	}
	e := types.Wrap(code, fmt.Errorf("GET %s: %w", path, se)).WithLayer(types.LayerCollaborator)
	status := se.status
	e.Status = &status
	return e
}

// Redirect 请求一个会重定向的地址，返回目标 URL（不跟随）
//
// 服务直接返回 200 时，响应体若为 {"url": "..."} 则返回其中的地址。
func (c *RESTClient) Redirect(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(path), nil)
	if err != nil {
		return "", fmt.Errorf("create request failed: %w", err)
	}

	noFollow := *c.client
	noFollow.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err := noFollow.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", types.Wrap(types.CodeNetwork, err).WithLayer(types.LayerCollaborator)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		loc, err := resp.Location()
		if err != nil {
			return "", types.Wrap(types.CodeNetwork, fmt.Errorf("redirect without location: %w", err)).WithLayer(types.LayerCollaborator)
		}
		return loc.String(), nil
	}

	body, err := readBody(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", c.statusToError(path, &statusError{status: resp.StatusCode, body: body})
	}

	var payload struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.URL == "" {
		return "", types.NewError(types.CodeNetwork, "response is neither a redirect nor a url payload").WithLayer(types.LayerCollaborator)
	}
	return payload.URL, nil
}
