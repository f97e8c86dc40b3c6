package types

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProblemDetails 错误的传输结构（基于 RFC7807 + 扩展字段）
// HTTP 接口返回错误时使用，外部协作服务返回的错误体也按此格式解析
type ProblemDetails struct {
	// RFC7807 标准字段
	Type     string `json:"type,omitempty"`
	Title    string `json:"title,omitempty"`
	Status   *int   `json:"status,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// 扩展字段
	Code        string                 `json:"code"`
	Layer       string                 `json:"layer"`
	UserMessage string                 `json:"userMessage"`
	TxID        string                 `json:"txId,omitempty"`
	Retriable   bool                   `json:"retriable"`
	Details     map[string]interface{} `json:"details,omitempty"`
	TraceID     string                 `json:"traceId"`
	Timestamp   string                 `json:"timestamp"`
}

// Error 统一错误类型
//
// 同一 Code 的错误通过 errors.Is 与对应的哨兵错误匹配：
//
//	errors.Is(err, types.ErrValidation)
type Error struct {
	Code        string
	Layer       string
	UserMessage string
	Detail      string
	// TxID 已广播交易的 ID（超时错误必带，便于用户链外查询）
	TxID      string
	Retriable bool
	Status    *int
	Details   map[string]interface{}
	TraceID   string
	Timestamp string
	Cause     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.UserMessage)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.TxID != "" {
		msg += fmt.Sprintf(" (txId=%s)", e.TxID)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is 按错误码匹配
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// ToProblemDetails 转换为 Problem Details
func (e *Error) ToProblemDetails() *ProblemDetails {
	return &ProblemDetails{
		Code:        e.Code,
		Layer:       e.Layer,
		UserMessage: e.UserMessage,
		Detail:      e.Detail,
		TxID:        e.TxID,
		Retriable:   e.Retriable,
		Status:      e.Status,
		Details:     e.Details,
		TraceID:     e.TraceID,
		Timestamp:   e.Timestamp,
	}
}

// NewErrorFromProblemDetails 从 Problem Details 创建 Error
func NewErrorFromProblemDetails(pd *ProblemDetails) *Error {
	return &Error{
		Code:        pd.Code,
		Layer:       pd.Layer,
		UserMessage: pd.UserMessage,
		Detail:      pd.Detail,
		TxID:        pd.TxID,
		Retriable:   pd.Retriable,
		Status:      pd.Status,
		Details:     pd.Details,
		TraceID:     pd.TraceID,
		Timestamp:   pd.Timestamp,
	}
}

// AsError 提取 *Error
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Layer 常量
const (
	LayerClientSDKGo  = "client-sdk-go"
	LayerLedger       = "ledger-node"
	LayerWallet       = "wallet"
	LayerCollaborator = "collaborator"
)

// 错误码
const (
	CodeConfigMissing       = "CONFIG_MISSING"
	CodeValidation          = "VALIDATION_ERROR"
	CodeAmbiguousIntent     = "AMBIGUOUS_INTENT"
	CodeBuild               = "BUILD_ERROR"
	CodeUserRejected        = "USER_REJECTED"
	CodeDelegateUnavailable = "DELEGATE_UNAVAILABLE"
	CodeSubmit              = "SUBMIT_ERROR"
	CodeTimeout             = "TIMEOUT_ERROR"
	CodeNetwork             = "NETWORK_ERROR"

	// 工作流结果码
	CodeAlreadyInFlight = "ALREADY_IN_FLIGHT"
	CodeCancelled       = "CANCELLED"
	CodeWallet          = "WALLET_ERROR"
	CodeNotReady        = "NOT_READY"
	CodeNotFound        = "NOT_FOUND"
	CodeInternal        = "INTERNAL_ERROR"
)

// 哨兵错误，仅用于 errors.Is 比较
var (
	ErrConfigMissing       = &Error{Code: CodeConfigMissing}
	ErrValidation          = &Error{Code: CodeValidation}
	ErrAmbiguousIntent     = &Error{Code: CodeAmbiguousIntent}
	ErrBuild               = &Error{Code: CodeBuild}
	ErrUserRejected        = &Error{Code: CodeUserRejected}
	ErrDelegateUnavailable = &Error{Code: CodeDelegateUnavailable}
	ErrSubmit              = &Error{Code: CodeSubmit}
	ErrTimeout             = &Error{Code: CodeTimeout}
	ErrNetwork             = &Error{Code: CodeNetwork}
	ErrAlreadyInFlight     = &Error{Code: CodeAlreadyInFlight}
	ErrCancelled           = &Error{Code: CodeCancelled}
	ErrWallet              = &Error{Code: CodeWallet}
	ErrNotReady            = &Error{Code: CodeNotReady}
	ErrNotFound            = &Error{Code: CodeNotFound}
	ErrInternal            = &Error{Code: CodeInternal}
)

// userMessages 各错误码的默认用户提示
var userMessages = map[string]string{
	CodeConfigMissing:       "required configuration is missing",
	CodeValidation:          "invalid input",
	CodeAmbiguousIntent:     "provide either a document hash or a token transfer, not both",
	CodeBuild:               "failed to build transaction",
	CodeUserRejected:        "signature request was rejected",
	CodeDelegateUnavailable: "wallet is not available",
	CodeSubmit:              "transaction was rejected by the network",
	CodeTimeout:             "transaction not confirmed yet; it may still confirm later",
	CodeNetwork:             "network request failed",
	CodeAlreadyInFlight:     "a transaction is already in progress",
	CodeCancelled:           "transaction cancelled",
	CodeWallet:              "wallet error",
	CodeNotReady:            "client is not ready",
	CodeNotFound:            "resource not found",
	CodeInternal:            "internal error",
}

// retriable 用户可以重新发起的错误码（核心从不自动重试）
var retriable = map[string]bool{
	CodeSubmit:  true,
	CodeNetwork: true,
	CodeTimeout: true,
}

// NewError 创建带追踪 ID 的错误
func NewError(code string, detail string) *Error {
	msg, ok := userMessages[code]
	if !ok {
		msg = strings.ToLower(strings.ReplaceAll(code, "_", " "))
	}
	return &Error{
		Code:        code,
		Layer:       LayerClientSDKGo,
		UserMessage: msg,
		Detail:      detail,
		Retriable:   retriable[code],
		TraceID:     uuid.New().String(),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}

// Wrap 以 code 包装底层错误
func Wrap(code string, cause error) *Error {
	e := NewError(code, "")
	if cause != nil {
		e.Detail = cause.Error()
	}
	e.Cause = cause
	return e
}

// WithLayer 设置错误所属层
func (e *Error) WithLayer(layer string) *Error {
	e.Layer = layer
	return e
}

// WithTxID 附加交易 ID
func (e *Error) WithTxID(txID string) *Error {
	e.TxID = txID
	return e
}

// ConfigMissingError 缺少配置项，列出所有缺失的变量名
func ConfigMissingError(vars ...string) *Error {
	e := NewError(CodeConfigMissing, "missing required environment variables: "+strings.Join(vars, ", "))
	e.Details = map[string]interface{}{"variables": vars}
	return e
}

// ValidationError 输入校验失败
func ValidationError(format string, args ...interface{}) *Error {
	return NewError(CodeValidation, fmt.Sprintf(format, args...))
}

// TimeoutError 确认轮询超时
func TimeoutError(txID string, rounds uint64) *Error {
	e := NewError(CodeTimeout, fmt.Sprintf("transaction not confirmed after %d rounds", rounds))
	e.TxID = txID
	return e
}

// ParseProblemDetails 从 JSON 错误体解析 Problem Details
func ParseProblemDetails(body interface{}) (*ProblemDetails, error) {
	data, ok := body.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid problem details format")
	}

	code, _ := data["code"].(string)
	userMessage, _ := data["userMessage"].(string)
	if code == "" || userMessage == "" {
		return nil, fmt.Errorf("missing required fields in problem details")
	}

	layer, _ := data["layer"].(string)
	if layer == "" {
		layer = LayerCollaborator
	}
	detail, _ := data["detail"].(string)
	txID, _ := data["txId"].(string)
	retry, _ := data["retriable"].(bool)
	traceID, _ := data["traceId"].(string)
	if traceID == "" {
		traceID = uuid.New().String()
	}
	timestamp, _ := data["timestamp"].(string)
	if timestamp == "" {
		timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	var status *int
	if statusVal, ok := data["status"].(float64); ok {
		s := int(statusVal)
		status = &s
	}
	details, _ := data["details"].(map[string]interface{})
	title, _ := data["title"].(string)

	return &ProblemDetails{
		Code:        code,
		Layer:       layer,
		UserMessage: userMessage,
		Detail:      detail,
		TxID:        txID,
		Retriable:   retry,
		Status:      status,
		Details:     details,
		TraceID:     traceID,
		Timestamp:   timestamp,
		Title:       title,
	}, nil
}
