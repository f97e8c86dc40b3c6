package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/landverify/client-sdk-go/types"
)

var errWorkflowUnavailable = types.ConfigMissingError("LEDGER_SERVER", "LEDGER_TOKEN", "APP_ID")

// errorResponse 错误响应体
//
// Message 为顶层错误边界的展示文案：配置缺失时是配置指引，否则为原始错误信息。
type errorResponse struct {
	*types.ProblemDetails
	Message string `json:"message"`
}

// statusFor 错误码对应的 HTTP 状态
func statusFor(code string) int {
	switch code {
	case types.CodeValidation, types.CodeAmbiguousIntent:
		return http.StatusBadRequest
	case types.CodeNotFound:
		return http.StatusNotFound
	case types.CodeAlreadyInFlight, types.CodeNotReady, types.CodeUserRejected, types.CodeCancelled:
		return http.StatusConflict
	case types.CodeConfigMissing:
		return http.StatusServiceUnavailable
	case types.CodeNetwork, types.CodeDelegateUnavailable, types.CodeSubmit:
		return http.StatusBadGateway
	case types.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// toProblem 任意错误转换为 Problem Details
func toProblem(err error) *errorResponse {
	e, ok := types.AsError(err)
	switch {
	case ok:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		e = types.Wrap(types.CodeCancelled, err)
	default:
		e = types.Wrap(types.CodeInternal, err)
	}

	pd := e.ToProblemDetails()
	status := statusFor(e.Code)
	if pd.Status == nil {
		pd.Status = &status
	}
	return &errorResponse{ProblemDetails: pd, Message: types.Describe(err)}
}

// writeError 写入 application/problem+json 响应
func (s *Server) writeError(c *gin.Context, err error) {
	resp := toProblem(err)
	status := statusFor(resp.Code)

	if status >= http.StatusInternalServerError {
		s.logger.Error("HTTP error",
			zap.String("code", resp.Code),
			zap.String("traceId", resp.TraceID),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}
	c.Header("Content-Type", "application/problem+json")
	c.AbortWithStatusJSON(status, resp)
}
