package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/landverify/client-sdk-go/client"
	"github.com/landverify/client-sdk-go/services/docauth"
	"github.com/landverify/client-sdk-go/services/landtitle"
	"github.com/landverify/client-sdk-go/services/state"
	"github.com/landverify/client-sdk-go/types"
	"github.com/landverify/client-sdk-go/utils"
)

var validate = validator.New()

// VerificationRequest 提交文档哈希验证
type VerificationRequest struct {
	DocumentHash string `json:"documentHash" validate:"required"`
}

// TransferRequest 转移土地代币
type TransferRequest struct {
	TokenID      uint64 `json:"tokenId" validate:"required"`
	BuyerAddress string `json:"buyerAddress" validate:"required"`
}

// CallbackRequest 文档认证回调
type CallbackRequest struct {
	Callback string `json:"callback" validate:"required"`
}

// HistoryQuery 调用历史分页参数
type HistoryQuery struct {
	MinRound uint64 `form:"minRound"`
	Limit    uint64 `form:"limit" validate:"omitempty,min=1,max=1000"`
	Next     string `form:"next"`
}

// StateResponse 流程快照
type StateResponse struct {
	State     landtitle.State           `json:"state"`
	Operation string                    `json:"operation,omitempty"`
	TxID      string                    `json:"txId,omitempty"`
	Result    *types.ConfirmationResult `json:"result,omitempty"`
	Error     *errorResponse            `json:"error,omitempty"`
	Sender    string                    `json:"sender"`
	AppID     uint64                    `json:"appId"`
}

// OverviewResponse 单次渲染所需的账户与应用数据
type OverviewResponse struct {
	Account      *client.AccountState `json:"account"`
	ExplorerURL  string               `json:"explorerUrl"`
	VerifiedHash string               `json:"verifiedHash,omitempty"`
}

func (s *Server) snapshot() StateResponse {
	w := s.deps.Workflow
	snap := w.Snapshot()
	resp := StateResponse{
		State:     snap.State,
		Operation: snap.Operation,
		TxID:      snap.TxID,
		Result:    snap.Result,
		Sender:    w.Sender(),
		AppID:     w.AppID(),
	}
	if snap.Error != nil {
		resp.Error = toProblem(snap.Error)
	}
	return resp
}

// workflow 流程不可用时写入配置指引并返回 nil
func (s *Server) workflow(c *gin.Context) *landtitle.Workflow {
	if s.deps.Workflow == nil {
		s.writeError(c, s.deps.ConfigErr)
		return nil
	}
	return s.deps.Workflow
}

// bind 解析并校验请求体
func bind(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return types.ValidationError("invalid request body: %v", err)
	}
	if err := validate.Struct(req); err != nil {
		return types.ValidationError("%v", err)
	}
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	status := gin.H{"status": "ok", "workflow": s.deps.Workflow != nil}
	if s.deps.Health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		if err := s.deps.Health(ctx); err != nil {
			s.writeError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleState(c *gin.Context) {
	if s.workflow(c) == nil {
		return
	}
	c.JSON(http.StatusOK, s.snapshot())
}

func (s *Server) handleVerification(c *gin.Context) {
	w := s.workflow(c)
	if w == nil {
		return
	}
	var req VerificationRequest
	if err := bind(c, &req); err != nil {
		s.writeError(c, err)
		return
	}
	s.send(c, w, landtitle.SubmitVerification(req.DocumentHash))
}

func (s *Server) handleTransfer(c *gin.Context) {
	w := s.workflow(c)
	if w == nil {
		return
	}
	var req TransferRequest
	if err := bind(c, &req); err != nil {
		s.writeError(c, err)
		return
	}
	s.send(c, w, landtitle.TransferOwnership(req.TokenID, req.BuyerAddress))
}

// send 发起尝试
//
// **说明**：
// - 校验失败时尝试已同步结束，直接返回对应错误，流程停在 Failed 等待确认
// - 其余情况返回 202 与当前快照，后续状态通过 /api/state 或 /ws 获取
func (s *Server) send(c *gin.Context, w *landtitle.Workflow, intent *landtitle.Intent) {
	attempt, err := w.Send(c.Request.Context(), intent)
	if err != nil {
		s.writeError(c, err)
		return
	}
	select {
	case <-attempt.Done():
		if _, err := attempt.Result(); err != nil {
			s.writeError(c, err)
			return
		}
	default:
	}
	c.JSON(http.StatusAccepted, s.snapshot())
}

func (s *Server) handleAcknowledge(c *gin.Context) {
	w := s.workflow(c)
	if w == nil {
		return
	}
	if err := w.Acknowledge(); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.snapshot())
}

func (s *Server) handleCancel(c *gin.Context) {
	w := s.workflow(c)
	if w == nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": w.Cancel()})
}

func (s *Server) handleReset(c *gin.Context) {
	w := s.workflow(c)
	if w == nil {
		return
	}
	if err := w.Reset(c.Request.Context()); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.snapshot())
}

// stateService 状态服务不可用时写入配置缺失并返回 nil
func (s *Server) stateService(c *gin.Context) state.Service {
	if s.deps.State == nil {
		s.writeError(c, types.ConfigMissingError("LEDGER_SERVER", "LEDGER_TOKEN"))
		return nil
	}
	return s.deps.State
}

func parseAppID(c *gin.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, types.ValidationError("application id must be a positive integer, got %q", c.Param("id"))
	}
	return id, nil
}

// handleOverview 使用同一个视图渲染账户与已验证哈希
func (s *Server) handleOverview(c *gin.Context) {
	svc := s.stateService(c)
	if svc == nil {
		return
	}

	address := c.Query("address")
	var appID uint64
	if w := s.deps.Workflow; w != nil {
		if address == "" {
			address = w.Sender()
		}
		appID = w.AppID()
	}
	if address == "" {
		s.writeError(c, types.ValidationError("address query parameter is required"))
		return
	}

	view := svc.NewView()
	account, err := view.Account(c.Request.Context(), address)
	if err != nil {
		s.writeError(c, err)
		return
	}

	resp := OverviewResponse{
		Account:     account,
		ExplorerURL: utils.ExplorerAccountURL(s.deps.Network, address),
	}
	if appID != 0 {
		hash, err := view.VerifiedHash(c.Request.Context(), appID)
		if err != nil && !errors.Is(err, types.ErrNotFound) {
			s.writeError(c, err)
			return
		}
		resp.VerifiedHash = hash
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleAccount(c *gin.Context) {
	svc := s.stateService(c)
	if svc == nil {
		return
	}
	account, err := svc.FetchAccount(c.Request.Context(), c.Param("address"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (s *Server) handleApp(c *gin.Context) {
	svc := s.stateService(c)
	if svc == nil {
		return
	}
	appID, err := parseAppID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	app, err := svc.FetchAppState(c.Request.Context(), appID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (s *Server) handleVerifiedHash(c *gin.Context) {
	svc := s.stateService(c)
	if svc == nil {
		return
	}
	appID, err := parseAppID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	hash, err := svc.VerifiedHash(c.Request.Context(), appID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appId": appID, "verifiedHash": hash})
}

func (s *Server) handleHistory(c *gin.Context) {
	svc := s.stateService(c)
	if svc == nil {
		return
	}
	appID, err := parseAppID(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	var q HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.writeError(c, types.ValidationError("invalid query: %v", err))
		return
	}
	if err := validate.Struct(&q); err != nil {
		s.writeError(c, types.ValidationError("%v", err))
		return
	}
	if q.Limit == 0 {
		q.Limit = 20
	}

	history, err := svc.ListAppTransactions(c.Request.Context(), appID, q.MinRound, q.Limit, q.Next)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (s *Server) handleProperties(c *gin.Context) {
	if s.deps.Properties == nil {
		s.writeError(c, types.ConfigMissingError("API_BASE_URL"))
		return
	}
	props, err := s.deps.Properties.List(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	type item struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
		Link string `json:"link"`
	}
	out := make([]item, 0, len(props))
	for _, p := range props {
		out = append(out, item{ID: p.ID, Name: p.Name, Link: p.Link()})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleProperty(c *gin.Context) {
	if s.deps.Properties == nil {
		s.writeError(c, types.ConfigMissingError("API_BASE_URL"))
		return
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		s.writeError(c, types.ValidationError("property id must be an integer, got %q", c.Param("id")))
		return
	}
	p, err := s.deps.Properties.Get(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleLoginURL(c *gin.Context) {
	if s.deps.DocAuth == nil {
		s.writeError(c, types.ConfigMissingError("API_BASE_URL"))
		return
	}
	u, err := s.deps.DocAuth.LoginURL(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": u})
}

// handleAuthCallback 从认证回调中取出文档哈希，界面随后可直接提交验证
func (s *Server) handleAuthCallback(c *gin.Context) {
	var req CallbackRequest
	if err := bind(c, &req); err != nil {
		s.writeError(c, err)
		return
	}
	hash, err := docauth.HashFromCallback(req.Callback)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documentHash": hash})
}

