package landtitle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/landverify/client-sdk-go/client"
	"github.com/landverify/client-sdk-go/types"
	"github.com/landverify/client-sdk-go/wallet"
)

// State 提交流程状态
type State string

const (
	StateIdle                 State = "Idle"
	StateValidating           State = "Validating"
	StateBuilding             State = "Building"
	StateAwaitingSignature    State = "AwaitingSignature"
	StateSubmitting           State = "Submitting"
	StateAwaitingConfirmation State = "AwaitingConfirmation"
	StateSucceeded            State = "Succeeded"
	StateFailed               State = "Failed"
)

// Terminal 是否为终止状态
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Ledger 提交流程使用的账本操作
type Ledger interface {
	GetSuggestedParams(ctx context.Context) (types.NetworkParams, error)
	Submit(ctx context.Context, signed *types.SignedTransaction) (string, error)
	AwaitConfirmationAsync(ctx context.Context, txID string, maxRounds uint64) *types.ConfirmationFuture
}

// WorkflowConfig 提交流程配置
type WorkflowConfig struct {
	// AppID 已部署应用的 ID
	AppID uint64
	// ConfirmationRounds 确认轮询轮次（0 表示默认 4 轮）
	ConfirmationRounds uint64
	// Logger 日志器（可选）
	Logger client.Logger
}

// Transition 一次状态迁移
type Transition struct {
	From  State     `json:"from"`
	To    State     `json:"to"`
	TxID  string    `json:"txId,omitempty"`
	Error error     `json:"-"`
	At    time.Time `json:"at"`
}

// Snapshot 流程当前快照
type Snapshot struct {
	State     State                     `json:"state"`
	Operation string                    `json:"operation,omitempty"`
	TxID      string                    `json:"txId,omitempty"`
	Result    *types.ConfirmationResult `json:"result,omitempty"`
	Error     error                     `json:"-"`
}

// Workflow 提交与确认流程
//
// **说明**：
// - 同一时刻最多一个进行中的尝试；非 Idle 时再次 Send 返回 AlreadyInFlight
// - 任何阶段都不自动重试，重试是用户从 Idle 重新发起
// - 终止状态需要调用方 Acknowledge 后才回到 Idle
type Workflow struct {
	ledger Ledger
	signer wallet.Signer
	config WorkflowConfig
	logger client.Logger

	mu      sync.Mutex
	state   State
	attempt *Attempt
	cancel  context.CancelFunc

	// 每次尝试独占的数据，Acknowledge 时清空
	intent    *Intent
	operation string
	unsigned  *types.UnsignedTransaction
	signed    *types.SignedTransaction
	txID      string
	result    *types.ConfirmationResult
	err       error

	subMu       sync.Mutex
	subscribers map[int]chan Transition
	nextSub     int
}

// NewWorkflow 创建提交流程
//
// 缺少账本客户端或应用 ID 时返回 ConfigMissing，流程无法进入 Validating。
func NewWorkflow(ledger Ledger, signer wallet.Signer, config WorkflowConfig) (*Workflow, error) {
	var missing []string
	if ledger == nil {
		missing = append(missing, "LEDGER_SERVER", "LEDGER_TOKEN")
	}
	if config.AppID == 0 {
		missing = append(missing, "APP_ID")
	}
	if len(missing) > 0 {
		return nil, types.ConfigMissingError(missing...)
	}
	if signer == nil {
		return nil, types.NewError(types.CodeDelegateUnavailable, "no wallet connected").WithLayer(types.LayerWallet)
	}
	if config.ConfirmationRounds == 0 {
		config.ConfirmationRounds = client.DefaultConfirmationRounds
	}
	logger := config.Logger
	if logger == nil {
		logger = client.NopLogger()
	}

	return &Workflow{
		ledger:      ledger,
		signer:      signer,
		config:      config,
		logger:      logger,
		state:       StateIdle,
		subscribers: make(map[int]chan Transition),
	}, nil
}

// Sender 签名账户地址
func (w *Workflow) Sender() string {
	return w.signer.Address()
}

// AppID 应用 ID
func (w *Workflow) AppID() uint64 {
	return w.config.AppID
}

// State 当前状态
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Snapshot 当前快照
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Snapshot{
		State:     w.state,
		Operation: w.operation,
		TxID:      w.txID,
		Result:    w.result,
		Error:     w.err,
	}
}

// Send 发起一次提交
//
// **流程**：
// 1. 仅在 Idle 时接受，否则返回 AlreadyInFlight 且无任何副作用
// 2. 同步校验意图（不访问网络）；失败时返回已完成的 Attempt
// 3. 构建、签名、提交、等待确认在独立 goroutine 中进行，结果通过 Attempt 交付
//
// 尝试使用与 ctx 解耦的上下文运行（保留 ctx 的值），只能通过 Cancel 取消。
func (w *Workflow) Send(ctx context.Context, intent *Intent) (*Attempt, error) {
	w.mu.Lock()
	if w.state != StateIdle {
		state := w.state
		w.mu.Unlock()
		e := types.NewError(types.CodeAlreadyInFlight, "workflow is in state "+string(state))
		return nil, e
	}

	attempt := newAttempt()
	attemptCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w.attempt = attempt
	w.cancel = cancel
	w.intent = intent
	w.transitionLocked(StateValidating)

	op, err := intent.Operation()
	if err == nil {
		err = intent.Validate()
	}
	w.operation = op
	if err != nil {
		w.failLocked(err)
		w.mu.Unlock()
		cancel()
		return attempt, nil
	}
	w.transitionLocked(StateBuilding)
	w.mu.Unlock()

	go w.run(attemptCtx, cancel, intent)
	return attempt, nil
}

// run 构建 → 签名 → 提交 → 确认
func (w *Workflow) run(ctx context.Context, cancel context.CancelFunc, intent *Intent) {
	defer cancel()
	start := time.Now()

	params, err := w.ledger.GetSuggestedParams(ctx)
	if err != nil {
		w.fail(ctx, err)
		return
	}
	unsigned, err := Build(intent, w.signer.Address(), w.config.AppID, params)
	if err != nil {
		if _, ok := types.AsError(err); !ok {
			err = types.Wrap(types.CodeBuild, err)
		}
		w.fail(ctx, err)
		return
	}
	if !w.advance(ctx, StateAwaitingSignature, func() { w.unsigned = unsigned }) {
		return
	}

	signed, err := w.signer.SignTransaction(ctx, unsigned)
	if err != nil {
		w.fail(ctx, signerOutcome(err))
		return
	}
	if !w.advance(ctx, StateSubmitting, func() { w.signed = signed }) {
		return
	}

	txID, err := w.ledger.Submit(ctx, signed)
	if err != nil {
		w.fail(ctx, err)
		return
	}
	if !w.advance(ctx, StateAwaitingConfirmation, func() { w.txID = txID }) {
		return
	}
	w.logger.Info("awaiting confirmation", "txId", txID, "rounds", w.config.ConfirmationRounds)

	result, err := w.ledger.AwaitConfirmationAsync(ctx, txID, w.config.ConfirmationRounds).Wait(ctx)
	if err != nil {
		w.fail(ctx, err)
		return
	}
	confirmDuration.Observe(time.Since(start).Seconds())

	w.mu.Lock()
	w.result = result
	w.transitionLocked(StateSucceeded)
	attempt := w.attempt
	w.mu.Unlock()

	attemptsTotal.WithLabelValues(w.operation, string(StateSucceeded)).Inc()
	attempt.Complete(result, nil)
}

// advance 迁移到下一状态；尝试已被取消时转为失败并返回 false
func (w *Workflow) advance(ctx context.Context, next State, set func()) bool {
	if ctx.Err() != nil {
		w.fail(ctx, ctx.Err())
		return false
	}
	w.mu.Lock()
	set()
	w.transitionLocked(next)
	w.mu.Unlock()
	return true
}

// fail 以失败结束当前尝试
func (w *Workflow) fail(ctx context.Context, err error) {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		err = types.Wrap(types.CodeCancelled, err)
	}
	w.mu.Lock()
	w.failLocked(err)
	w.mu.Unlock()
}

// failLocked 设置失败状态并完成 Attempt（需持有 mu）
func (w *Workflow) failLocked(err error) {
	e, ok := types.AsError(err)
	if !ok {
		e = types.Wrap(types.CodeInternal, err)
	}
	if e.TxID == "" && w.txID != "" {
		e.TxID = w.txID
	}
	w.err = e
	w.transitionLocked(StateFailed)
	w.logger.Warn("attempt failed", "operation", w.operation, "state", string(StateFailed), "code", e.Code, "txId", e.TxID)
	attemptsTotal.WithLabelValues(w.operation, e.Code).Inc()
	w.attempt.Complete(nil, e)
}

// signerOutcome 将签名委托错误映射为流程结果
// UserRejected → Cancelled；DelegateUnavailable 及其他 → WalletError
func signerOutcome(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, types.ErrUserRejected):
		return types.Wrap(types.CodeCancelled, err).WithLayer(types.LayerWallet)
	default:
		return types.Wrap(types.CodeWallet, err).WithLayer(types.LayerWallet)
	}
}

// transitionLocked 迁移状态并通知订阅者（需持有 mu）
func (w *Workflow) transitionLocked(next State) {
	t := Transition{From: w.state, To: next, TxID: w.txID, Error: nil, At: time.Now()}
	if next == StateFailed {
		t.Error = w.err
	}
	w.state = next
	w.logger.Debug("workflow transition", "from", string(t.From), "to", string(t.To), "txId", t.TxID)
	w.publish(t)
}

// Cancel 取消进行中的尝试并释放轮询；没有进行中的尝试时返回 false
//
// 已提交的交易仍可能在链上确认，结果中保留 txId。
func (w *Workflow) Cancel() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateIdle || w.state.Terminal() || w.cancel == nil {
		return false
	}
	w.cancel()
	return true
}

// Acknowledge 调用方确认终止结果后回到 Idle，并清空本次尝试的全部数据
//
// Idle 时为空操作；尝试仍在进行时返回 NotReady。
func (w *Workflow) Acknowledge() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch {
	case w.state == StateIdle:
		return nil
	case !w.state.Terminal():
		return types.NewError(types.CodeNotReady, "attempt is still in state "+string(w.state))
	}

	w.intent = nil
	w.operation = ""
	w.unsigned = nil
	w.signed = nil
	w.txID = ""
	w.result = nil
	w.err = nil
	w.attempt = nil
	w.cancel = nil
	w.transitionLocked(StateIdle)
	return nil
}

// Reset 手动复位：取消进行中的尝试，等待其结束后回到 Idle
func (w *Workflow) Reset(ctx context.Context) error {
	w.mu.Lock()
	attempt := w.attempt
	w.mu.Unlock()

	if attempt != nil {
		w.Cancel()
		select {
		case <-attempt.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return w.Acknowledge()
}

// Subscribe 订阅状态迁移，返回取消订阅函数
// 订阅者读取过慢时丢弃迁移事件，不阻塞流程
func (w *Workflow) Subscribe() (<-chan Transition, func()) {
	w.subMu.Lock()
	defer w.subMu.Unlock()

	id := w.nextSub
	w.nextSub++
	ch := make(chan Transition, 16)
	w.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.subMu.Lock()
			delete(w.subscribers, id)
			w.subMu.Unlock()
			close(ch)
		})
	}
}

func (w *Workflow) publish(t Transition) {
	w.subMu.Lock()
	defer w.subMu.Unlock()
	for _, ch := range w.subscribers {
		select {
		case ch <- t:
		default:
		}
	}
}
