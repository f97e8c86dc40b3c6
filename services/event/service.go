// Package event 基于索引节点的应用调用事件
//
// 账本应用不产生独立的事件日志，验证与转移以应用调用交易的形式出现；
// 本包把解码后的调用转换为事件，并通过轮询提供订阅。
package event

import (
	"context"
	"time"

	"github.com/landverify/client-sdk-go/client"
	"github.com/landverify/client-sdk-go/services/state"
	"github.com/landverify/client-sdk-go/types"
)

// Source 应用调用历史来源（state.Service 满足该接口）
//
// 结果按确认轮次升序；minRound 为 0 表示不限制。
type Source interface {
	ListAppTransactions(ctx context.Context, appID uint64, minRound uint64, limit uint64, next string) (*state.AppHistory, error)
}

// RoundSource 账本最新轮次（client.LedgerClient 满足该接口）
type RoundSource interface {
	LastRound(ctx context.Context) (uint64, error)
}

// Service Event 业务服务接口
type Service interface {
	// GetEvents 获取事件列表
	GetEvents(ctx context.Context, filters *EventFilters) ([]*EventInfo, error)

	// SubscribeEvents 订阅新事件，ctx 结束时关闭通道
	SubscribeEvents(ctx context.Context, filters *EventFilters) (<-chan *EventInfo, error)
}

// EventFilters 事件查询过滤器
type EventFilters struct {
	// AppID 应用 ID（必填）
	AppID uint64
	// Operation 只返回指定操作（submit_verification / transfer_land_token）
	Operation string
	// AfterRound 只返回确认轮次大于该值的事件；订阅时为 0 表示从当前最新轮次开始
	AfterRound uint64
	// Limit 返回数量限制（0 表示不限制）；GetEvents 单次最多读取 maxPages 页
	Limit int
}

func (f *EventFilters) match(ev *EventInfo) bool {
	return f.Operation == "" || f.Operation == ev.Operation
}

// EventInfo 事件信息
type EventInfo struct {
	Operation    string `json:"operation"`
	TxID         string `json:"txId"`
	Sender       string `json:"sender"`
	Round        uint64 `json:"round"`
	DocumentHash string `json:"documentHash,omitempty"`
	TokenID      uint64 `json:"tokenId,omitempty"`
	Seller       string `json:"seller,omitempty"`
	Buyer        string `json:"buyer,omitempty"`
}

// eventService Event 服务实现
type eventService struct {
	source   Source
	rounds   RoundSource
	interval time.Duration
	pageSize uint64
	maxPages int
	logger   client.Logger
}

// Option 服务选项
type Option func(*eventService)

// WithPollInterval 订阅轮询间隔（默认 4 秒，约一个区块）
func WithPollInterval(d time.Duration) Option {
	return func(s *eventService) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithPageSize 每次查询的页大小
func WithPageSize(n uint64) Option {
	return func(s *eventService) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithRoundSource 订阅未指定 AfterRound 时以账本最新轮次为起点，不再扫描历史
func WithRoundSource(r RoundSource) Option {
	return func(s *eventService) {
		s.rounds = r
	}
}

// WithLogger 日志器
func WithLogger(l client.Logger) Option {
	return func(s *eventService) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService 创建 Event 服务
func NewService(source Source, opts ...Option) Service {
	s := &eventService{
		source:   source,
		interval: 4 * time.Second,
		pageSize: 100,
		maxPages: 50,
		logger:   client.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func validate(filters *EventFilters) error {
	if filters == nil || filters.AppID == 0 {
		return types.ValidationError("event filters require an application id")
	}
	return nil
}

// GetEvents 获取事件列表
func (s *eventService) GetEvents(ctx context.Context, filters *EventFilters) ([]*EventInfo, error) {
	if err := validate(filters); err != nil {
		return nil, err
	}
	events := []*EventInfo{}
	cur := &cursor{after: filters.AfterRound}
	_, err := s.scan(ctx, filters, cur, func(ev *EventInfo) bool {
		events = append(events, ev)
		return filters.Limit <= 0 || len(events) < filters.Limit
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// SubscribeEvents 订阅事件
//
// **流程**：
// 1. AfterRound 为 0 时确定起点：有 RoundSource 用账本最新轮次，否则扫描完历史取最大轮次
// 2. 按间隔轮询，查询以起点 +1 为最小轮次，推送新事件
// 3. 一轮读满 maxPages 页时保留翻页位置并立即继续，读完后起点前移到见到的最大轮次
// 4. 轮询失败只记录日志，下次从上次成功的页继续
func (s *eventService) SubscribeEvents(ctx context.Context, filters *EventFilters) (<-chan *EventInfo, error) {
	if err := validate(filters); err != nil {
		return nil, err
	}
	f := *filters

	cur, err := s.start(ctx, &f)
	if err != nil {
		return nil, err
	}

	out := make(chan *EventInfo, 10)
	go func() {
		defer close(out)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		emit := func(ev *EventInfo) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			for {
				more, err := s.scan(ctx, &f, cur, emit)
				if ctx.Err() != nil {
					return
				}
				if err != nil {
					s.logger.Warn("poll application events failed", "appId", f.AppID, "error", err)
					break
				}
				if !more {
					break
				}
			}
		}
	}()

	return out, nil
}

// cursor 订阅位置
//
// after 之前（含）的轮次已处理；next 非空时表示以 after+1 为最小轮次的查询尚未读完。
type cursor struct {
	after uint64
	next  string
	seen  uint64
}

func (c *cursor) minRound() uint64 {
	if c.after == 0 {
		return 0
	}
	return c.after + 1
}

// start 订阅起点
func (s *eventService) start(ctx context.Context, f *EventFilters) (*cursor, error) {
	if f.AfterRound > 0 {
		return &cursor{after: f.AfterRound}, nil
	}
	if s.rounds != nil {
		round, err := s.rounds.LastRound(ctx)
		if err != nil {
			return nil, err
		}
		return &cursor{after: round}, nil
	}

	cur := &cursor{}
	for {
		more, err := s.scan(ctx, f, cur, nil)
		if err != nil {
			return nil, err
		}
		if !more {
			return cur, nil
		}
	}
}

// scan 从 cur 继续读取最多 maxPages 页，把匹配的事件交给 emit
//
// 读完全部结果时前移 cur.after 并返回 more=false；读满页数时返回 more=true，
// cur.next 指向下一页。emit 返回 false 时立即停止，此时 cur 不再可用。
func (s *eventService) scan(ctx context.Context, f *EventFilters, cur *cursor, emit func(*EventInfo) bool) (bool, error) {
	for page := 0; page < s.maxPages; page++ {
		h, err := s.source.ListAppTransactions(ctx, f.AppID, cur.minRound(), s.pageSize, cur.next)
		if err != nil {
			return false, err
		}
		for _, c := range h.Calls {
			if c.ConfirmedRound <= cur.after {
				continue
			}
			if c.ConfirmedRound > cur.seen {
				cur.seen = c.ConfirmedRound
			}
			ev := toEvent(c)
			if ev == nil || !f.match(ev) || emit == nil {
				continue
			}
			if !emit(ev) {
				return false, nil
			}
		}
		if h.NextToken == "" || len(h.Calls) == 0 {
			if cur.seen > cur.after {
				cur.after = cur.seen
			}
			cur.next = ""
			return false, nil
		}
		cur.next = h.NextToken
	}
	return true, nil
}

// toEvent 无法解码的调用返回 nil
func toEvent(c state.AppCallRecord) *EventInfo {
	if c.Call == nil {
		return nil
	}
	return &EventInfo{
		Operation:    c.Call.Operation,
		TxID:         c.TxID,
		Sender:       c.Sender,
		Round:        c.ConfirmedRound,
		DocumentHash: c.Call.DocumentHash,
		TokenID:      c.Call.TokenID,
		Seller:       c.Call.Seller,
		Buyer:        c.Call.Buyer,
	}
}
