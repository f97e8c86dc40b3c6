package state

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/landverify/client-sdk-go/client"
)

// ViewCallTimeout 视图内单次合并查询的超时
const ViewCallTimeout = 30 * time.Second

// View 单次渲染内的查询缓存
//
// 同一视图内相同的查询只访问一次网络，并发请求合并为一次；
// 失败结果不缓存。视图之间不共享缓存。
type View struct {
	ledger Ledger
	group  singleflight.Group

	mu       sync.Mutex
	accounts map[string]*client.AccountState
	apps     map[uint64]*client.ApplicationState
}

func newView(ledger Ledger) *View {
	return &View{
		ledger:   ledger,
		accounts: make(map[string]*client.AccountState),
		apps:     make(map[uint64]*client.ApplicationState),
	}
}

// Account 账户状态
func (v *View) Account(ctx context.Context, address string) (*client.AccountState, error) {
	v.mu.Lock()
	if a, ok := v.accounts[address]; ok {
		v.mu.Unlock()
		return a, nil
	}
	v.mu.Unlock()

	res, err := v.do(ctx, "account:"+address, func(ctx context.Context) (interface{}, error) {
		v.mu.Lock()
		if a, ok := v.accounts[address]; ok {
			v.mu.Unlock()
			return a, nil
		}
		v.mu.Unlock()

		a, err := v.ledger.GetAccountState(ctx, address)
		if err != nil {
			return nil, err
		}
		v.mu.Lock()
		v.accounts[address] = a
		v.mu.Unlock()
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*client.AccountState), nil
}

// App 应用全局状态
func (v *View) App(ctx context.Context, appID uint64) (*client.ApplicationState, error) {
	v.mu.Lock()
	if a, ok := v.apps[appID]; ok {
		v.mu.Unlock()
		return a, nil
	}
	v.mu.Unlock()

	res, err := v.do(ctx, "app:"+strconv.FormatUint(appID, 10), func(ctx context.Context) (interface{}, error) {
		v.mu.Lock()
		if a, ok := v.apps[appID]; ok {
			v.mu.Unlock()
			return a, nil
		}
		v.mu.Unlock()

		a, err := v.ledger.GetApplicationState(ctx, appID)
		if err != nil {
			return nil, err
		}
		v.mu.Lock()
		v.apps[appID] = a
		v.mu.Unlock()
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*client.ApplicationState), nil
}

// do 合并同一 key 的并发查询
//
// 合并后的查询不随任何单个调用方取消，只受 ViewCallTimeout 限制；
// 调用方 ctx 结束时自己先返回，其他调用方仍拿到结果。
func (v *View) do(ctx context.Context, key string, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	ch := v.group.DoChan(key, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ViewCallTimeout)
		defer cancel()
		return fn(callCtx)
	})
	select {
	case r := <-ch:
		return r.Val, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// VerifiedHash 应用记录的已验证文档哈希
func (v *View) VerifiedHash(ctx context.Context, appID uint64) (string, error) {
	app, err := v.App(ctx, appID)
	if err != nil {
		return "", err
	}
	return verifiedHash(app)
}
