package client

import (
	"encoding/base64"
	"sort"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/common/models"
)

// AccountState 账户状态
type AccountState struct {
	Address    string `json:"address"`
	Balance    uint64 `json:"balance"`
	MinBalance uint64 `json:"minBalance"`
	Status     string `json:"status,omitempty"`
	AuthAddr   string `json:"authAddr,omitempty"`
	Round      uint64 `json:"round"`

	Assets         []AssetHolding  `json:"assets,omitempty"`
	AppsLocalState []AppLocalState `json:"appsLocalState,omitempty"`
	CreatedApps    []uint64        `json:"createdApps,omitempty"`
}

// AssetHolding 账户持有的资产
type AssetHolding struct {
	AssetID uint64 `json:"assetId"`
	Amount  uint64 `json:"amount"`
	Frozen  bool   `json:"frozen"`
}

// AppLocalState 账户在某个应用中的本地状态
type AppLocalState struct {
	AppID uint64                `json:"appId"`
	State map[string]StateValue `json:"state,omitempty"`
}

// StateValue 应用状态中的一个值
type StateValue struct {
	// Type "bytes" 或 "uint"
	Type  string `json:"type"`
	Bytes []byte `json:"bytes,omitempty"`
	Uint  uint64 `json:"uint,omitempty"`
}

// 状态值类型
const (
	StateTypeBytes = "bytes"
	StateTypeUint  = "uint"
)

// ApplicationState 应用全局状态
type ApplicationState struct {
	AppID   uint64                `json:"appId"`
	Creator string                `json:"creator"`
	Address string                `json:"address"`
	Global  map[string]StateValue `json:"global"`
}

// Keys 返回排序后的全局状态键
func (s *ApplicationState) Keys() []string {
	keys := make([]string, 0, len(s.Global))
	for k := range s.Global {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TransactionInfo 索引节点返回的应用调用记录
type TransactionInfo struct {
	TxID           string   `json:"txId"`
	Sender         string   `json:"sender"`
	ConfirmedRound uint64   `json:"confirmedRound"`
	RoundTime      uint64   `json:"roundTime"`
	AppID          uint64   `json:"appId"`
	Args           [][]byte `json:"args,omitempty"`
}

// accountFromModel 转换 SDK 账户模型
func accountFromModel(m models.Account) *AccountState {
	out := &AccountState{
		Address:    m.Address,
		Balance:    m.Amount,
		MinBalance: m.MinBalance,
		Status:     m.Status,
		AuthAddr:   m.AuthAddr,
		Round:      m.Round,
	}
	for _, a := range m.Assets {
		out.Assets = append(out.Assets, AssetHolding{
			AssetID: a.AssetId,
			Amount:  a.Amount,
			Frozen:  a.IsFrozen,
		})
	}
	for _, ls := range m.AppsLocalState {
		out.AppsLocalState = append(out.AppsLocalState, AppLocalState{
			AppID: ls.Id,
			State: decodeTealState(ls.KeyValue),
		})
	}
	for _, app := range m.CreatedApps {
		out.CreatedApps = append(out.CreatedApps, app.Id)
	}
	return out
}

// decodeTealState 解码节点返回的键值对（键与字节值均为 base64）
// 无法解码的条目被跳过
func decodeTealState(kvs []models.TealKeyValue) map[string]StateValue {
	out := make(map[string]StateValue, len(kvs))
	for _, kv := range kvs {
		k, err := base64.StdEncoding.DecodeString(kv.Key)
		if err != nil {
			continue
		}
		switch kv.Value.Type {
		case 1:
			b, err := base64.StdEncoding.DecodeString(kv.Value.Bytes)
			if err != nil {
				continue
			}
			out[string(k)] = StateValue{Type: StateTypeBytes, Bytes: b}
		case 2:
			out[string(k)] = StateValue{Type: StateTypeUint, Uint: kv.Value.Uint}
		}
	}
	return out
}
