package client

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/landverify/client-sdk-go/types"
)

// EndpointKind 端点类型
type EndpointKind string

const (
	// EndpointLedger 账本节点（账户、参数、提交、确认）
	EndpointLedger EndpointKind = "LEDGER"
	// EndpointIndex 索引节点（历史查询）
	EndpointIndex EndpointKind = "INDEX"
	// EndpointKeyMgmt 密钥管理服务（签名委托）
	EndpointKeyMgmt EndpointKind = "KEYMGMT"
)

// DefaultNetwork 未配置网络名时使用的默认值
const DefaultNetwork = "testnet"

// NetworkConfig 解析后的连接参数，解析后只读
type NetworkConfig struct {
	Kind    EndpointKind
	Server  string
	Port    string
	Token   string
	Network string

	// 仅 KEYMGMT 使用
	Wallet   string
	Password string

	// Public 公共端点允许 Token 为空
	Public bool
}

// Address 返回 server[:port] 形式的节点地址
func (c *NetworkConfig) Address() string {
	server := strings.TrimRight(c.Server, "/")
	if c.Port == "" {
		return server
	}
	return server + ":" + c.Port
}

// Resolver 网络配置解析器
//
// **说明**：
// - 从进程级外部配置（环境变量）读取，进程生命周期内不变
// - 缺失必填项时立即失败，错误中列出所有缺失的变量
// - 不做重试
type Resolver struct {
	v      *viper.Viper
	public map[EndpointKind]bool
}

// ResolverOption 解析器选项
type ResolverOption func(*Resolver)

// WithPublic 将端点标记为公共端点，Token 可以为空
func WithPublic(kinds ...EndpointKind) ResolverOption {
	return func(r *Resolver) {
		for _, k := range kinds {
			r.public[k] = true
		}
	}
}

// NewResolver 创建解析器；v 为 nil 时读取环境变量
func NewResolver(v *viper.Viper, opts ...ResolverOption) *Resolver {
	if v == nil {
		v = viper.New()
		v.AutomaticEnv()
	}
	r := &Resolver{
		v:      v,
		public: make(map[EndpointKind]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// key 拼接变量名，例如 LEDGER_SERVER
func key(kind EndpointKind, field string) string {
	return string(kind) + "_" + field
}

func (r *Resolver) get(name string) string {
	return strings.TrimSpace(r.v.GetString(name))
}

// isPublic 端点是否允许空 Token
// KEYMGMT 总是需要 Token
func (r *Resolver) isPublic(kind EndpointKind) bool {
	if kind == EndpointKeyMgmt {
		return false
	}
	return r.public[kind] || r.v.GetBool(key(kind, "PUBLIC"))
}

// Resolve 解析指定端点的连接参数
func (r *Resolver) Resolve(kind EndpointKind) (*NetworkConfig, error) {
	switch kind {
	case EndpointLedger, EndpointIndex, EndpointKeyMgmt:
	default:
		return nil, types.ValidationError("unknown endpoint kind %q", kind)
	}

	cfg := &NetworkConfig{
		Kind:    kind,
		Server:  r.get(key(kind, "SERVER")),
		Port:    r.get(key(kind, "PORT")),
		Token:   r.get(key(kind, "TOKEN")),
		Network: r.get(key(EndpointLedger, "NETWORK")),
		Public:  r.isPublic(kind),
	}
	if cfg.Network == "" {
		cfg.Network = DefaultNetwork
	}

	var missing []string
	if cfg.Server == "" {
		missing = append(missing, key(kind, "SERVER"))
	}
	if cfg.Token == "" && !cfg.Public {
		missing = append(missing, key(kind, "TOKEN"))
	}

	if kind == EndpointKeyMgmt {
		cfg.Wallet = r.get(key(kind, "WALLET"))
		cfg.Password = r.v.GetString(key(kind, "PASSWORD"))
		if cfg.Wallet == "" {
			missing = append(missing, key(kind, "WALLET"))
		}
		if cfg.Password == "" {
			missing = append(missing, key(kind, "PASSWORD"))
		}
	}

	if len(missing) > 0 {
		return nil, types.ConfigMissingError(missing...)
	}
	return cfg, nil
}

// Settings 应用级设置
type Settings struct {
	// AppID 已部署应用的 ID
	AppID uint64
	// ConfirmationRounds 确认轮询轮次
	ConfirmationRounds uint64
	// APIBaseURL 外部协作服务地址（房产列表、文档认证）
	APIBaseURL string
}

// DefaultAPIBaseURL 外部协作服务默认地址
const DefaultAPIBaseURL = "http://localhost:5000"

// Settings 读取应用级设置
// APP_ID 缺失时返回 ConfigMissing
func (r *Resolver) Settings() (*Settings, error) {
	if r.get("APP_ID") == "" {
		return nil, types.ConfigMissingError("APP_ID")
	}
	appID := r.v.GetUint64("APP_ID")
	if appID == 0 {
		return nil, types.ValidationError("APP_ID must be a positive integer")
	}

	rounds := r.v.GetUint64("CONFIRMATION_ROUNDS")
	if rounds == 0 {
		rounds = DefaultConfirmationRounds
	}

	base := r.get("API_BASE_URL")
	if base == "" {
		base = DefaultAPIBaseURL
	}

	return &Settings{
		AppID:              appID,
		ConfirmationRounds: rounds,
		APIBaseURL:         base,
	}, nil
}
