package client

// DefaultConfirmationRounds 默认确认轮询轮次
const DefaultConfirmationRounds uint64 = 4

// Config 客户端配置
type Config struct {
	// Timeout 单次 HTTP 请求超时时间（秒）
	Timeout int

	// ConfirmationRounds 等待确认的最大轮次（0 表示使用默认值 4）
	ConfirmationRounds uint64

	// Retry 只读查询的重试配置（nil 表示不重试）
	// 提交与确认从不自动重试
	Retry *RetryConfig

	// 调试模式
	Debug bool

	// 日志器（可选）
	Logger Logger
}

// Logger 日志接口
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Timeout:            30,
		ConfirmationRounds: DefaultConfirmationRounds,
		Retry:              DefaultRetryConfig(),
		Debug:              false,
	}
}

// normalize 填充缺省值
func (c *Config) normalize() *Config {
	if c == nil {
		c = DefaultConfig()
	}
	out := *c
	if out.Timeout <= 0 {
		out.Timeout = 30
	}
	if out.ConfirmationRounds == 0 {
		out.ConfirmationRounds = DefaultConfirmationRounds
	}
	if out.Logger == nil {
		out.Logger = NopLogger()
	}
	return &out
}
