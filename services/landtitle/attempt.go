package landtitle

import (
	"github.com/landverify/client-sdk-go/types"
)

// Attempt 一次提交尝试的结果
//
// 进入终止状态时完成；Wait 的 ctx 结束只放弃等待，不取消尝试。
type Attempt = types.ConfirmationFuture

func newAttempt() *Attempt {
	return types.NewConfirmationFuture()
}
