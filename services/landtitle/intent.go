package landtitle

import (
	"strings"

	"github.com/landverify/client-sdk-go/types"
	"github.com/landverify/client-sdk-go/utils"
)

// Intent 一次用户操作的交易意图
//
// 只能是以下两种之一：
// - 提交验证：DocumentHash 非空
// - 转移所有权：Transfer 非空
//
// 两者同时存在时为歧义意图，校验与构建均拒绝。
type Intent struct {
	DocumentHash string         `json:"documentHash,omitempty"`
	Transfer     *TransferOwner `json:"transfer,omitempty"`
}

// TransferOwner 所有权转移参数
type TransferOwner struct {
	TokenID      uint64 `json:"tokenId"`
	BuyerAddress string `json:"buyerAddress"`
}

// SubmitVerification 创建提交验证意图
func SubmitVerification(documentHash string) *Intent {
	return &Intent{DocumentHash: documentHash}
}

// TransferOwnership 创建所有权转移意图
func TransferOwnership(tokenID uint64, buyerAddress string) *Intent {
	return &Intent{Transfer: &TransferOwner{TokenID: tokenID, BuyerAddress: buyerAddress}}
}

func (i *Intent) hasHash() bool {
	return i.DocumentHash != ""
}

func (i *Intent) hasTransfer() bool {
	return i.Transfer != nil && (i.Transfer.TokenID != 0 || i.Transfer.BuyerAddress != "")
}

// Operation 返回意图对应的操作标签
func (i *Intent) Operation() (string, error) {
	if i == nil {
		return "", types.ValidationError("intent is required")
	}
	switch {
	case i.hasHash() && i.hasTransfer():
		return "", types.NewError(types.CodeAmbiguousIntent, "both a document hash and a transfer pair are set")
	case i.hasHash():
		return utils.OpSubmitVerification, nil
	case i.hasTransfer():
		return utils.OpTransferLandToken, nil
	default:
		return "", types.ValidationError("intent has neither a document hash nor a transfer")
	}
}

// Validate 校验意图，不访问网络
//
// **规则**：
// - 文档哈希不能为空白
// - 代币 ID 必须非零
// - 买方地址格式必须正确
func (i *Intent) Validate() error {
	op, err := i.Operation()
	if err != nil {
		return err
	}

	switch op {
	case utils.OpSubmitVerification:
		if strings.TrimSpace(i.DocumentHash) == "" {
			return types.ValidationError("document hash must not be blank")
		}
	case utils.OpTransferLandToken:
		if i.Transfer.TokenID == 0 {
			return types.ValidationError("token id must be non-zero")
		}
		if !utils.IsValidAddress(i.Transfer.BuyerAddress) {
			return types.ValidationError("invalid buyer address: %q", i.Transfer.BuyerAddress)
		}
	}
	return nil
}
