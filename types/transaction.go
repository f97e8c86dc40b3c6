package types

import (
	sdk "github.com/algorand/go-algorand-sdk/v2/types"
)

// NetworkParams 当前网络参数（手续费、有效轮次、创世信息）
type NetworkParams = sdk.SuggestedParams

// UnsignedTransaction 未签名的应用调用交易
// 构建后不可修改，只能被签名一次
type UnsignedTransaction struct {
	Sender        string
	ApplicationID uint64
	Operation     string
	Args          [][]byte
	Params        NetworkParams

	txn sdk.Transaction
}

// NewUnsignedTransaction 封装已构建的 SDK 交易
func NewUnsignedTransaction(sender string, appID uint64, operation string, args [][]byte, params NetworkParams, txn sdk.Transaction) *UnsignedTransaction {
	return &UnsignedTransaction{
		Sender:        sender,
		ApplicationID: appID,
		Operation:     operation,
		Args:          args,
		Params:        params,
		txn:           txn,
	}
}

// Txn 返回底层 SDK 交易（值拷贝）
func (u *UnsignedTransaction) Txn() sdk.Transaction {
	return u.txn
}

// SignedTransaction 签名后的交易字节与交易 ID
type SignedTransaction struct {
	TxID  string
	Bytes []byte
}

// ConfirmationResult 确认结果
type ConfirmationResult struct {
	TxID           string `json:"txId"`
	ConfirmedRound uint64 `json:"confirmedRound"`
}
