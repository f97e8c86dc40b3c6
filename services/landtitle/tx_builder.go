package landtitle

import (
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/transaction"
	sdk "github.com/algorand/go-algorand-sdk/v2/types"

	"github.com/landverify/client-sdk-go/types"
	"github.com/landverify/client-sdk-go/utils"
)

// EncodeArgs 按固定顺序编码应用调用参数
//
// **格式**：
// - submit_verification: [tag, utf8(documentHash)]
// - transfer_land_token: [tag, uint64BE(tokenId), pk(sender), pk(buyer)]
func EncodeArgs(intent *Intent, sender string) ([][]byte, error) {
	op, err := intent.Operation()
	if err != nil {
		return nil, err
	}

	switch op {
	case utils.OpSubmitVerification:
		return [][]byte{
			utils.EncodeString(op),
			utils.EncodeString(intent.DocumentHash),
		}, nil

	case utils.OpTransferLandToken:
		senderPK, err := utils.PublicKey(sender)
		if err != nil {
			return nil, types.ValidationError("invalid sender address: %v", err)
		}
		buyerPK, err := utils.PublicKey(intent.Transfer.BuyerAddress)
		if err != nil {
			return nil, types.ValidationError("invalid buyer address: %v", err)
		}
		return [][]byte{
			utils.EncodeString(op),
			utils.EncodeUint64(intent.Transfer.TokenID),
			senderPK,
			buyerPK,
		}, nil
	}
	return nil, types.NewError(types.CodeBuild, "unsupported operation: "+op)
}

// Build 构建未签名的应用调用交易
//
// **流程**：
// 1. 按意图选择操作标签（歧义意图返回 AmbiguousIntent）
// 2. 按固定顺序编码参数
// 3. 原样附加网络参数（手续费、有效轮次、创世信息）
//
// 纯数据转换，无副作用。
func Build(intent *Intent, sender string, appID uint64, params types.NetworkParams) (*types.UnsignedTransaction, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}
	senderAddr, err := utils.DecodeAddress(sender)
	if err != nil {
		return nil, types.ValidationError("invalid sender address: %v", err)
	}
	if appID == 0 {
		return nil, types.NewError(types.CodeBuild, "application id must be non-zero")
	}

	args, err := EncodeArgs(intent, sender)
	if err != nil {
		return nil, err
	}
	op := string(args[0])

	txn, err := transaction.MakeApplicationNoOpTx(
		appID,
		args,
		nil, nil, nil,
		params,
		senderAddr,
		nil,
		sdk.Digest{},
		[32]byte{},
		sdk.ZeroAddress,
	)
	if err != nil {
		return nil, types.Wrap(types.CodeBuild, fmt.Errorf("build application call: %w", err))
	}

	return types.NewUnsignedTransaction(sender, appID, op, args, params, txn), nil
}
