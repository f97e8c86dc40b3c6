package utils

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// 应用调用的操作标签（第一个参数）
const (
	OpSubmitVerification = "submit_verification"
	OpTransferLandToken  = "transfer_land_token"
)

// EncodeUint64 大端编码 uint64（8 字节）
func EncodeUint64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

// DecodeUint64 解码 8 字节大端整数
func DecodeUint64(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("uint64 argument must be 8 bytes, got %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

// EncodeString UTF-8 编码字符串参数
func EncodeString(s string) []byte {
	return []byte(s)
}

// AppCall 解码后的应用调用参数
type AppCall struct {
	Operation    string `json:"operation"`
	DocumentHash string `json:"documentHash,omitempty"`
	TokenID      uint64 `json:"tokenId,omitempty"`
	Seller       string `json:"seller,omitempty"`
	Buyer        string `json:"buyer,omitempty"`
}

// DecodeAppArgs 按操作标签解码应用调用参数
//
// **格式**：
// - submit_verification: [tag, utf8(documentHash)]
// - transfer_land_token: [tag, uint64BE(tokenId), pk(seller), pk(buyer)]
// - 其他标签只返回 Operation
func DecodeAppArgs(args [][]byte) (*AppCall, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("application call has no arguments")
	}
	if !utf8.Valid(args[0]) {
		return nil, fmt.Errorf("operation tag is not valid UTF-8")
	}

	call := &AppCall{Operation: string(args[0])}
	switch call.Operation {
	case OpSubmitVerification:
		if len(args) != 2 {
			return nil, fmt.Errorf("%s expects 2 arguments, got %d", call.Operation, len(args))
		}
		call.DocumentHash = string(args[1])

	case OpTransferLandToken:
		if len(args) != 4 {
			return nil, fmt.Errorf("%s expects 4 arguments, got %d", call.Operation, len(args))
		}
		tokenID, err := DecodeUint64(args[1])
		if err != nil {
			return nil, fmt.Errorf("decode token id: %w", err)
		}
		seller, err := AddressFromPublicKey(args[2])
		if err != nil {
			return nil, fmt.Errorf("decode seller: %w", err)
		}
		buyer, err := AddressFromPublicKey(args[3])
		if err != nil {
			return nil, fmt.Errorf("decode buyer: %w", err)
		}
		call.TokenID = tokenID
		call.Seller = seller
		call.Buyer = buyer
	}

	return call, nil
}
