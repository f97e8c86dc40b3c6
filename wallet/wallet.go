package wallet

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/mnemonic"

	"github.com/landverify/client-sdk-go/types"
)

// Signer 签名委托接口
//
// **说明**：
// - 由外部钱包能力提供，核心流程只持有签名后的字节
// - 用户拒绝时返回 UserRejected；钱包不可用时返回 DelegateUnavailable
type Signer interface {
	// Address 签名账户地址
	Address() string

	// SignTransaction 签名交易
	SignTransaction(ctx context.Context, unsigned *types.UnsignedTransaction) (*types.SignedTransaction, error)
}

// AccountSigner 本地账户签名器（用于测试、开发与命令行）
type AccountSigner struct {
	account crypto.Account
}

// NewAccountSigner 生成新账户
func NewAccountSigner() *AccountSigner {
	return &AccountSigner{account: crypto.GenerateAccount()}
}

// NewAccountSignerFromMnemonic 从 25 词助记词恢复账户
func NewAccountSignerFromMnemonic(phrase string) (*AccountSigner, error) {
	sk, err := mnemonic.ToPrivateKey(phrase)
	if err != nil {
		return nil, types.Wrap(types.CodeValidation, fmt.Errorf("decode mnemonic: %w", err)).WithLayer(types.LayerWallet)
	}
	return NewAccountSignerFromPrivateKey(sk)
}

// NewAccountSignerFromPrivateKey 从 ed25519 私钥创建签名器
func NewAccountSignerFromPrivateKey(sk ed25519.PrivateKey) (*AccountSigner, error) {
	if len(sk) != ed25519.PrivateKeySize {
		return nil, types.ValidationError("invalid private key length: expected %d bytes, got %d", ed25519.PrivateKeySize, len(sk))
	}
	account, err := crypto.AccountFromPrivateKey(sk)
	if err != nil {
		return nil, types.Wrap(types.CodeValidation, fmt.Errorf("parse private key: %w", err)).WithLayer(types.LayerWallet)
	}
	return &AccountSigner{account: account}, nil
}

// Address 账户地址
func (s *AccountSigner) Address() string {
	return s.account.Address.String()
}

// Mnemonic 导出助记词（谨慎使用）
func (s *AccountSigner) Mnemonic() (string, error) {
	return mnemonic.FromPrivateKey(s.account.PrivateKey)
}

// privateKey 仅供 keystore 持久化使用
func (s *AccountSigner) privateKey() ed25519.PrivateKey {
	return s.account.PrivateKey
}

// SignTransaction 签名交易
func (s *AccountSigner) SignTransaction(ctx context.Context, unsigned *types.UnsignedTransaction) (*types.SignedTransaction, error) {
	if err := checkUnsigned(ctx, unsigned, s.Address()); err != nil {
		return nil, err
	}

	txID, signed, err := crypto.SignTransaction(s.account.PrivateKey, unsigned.Txn())
	if err != nil {
		return nil, types.Wrap(types.CodeWallet, fmt.Errorf("sign transaction: %w", err)).WithLayer(types.LayerWallet)
	}
	return &types.SignedTransaction{TxID: txID, Bytes: signed}, nil
}

// checkUnsigned 签名前的公共检查
func checkUnsigned(ctx context.Context, unsigned *types.UnsignedTransaction, address string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if unsigned == nil {
		return types.NewError(types.CodeWallet, "nothing to sign").WithLayer(types.LayerWallet)
	}
	if unsigned.Sender != address {
		return types.NewError(types.CodeWallet, fmt.Sprintf("signer %s cannot sign for sender %s", address, unsigned.Sender)).WithLayer(types.LayerWallet)
	}
	return nil
}
