package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/algorand/go-algorand-sdk/v2/client/kmd"
	"github.com/algorand/go-algorand-sdk/v2/crypto"
	sdk "github.com/algorand/go-algorand-sdk/v2/types"

	"github.com/landverify/client-sdk-go/client"
	"github.com/landverify/client-sdk-go/types"
)

// KeyManager 密钥管理服务（KMD）的最小接口
type KeyManager interface {
	// WalletID 按名称查找钱包 ID
	WalletID(name string) (string, error)
	// OpenSession 打开钱包会话，返回句柄
	OpenSession(walletID, password string) (string, error)
	// ListAddresses 钱包内的地址
	ListAddresses(handle string) ([]string, error)
	// Sign 用钱包内密钥签名交易，返回签名后的字节
	Sign(handle, password string, tx sdk.Transaction) ([]byte, error)
	// CloseSession 释放会话句柄
	CloseSession(handle string) error
}

// errWalletNotFound 钱包名不存在
var errWalletNotFound = errors.New("wallet not found")

type kmdAdapter struct {
	c kmd.Client
}

// NewKeyManager 基于 KEYMGMT 配置创建 KMD 客户端
func NewKeyManager(cfg *client.NetworkConfig) (KeyManager, error) {
	c, err := kmd.MakeClient(cfg.Address(), cfg.Token)
	if err != nil {
		return nil, err
	}
	return &kmdAdapter{c: c}, nil
}

func (a *kmdAdapter) WalletID(name string) (string, error) {
	resp, err := a.c.ListWallets()
	if err != nil {
		return "", err
	}
	for _, w := range resp.Wallets {
		if w.Name == name {
			return w.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %s", errWalletNotFound, name)
}

func (a *kmdAdapter) OpenSession(walletID, password string) (string, error) {
	resp, err := a.c.InitWalletHandle(walletID, password)
	if err != nil {
		return "", err
	}
	return resp.WalletHandleToken, nil
}

func (a *kmdAdapter) ListAddresses(handle string) ([]string, error) {
	resp, err := a.c.ListKeys(handle)
	if err != nil {
		return nil, err
	}
	return resp.Addresses, nil
}

func (a *kmdAdapter) Sign(handle, password string, tx sdk.Transaction) ([]byte, error) {
	resp, err := a.c.SignTransaction(handle, password, tx)
	if err != nil {
		return nil, err
	}
	return resp.SignedTransaction, nil
}

func (a *kmdAdapter) CloseSession(handle string) error {
	_, err := a.c.ReleaseWalletHandle(handle)
	return err
}

// KMDSigner 通过密钥管理服务签名，进程内不持有私钥
type KMDSigner struct {
	km       KeyManager
	walletID string
	password string
	address  string

	mu sync.Mutex
}

// NewKMDSigner 创建 KMD 签名器
//
// **流程**：
// 1. 按名称查找钱包
// 2. 打开一次会话校验密码；address 为空时取钱包中第一个地址
// 3. 释放会话（每次签名重新打开）
func NewKMDSigner(km KeyManager, cfg *client.NetworkConfig, address string) (*KMDSigner, error) {
	walletID, err := km.WalletID(cfg.Wallet)
	if err != nil {
		return nil, delegateError("find wallet", err)
	}

	handle, err := km.OpenSession(walletID, cfg.Password)
	if err != nil {
		return nil, delegateError("open wallet", err)
	}
	defer func() { _ = km.CloseSession(handle) }()

	addrs, err := km.ListAddresses(handle)
	if err != nil {
		return nil, delegateError("list keys", err)
	}
	if address == "" {
		if len(addrs) == 0 {
			return nil, types.NewError(types.CodeDelegateUnavailable, "wallet has no keys").WithLayer(types.LayerWallet)
		}
		address = addrs[0]
	} else if !contains(addrs, address) {
		return nil, types.NewError(types.CodeWallet, "address not managed by wallet: "+address).WithLayer(types.LayerWallet)
	}

	return &KMDSigner{
		km:       km,
		walletID: walletID,
		password: cfg.Password,
		address:  address,
	}, nil
}

// Address 签名账户地址
func (s *KMDSigner) Address() string {
	return s.address
}

// SignTransaction 打开会话、签名、释放会话
func (s *KMDSigner) SignTransaction(ctx context.Context, unsigned *types.UnsignedTransaction) (*types.SignedTransaction, error) {
	if err := checkUnsigned(ctx, unsigned, s.address); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	handle, err := s.km.OpenSession(s.walletID, s.password)
	if err != nil {
		return nil, delegateError("open wallet", err)
	}
	defer func() { _ = s.km.CloseSession(handle) }()

	tx := unsigned.Txn()
	signed, err := s.km.Sign(handle, s.password, tx)
	if err != nil {
		return nil, delegateError("sign transaction", err)
	}
	return &types.SignedTransaction{TxID: crypto.GetTxID(tx), Bytes: signed}, nil
}

// delegateError 连接类错误归为 DelegateUnavailable，其余为 WalletError
func delegateError(op string, err error) error {
	code := types.CodeWallet
	if isUnavailable(err) {
		code = types.CodeDelegateUnavailable
	}
	return types.Wrap(code, fmt.Errorf("%s: %w", op, err)).WithLayer(types.LayerWallet)
}

func isUnavailable(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, s := range []string{
		"connection refused",
		"no such host",
		"timeout",
		"eof",
		"wallet not found",
		"http 5",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
