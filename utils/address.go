package utils

import (
	"fmt"
	"strings"

	sdk "github.com/algorand/go-algorand-sdk/v2/types"
)

// AddressLength 账户地址字符串长度（base32，32 字节公钥 + 4 字节校验和）
const AddressLength = 58

// IsValidAddress 校验账户地址格式
//
// **说明**：
// - 纯格式校验，不访问网络
// - 长度、base32 字符集与校验和均需正确
func IsValidAddress(addr string) bool {
	if len(addr) != AddressLength {
		return false
	}
	_, err := sdk.DecodeAddress(addr)
	return err == nil
}

// DecodeAddress 解析地址字符串为 32 字节公钥
func DecodeAddress(addr string) (sdk.Address, error) {
	addr = strings.TrimSpace(addr)
	if len(addr) != AddressLength {
		return sdk.Address{}, fmt.Errorf("invalid address length: expected %d characters, got %d", AddressLength, len(addr))
	}
	decoded, err := sdk.DecodeAddress(addr)
	if err != nil {
		return sdk.Address{}, fmt.Errorf("invalid address: %w", err)
	}
	return decoded, nil
}

// PublicKey 返回地址对应的原始公钥字节（32 字节）
func PublicKey(addr string) ([]byte, error) {
	decoded, err := DecodeAddress(addr)
	if err != nil {
		return nil, err
	}
	pk := make([]byte, len(decoded))
	copy(pk, decoded[:])
	return pk, nil
}

// AddressFromPublicKey 将 32 字节公钥编码为地址字符串
func AddressFromPublicKey(pk []byte) (string, error) {
	var a sdk.Address
	if len(pk) != len(a) {
		return "", fmt.Errorf("invalid public key length: expected %d bytes, got %d", len(a), len(pk))
	}
	copy(a[:], pk)
	return a.String(), nil
}

// EllipseAddress 缩略显示地址，例如 "ABCDEF...UVWXYZ"
func EllipseAddress(addr string, width int) string {
	if width <= 0 {
		width = 6
	}
	if len(addr) <= width*2 {
		return addr
	}
	return addr[:width] + "..." + addr[len(addr)-width:]
}

// ExplorerAccountURL 区块浏览器中的账户链接
// network 为空时视为 localnet
func ExplorerAccountURL(network, addr string) string {
	return fmt.Sprintf("https://lora.algokit.io/%s/account/%s/", NetworkName(network), addr)
}

// NetworkName 规范化网络名称
func NetworkName(network string) string {
	if network == "" {
		return "localnet"
	}
	return strings.ToLower(network)
}
