package utils

import (
	"strings"
	"testing"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidAddress(t *testing.T) {
	valid := crypto.GenerateAccount().Address.String()
	// 修改公钥部分的一个字符破坏校验和
	swapped := byte('A')
	if valid[5] == 'A' {
		swapped = 'B'
	}
	badChecksum := valid[:5] + string(swapped) + valid[6:]

	tests := []struct {
		name string
		addr string
		want bool
	}{
		{name: "valid address", addr: valid, want: true},
		{name: "empty", addr: "", want: false},
		{name: "not an address", addr: "not-an-address", want: false},
		{name: "bad checksum", addr: badChecksum, want: false},
		{name: "lowercase", addr: strings.ToLower(valid), want: false},
		{name: "too long", addr: valid + "A", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidAddress(tt.addr))
		})
	}
}

func TestPublicKeyRoundTrip(t *testing.T) {
	acct := crypto.GenerateAccount()

	pk, err := PublicKey(acct.Address.String())
	require.NoError(t, err)
	assert.Len(t, pk, 32)
	assert.Equal(t, []byte(acct.PublicKey), pk)

	addr, err := AddressFromPublicKey(pk)
	require.NoError(t, err)
	assert.Equal(t, acct.Address.String(), addr)
}

func TestAddressFromPublicKey_InvalidLength(t *testing.T) {
	_, err := AddressFromPublicKey(make([]byte, 20))
	assert.Error(t, err)
}

func TestEllipseAddress(t *testing.T) {
	addr := crypto.GenerateAccount().Address.String()

	got := EllipseAddress(addr, 6)
	assert.Equal(t, addr[:6]+"..."+addr[len(addr)-6:], got)
	assert.Equal(t, "short", EllipseAddress("short", 6))
}

func TestExplorerAccountURL(t *testing.T) {
	assert.Equal(t, "https://lora.algokit.io/localnet/account/ADDR/", ExplorerAccountURL("", "ADDR"))
	assert.Equal(t, "https://lora.algokit.io/testnet/account/ADDR/", ExplorerAccountURL("TestNet", "ADDR"))
}
