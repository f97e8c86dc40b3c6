package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/crypto/scrypt"

	"github.com/landverify/client-sdk-go/types"
	"github.com/landverify/client-sdk-go/utils"
)

// Keystore Keystore 文件结构
type Keystore struct {
	Version int    `json:"version"`
	ID      string `json:"id"`
	Address string `json:"address"`
	Crypto  Crypto `json:"crypto"`
}

// Crypto 加密信息
type Crypto struct {
	Cipher       string       `json:"cipher"`
	CipherText   string       `json:"ciphertext"`
	CipherParams CipherParams `json:"cipherparams"`
	KDF          string       `json:"kdf"`
	KDFParams    KDFParams    `json:"kdfparams"`
	MAC          string       `json:"mac"`
}

// CipherParams 加密参数
type CipherParams struct {
	IV string `json:"iv"`
}

// KDFParams scrypt 参数
type KDFParams struct {
	N     int    `json:"n"`
	R     int    `json:"r"`
	P     int    `json:"p"`
	DKLen int    `json:"dklen"`
	Salt  string `json:"salt"`
}

// scrypt 参数
const (
	StandardScryptN = 1 << 18
	LightScryptN    = 1 << 12
	scryptR         = 8
	scryptP         = 1
	scryptDKLen     = 32
)

// KeystoreManager Keystore 管理器
type KeystoreManager struct {
	keystoreDir string
	scryptN     int
}

// KeystoreOption 管理器选项
type KeystoreOption func(*KeystoreManager)

// WithScryptN 设置 scrypt 成本参数（测试时使用 LightScryptN）
func WithScryptN(n int) KeystoreOption {
	return func(km *KeystoreManager) {
		km.scryptN = n
	}
}

// NewKeystoreManager 创建 Keystore 管理器
func NewKeystoreManager(keystoreDir string, opts ...KeystoreOption) (*KeystoreManager, error) {
	if err := os.MkdirAll(keystoreDir, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}

	km := &KeystoreManager{
		keystoreDir: keystoreDir,
		scryptN:     StandardScryptN,
	}
	for _, opt := range opts {
		opt(km)
	}
	return km, nil
}

func (km *KeystoreManager) path(address string) string {
	return filepath.Join(km.keystoreDir, fmt.Sprintf("%s.json", address))
}

// Save 将签名器的私钥加密保存
//
// **流程**：
// 1. 生成随机 salt 与 IV
// 2. scrypt 派生密钥
// 3. AES-128-CTR 加密私钥
// 4. 计算 MAC 并写入文件
func (km *KeystoreManager) Save(signer *AccountSigner, password string) (string, error) {
	if password == "" {
		return "", types.ValidationError("keystore password is required")
	}

	salt := make([]byte, 32)
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	key, err := scrypt.Key([]byte(password), salt, km.scryptN, scryptR, scryptP, scryptDKLen)
	if err != nil {
		return "", fmt.Errorf("derive key: %w", err)
	}

	ciphertext, err := aesCTR(key[:16], signer.privateKey().Seed(), iv)
	if err != nil {
		return "", fmt.Errorf("encrypt private key: %w", err)
	}

	ks := &Keystore{
		Version: 1,
		ID:      uuid.New().String(),
		Address: signer.Address(),
		Crypto: Crypto{
			Cipher:     "aes-128-ctr",
			CipherText: hex.EncodeToString(ciphertext),
			CipherParams: CipherParams{
				IV: hex.EncodeToString(iv),
			},
			KDF: "scrypt",
			KDFParams: KDFParams{
				N:     km.scryptN,
				R:     scryptR,
				P:     scryptP,
				DKLen: scryptDKLen,
				Salt:  hex.EncodeToString(salt),
			},
			MAC: hex.EncodeToString(computeMAC(key, ciphertext)),
		},
	}

	data, err := json.MarshalIndent(ks, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode keystore: %w", err)
	}
	keystorePath := km.path(ks.Address)
	if err := os.WriteFile(keystorePath, data, 0600); err != nil {
		return "", fmt.Errorf("write keystore file: %w", err)
	}
	return keystorePath, nil
}

// Load 解密 Keystore 并返回签名器
func (km *KeystoreManager) Load(address string, password string) (*AccountSigner, error) {
	if !utils.IsValidAddress(address) {
		return nil, types.ValidationError("invalid account address: %q", address)
	}

	data, err := os.ReadFile(km.path(address))
	if err != nil {
		return nil, types.Wrap(types.CodeDelegateUnavailable, fmt.Errorf("read keystore file: %w", err)).WithLayer(types.LayerWallet)
	}

	var ks Keystore
	if err := json.Unmarshal(data, &ks); err != nil {
		return nil, types.Wrap(types.CodeWallet, fmt.Errorf("parse keystore: %w", err)).WithLayer(types.LayerWallet)
	}
	if ks.Crypto.KDF != "scrypt" {
		return nil, types.NewError(types.CodeWallet, "unsupported kdf: "+ks.Crypto.KDF).WithLayer(types.LayerWallet)
	}

	salt, err := hex.DecodeString(ks.Crypto.KDFParams.Salt)
	if err != nil {
		return nil, fmt.Errorf("decode salt: %w", err)
	}
	iv, err := hex.DecodeString(ks.Crypto.CipherParams.IV)
	if err != nil {
		return nil, fmt.Errorf("decode iv: %w", err)
	}
	ciphertext, err := hex.DecodeString(ks.Crypto.CipherText)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	actualMAC, err := hex.DecodeString(ks.Crypto.MAC)
	if err != nil {
		return nil, fmt.Errorf("decode mac: %w", err)
	}

	p := ks.Crypto.KDFParams
	key, err := scrypt.Key([]byte(password), salt, p.N, p.R, p.P, p.DKLen)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	if subtle.ConstantTimeCompare(computeMAC(key, ciphertext), actualMAC) != 1 {
		return nil, types.NewError(types.CodeWallet, "invalid password").WithLayer(types.LayerWallet)
	}

	seed, err := aesCTR(key[:16], ciphertext, iv)
	if err != nil {
		return nil, fmt.Errorf("decrypt private key: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, types.NewError(types.CodeWallet, "corrupt keystore").WithLayer(types.LayerWallet)
	}

	signer, err := NewAccountSignerFromPrivateKey(ed25519.NewKeyFromSeed(seed))
	if err != nil {
		return nil, err
	}
	if signer.Address() != ks.Address {
		return nil, types.NewError(types.CodeWallet, "keystore address mismatch").WithLayer(types.LayerWallet)
	}
	return signer, nil
}

// aesCTR AES-CTR 加解密（对称）
func aesCTR(key, in, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(in))
	cipher.NewCTR(block, iv).XORKeyStream(out, in)
	return out, nil
}

// computeMAC sha256(key[16:32] || ciphertext)
func computeMAC(key, ciphertext []byte) []byte {
	h := sha256.New()
	h.Write(key[16:32])
	h.Write(ciphertext)
	return h.Sum(nil)
}
