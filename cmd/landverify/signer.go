package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/landverify/client-sdk-go/client"
	"github.com/landverify/client-sdk-go/types"
	"github.com/landverify/client-sdk-go/wallet"
)

// 签名方式
const (
	signerMnemonic = "mnemonic"
	signerKeystore = "keystore"
	signerKMD      = "kmd"
)

func defaultKeystoreDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".landverify/keystore"
	}
	return filepath.Join(home, ".landverify", "keystore")
}

func addSignerFlags(flags *pflag.FlagSet) {
	flags.String("signer", signerMnemonic, "signing delegate: mnemonic (SIGNER_MNEMONIC), keystore or kmd (KEYMGMT_*)")
	flags.String("address", "", "signing address (keystore/kmd; kmd defaults to the first wallet key)")
	flags.String("keystore", defaultKeystoreDir(), "keystore directory")
	flags.BoolP("yes", "y", false, "sign without interactive confirmation")
}

func bindSignerFlags(v *viper.Viper, flags *pflag.FlagSet) {
	for flag, key := range map[string]string{
		"signer":   "SIGNER",
		"address":  "SIGNER_ADDRESS",
		"keystore": "KEYSTORE_DIR",
		"yes":      "yes",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
}

// signer 按 --signer 创建签名委托
//
// 非 --yes 时包装为交互确认签名器，用户拒绝即 UserRejected。
func (a *app) signer() (wallet.Signer, error) {
	var (
		inner wallet.Signer
		err   error
	)
	switch kind := strings.ToLower(a.v.GetString("SIGNER")); kind {
	case signerMnemonic:
		inner, err = a.mnemonicSigner()
	case signerKeystore:
		inner, err = a.keystoreSigner()
	case signerKMD:
		inner, err = a.kmdSigner()
	default:
		err = types.ValidationError("unknown signer %q (want mnemonic, keystore or kmd)", kind)
	}
	if err != nil {
		return nil, err
	}

	a.logger.Debug("signer ready", zap.String("address", inner.Address()))
	if a.v.GetBool("yes") {
		return inner, nil
	}
	return wallet.NewPromptSigner(inner, nil), nil
}

func (a *app) mnemonicSigner() (*wallet.AccountSigner, error) {
	phrase := strings.TrimSpace(a.v.GetString("SIGNER_MNEMONIC"))
	if phrase == "" {
		return nil, types.NewError(types.CodeDelegateUnavailable, "SIGNER_MNEMONIC is not set").WithLayer(types.LayerWallet)
	}
	return wallet.NewAccountSignerFromMnemonic(phrase)
}

func (a *app) keystoreSigner() (wallet.Signer, error) {
	address := a.v.GetString("SIGNER_ADDRESS")
	if address == "" {
		return nil, types.ValidationError("--address is required for the keystore signer")
	}
	km, err := wallet.NewKeystoreManager(a.v.GetString("KEYSTORE_DIR"))
	if err != nil {
		return nil, err
	}
	password, err := a.keystorePassword("Keystore password")
	if err != nil {
		return nil, err
	}
	return km.Load(address, password)
}

func (a *app) kmdSigner() (wallet.Signer, error) {
	cfg, err := a.resolver.Resolve(client.EndpointKeyMgmt)
	if err != nil {
		return nil, err
	}
	km, err := wallet.NewKeyManager(cfg)
	if err != nil {
		return nil, err
	}
	return wallet.NewKMDSigner(km, cfg, a.v.GetString("SIGNER_ADDRESS"))
}

// keystorePassword 优先读取 KEYSTORE_PASSWORD，否则在终端输入
func (a *app) keystorePassword(label string) (string, error) {
	if pw := a.v.GetString("KEYSTORE_PASSWORD"); pw != "" {
		return pw, nil
	}
	prompt := promptui.Prompt{
		Label: label,
		Mask:  '*',
		Validate: func(s string) error {
			if s == "" {
				return errors.New("password cannot be empty")
			}
			return nil
		},
	}
	pw, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return "", types.NewError(types.CodeUserRejected, "password entry cancelled").WithLayer(types.LayerWallet)
		}
		return "", types.Wrap(types.CodeDelegateUnavailable, err).WithLayer(types.LayerWallet)
	}
	return pw, nil
}
