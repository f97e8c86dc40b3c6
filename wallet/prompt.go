package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"

	"github.com/landverify/client-sdk-go/types"
	"github.com/landverify/client-sdk-go/utils"
)

// ConfirmFunc 向用户展示签名请求，返回是否同意
type ConfirmFunc func(label string) (bool, error)

// PromptSigner 签名前要求用户确认，拒绝时返回 UserRejected
type PromptSigner struct {
	inner   Signer
	confirm ConfirmFunc
}

// NewPromptSigner 包装签名器；confirm 为 nil 时使用终端确认
func NewPromptSigner(inner Signer, confirm ConfirmFunc) *PromptSigner {
	if confirm == nil {
		confirm = TerminalConfirm
	}
	return &PromptSigner{inner: inner, confirm: confirm}
}

// TerminalConfirm 使用 promptui 在终端询问 y/N
func TerminalConfirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	_, err := prompt.Run()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, promptui.ErrAbort), errors.Is(err, promptui.ErrInterrupt), errors.Is(err, promptui.ErrEOF):
		return false, nil
	default:
		return false, err
	}
}

// Address 签名账户地址
func (s *PromptSigner) Address() string {
	return s.inner.Address()
}

// SignTransaction 用户确认后委托给内部签名器
func (s *PromptSigner) SignTransaction(ctx context.Context, unsigned *types.UnsignedTransaction) (*types.SignedTransaction, error) {
	if err := checkUnsigned(ctx, unsigned, s.Address()); err != nil {
		return nil, err
	}

	ok, err := s.confirm(describe(unsigned))
	if err != nil {
		return nil, types.Wrap(types.CodeDelegateUnavailable, fmt.Errorf("confirm prompt: %w", err)).WithLayer(types.LayerWallet)
	}
	if !ok {
		return nil, types.NewError(types.CodeUserRejected, "user declined to sign").WithLayer(types.LayerWallet)
	}
	return s.inner.SignTransaction(ctx, unsigned)
}

// describe 签名请求摘要
func describe(u *types.UnsignedTransaction) string {
	return fmt.Sprintf("Sign %s for app %d from %s", u.Operation, u.ApplicationID, utils.EllipseAddress(u.Sender, 6))
}
