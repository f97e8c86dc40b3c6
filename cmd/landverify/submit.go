package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/landverify/client-sdk-go/services/landtitle"
	"github.com/landverify/client-sdk-go/types"
	"github.com/landverify/client-sdk-go/utils"
)

func newVerifyCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "verify [document-hash]",
		Short: "Submit a document hash for verification",
		Long: `Submit a document hash to the land title application and wait for confirmation.

Examples:
  # Submit a known hash
  landverify verify QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG

  # Hash a local file first
  landverify verify --file deed.pdf`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var hash string
			switch {
			case file != "" && len(args) > 0:
				return types.NewError(types.CodeAmbiguousIntent, "pass either a document hash or --file, not both")
			case file != "":
				h, err := utils.HashDocument(file, func(p utils.FileProgress) {
					if !a.jsonMode {
						dimColor.Fprintf(os.Stderr, "\rhashing %s %3d%%", file, p.Percentage)
					}
				})
				if !a.jsonMode {
					fmt.Fprintln(os.Stderr)
				}
				if err != nil {
					return types.ValidationError("hash %s: %v", file, err)
				}
				hash = h
			case len(args) == 1:
				hash = args[0]
			}
			return a.submit(cmd.Context(), func(ctx context.Context, svc landtitle.Service) (*types.ConfirmationResult, error) {
				return svc.SubmitVerification(ctx, hash)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "compute the document hash from a local file")
	return cmd
}

func newTransferCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "transfer <token-id> <buyer-address>",
		Short: "Transfer a land token to a buyer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokenID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return types.ValidationError("token id must be a non-negative integer, got %q", args[0])
			}
			return a.submit(cmd.Context(), func(ctx context.Context, svc landtitle.Service) (*types.ConfirmationResult, error) {
				return svc.TransferOwnership(ctx, tokenID, args[1])
			})
		},
	}
}

// submit 执行一次尝试并输出结果
//
// **流程**：
// 1. 创建流程并订阅状态迁移（--debug 时打印）
// 2. Ctrl-C 取消尝试；已广播的交易仍可能上链，错误中保留 txId
// 3. 输出确认轮次与浏览器链接
func (a *app) submit(parent context.Context, send func(context.Context, landtitle.Service) (*types.ConfirmationResult, error)) error {
	w, ledger, err := a.workflow()
	if err != nil {
		return err
	}

	events, unsubscribe := w.Subscribe()
	defer unsubscribe()
	go func() {
		for t := range events {
			a.logger.Debug("workflow state", zap.String("from", string(t.From)), zap.String("to", string(t.To)), zap.String("txId", t.TxID))
		}
	}()

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := send(ctx, landtitle.NewService(w))
	if err != nil {
		return err
	}

	if a.jsonMode {
		return printJSON(res)
	}
	success("confirmed in round %d", res.ConfirmedRound)
	field("Transaction", res.TxID)
	field("Sender", utils.EllipseAddress(w.Sender(), 6))
	field("Explorer", utils.ExplorerAccountURL(ledger.Network(), w.Sender()))
	return nil
}
