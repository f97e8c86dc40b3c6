package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/landverify/client-sdk-go/client"
	"github.com/landverify/client-sdk-go/services/docauth"
	"github.com/landverify/client-sdk-go/services/property"
	"github.com/landverify/client-sdk-go/types"
	"github.com/landverify/client-sdk-go/utils"
)

func newAccountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "account <address>...",
		Short: "Show account balances and application state",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.stateService()
			if err != nil {
				return err
			}
			res, err := svc.FetchAccounts(cmd.Context(), args)
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(res.Results)
			}

			failed := make(map[int]error, len(res.Errors))
			for _, e := range res.Errors {
				failed[e.Index] = e.Error
			}
			network := a.v.GetString("LEDGER_NETWORK")
			for i, addr := range args {
				if i > 0 {
					fmt.Println()
				}
				if err, ok := failed[i]; ok {
					field("Address", addr)
					field("Error", types.Describe(err))
					continue
				}
				acct := res.Results[i]
				field("Address", acct.Address)
				field("Balance", fmt.Sprintf("%d µAlgo", acct.Balance))
				field("Min balance", fmt.Sprintf("%d µAlgo", acct.MinBalance))
				field("Round", acct.Round)
				field("Assets", len(acct.Assets))
				field("Apps opted in", len(acct.AppsLocalState))
				field("Explorer", utils.ExplorerAccountURL(network, acct.Address))
			}
			if res.Failed > 0 {
				return res.Errors[0].Error
			}
			return nil
		},
	}
}

// appIDArg 读取参数中的应用 ID，缺省时使用 APP_ID
func (a *app) appIDArg(args []string) (uint64, error) {
	if len(args) == 1 {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil || id == 0 {
			return 0, types.ValidationError("application id must be a positive integer, got %q", args[0])
		}
		return id, nil
	}
	s, err := a.resolver.Settings()
	if err != nil {
		return 0, err
	}
	return s.AppID, nil
}

func newAppCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "app [app-id]",
		Short: "Show application global state and the verified hash",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appID, err := a.appIDArg(args)
			if err != nil {
				return err
			}
			svc, err := a.stateService()
			if err != nil {
				return err
			}

			view := svc.NewView()
			app, err := view.App(cmd.Context(), appID)
			if err != nil {
				return err
			}
			hash, err := view.VerifiedHash(cmd.Context(), appID)
			if err != nil && !errors.Is(err, types.ErrNotFound) {
				return err
			}

			if a.jsonMode {
				return printJSON(map[string]interface{}{"app": app, "verifiedHash": hash})
			}
			field("Application", app.AppID)
			field("Creator", app.Creator)
			field("Address", app.Address)
			if hash == "" {
				field("Verified hash", dimColor.Sprint("(none)"))
			} else {
				field("Verified hash", hash)
			}
			for _, k := range app.Keys() {
				v := app.Global[k]
				if v.Type == client.StateTypeUint {
					field("  "+k, v.Uint)
				} else {
					field("  "+k, string(v.Bytes))
				}
			}
			return nil
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	var (
		minRound uint64
		limit    uint64
		next     string
	)
	cmd := &cobra.Command{
		Use:   "history [app-id]",
		Short: "List application calls from the index node",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appID, err := a.appIDArg(args)
			if err != nil {
				return err
			}
			svc, err := a.stateService()
			if err != nil {
				return err
			}
			page, err := svc.ListAppTransactions(cmd.Context(), appID, minRound, limit, next)
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(page)
			}

			for _, c := range page.Calls {
				op := dimColor.Sprint("(unknown)")
				detail := ""
				if c.Call != nil {
					op = c.Call.Operation
					switch c.Call.Operation {
					case utils.OpSubmitVerification:
						detail = c.Call.DocumentHash
					case utils.OpTransferLandToken:
						detail = fmt.Sprintf("token %d %s → %s", c.Call.TokenID,
							utils.EllipseAddress(c.Call.Seller, 4), utils.EllipseAddress(c.Call.Buyer, 4))
					}
				}
				fmt.Printf("%-10d %s  %-22s %s\n", c.ConfirmedRound, utils.EllipseAddress(c.TxID, 6), op, detail)
			}
			if page.NextToken != "" {
				if minRound > 0 {
					dimColor.Printf("next page: --min-round %d --next %s\n", minRound, page.NextToken)
				} else {
					dimColor.Printf("next page: --next %s\n", page.NextToken)
				}
			}
			return nil
		},
	}
	cmd.Flags().Uint64Var(&minRound, "min-round", 0, "only calls confirmed at or after this round")
	cmd.Flags().Uint64Var(&limit, "limit", 20, "maximum number of calls")
	cmd.Flags().StringVar(&next, "next", "", "pagination token (use with the same --min-round)")
	return cmd
}

func newPropertiesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "properties [id]",
		Short: "List properties from the property service",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rest, err := a.rest()
			if err != nil {
				return err
			}
			svc := property.NewService(rest)

			if len(args) == 1 {
				id, err := strconv.Atoi(args[0])
				if err != nil {
					return types.ValidationError("property id must be an integer, got %q", args[0])
				}
				p, err := svc.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				if a.jsonMode {
					return printJSON(p)
				}
				field("ID", p.ID)
				field("Name", p.Name)
				if p.Location != "" {
					field("Location", p.Location)
				}
				if p.Owner != "" {
					field("Owner", p.Owner)
				}
				if p.TokenID != 0 {
					field("Land token", p.TokenID)
				}
				field("Link", rest.URL(p.Link()))
				return nil
			}

			props, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(props)
			}
			if len(props) == 0 {
				dimColor.Println("no properties")
			}
			for _, p := range props {
				fmt.Printf("%-6d %-32s %s\n", p.ID, p.Name, dimColor.Sprint(p.Link()))
			}
			return nil
		},
	}
}

func newLoginURLCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login-url",
		Short: "Print the document-auth login URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rest, err := a.rest()
			if err != nil {
				return err
			}
			u, err := docauth.NewService(rest).LoginURL(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(map[string]string{"url": u})
			}
			fmt.Println(u)
			return nil
		},
	}
}

func newCallbackCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "callback <callback-url>",
		Short: "Extract the document hash from a document-auth callback URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := docauth.HashFromCallback(args[0])
			if err != nil {
				return err
			}
			if a.jsonMode {
				return printJSON(map[string]string{"documentHash": hash})
			}
			fmt.Println(hash)
			return nil
		},
	}
}
