package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/vitwit/paylink/clients"
	"github.com/vitwit/paylink/settlement"
	"github.com/vitwit/paylink/types"
	"github.com/vitwit/paylink/utils"
	"github.com/vitwit/paylink/wallet"
)

// KeyEnv holds the payer key when --key is not given.
const KeyEnv = "PAYLINK_PRIVATE_KEY"

func payCmd() *cobra.Command {
	var (
		amount     string
		key        string
		merchantTx string
	)

	cmd := &cobra.Command{
		Use:   "pay [url]",
		Short: "Pay a link from a local key over JSON-RPC",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				key = os.Getenv(KeyEnv)
			}
			if key == "" {
				return fmt.Errorf("no payer key: pass --key or set %s", KeyEnv)
			}

			d, err := cli.checkout.ResolveLink(args[0])
			if err != nil {
				return err
			}

			urls := clients.RPCURLsFromConfig(cli.cfg)
			active := cli.cfg.DefaultChainID
			if _, ok := urls[d.ChainID]; ok {
				active = d.ChainID
			}
			provider, err := clients.NewEVMProvider(urls, active, key, clients.WithLogger(cli.log))
			if err != nil {
				return types.NewError(types.ErrWalletUnavailable, "cannot start wallet", err)
			}
			defer provider.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			req := settlement.Request{Descriptor: d, PayerAmount: amount}
			if merchantTx != "" {
				req.Resume = &settlement.Resume{MerchantTxHash: merchantTx}
			}

			res, err := cli.checkout.Pay(ctx, wallet.NewSession(provider), req)
			if err != nil {
				return reportFailure(res, err)
			}
			if jsonOut {
				return printJSON(res.Receipt)
			}
			sentFee := "0"
			if res.FeeUnits != nil {
				sentFee = utils.FormatAmountFromBigInt(res.FeeUnits, res.Decimals)
			}
			fmt.Printf("Paid %s %s + %s fee from %s\n",
				utils.FormatAmountFromBigInt(res.MerchantUnits, res.Decimals), d.Token, sentFee, res.Payer.Hex())
			fmt.Printf("receipt: %s\n", res.Receipt.ID)
			for _, s := range res.Receipt.Settlements {
				fmt.Printf("  %-8s %s\n", s.Type, explorerOrHash(s))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&amount, "amount", "a", "", "amount to pay on a static link")
	cmd.Flags().StringVar(&key, "key", "", "payer private key (hex); defaults to $"+KeyEnv)
	cmd.Flags().StringVar(&merchantTx, "resume", "", "confirmed merchant tx hash from a previous attempt")
	return cmd
}

func printProgress(e settlement.Event) {
	if e.State == settlement.StateFailed || e.Message == "" {
		return
	}
	if e.TxHash != "" {
		fmt.Fprintf(os.Stderr, "%s (%s)\n", e.Message, e.TxHash)
		return
	}
	fmt.Fprintln(os.Stderr, e.Message)
}

// reportFailure prints the resume hint when the merchant leg already landed.
func reportFailure(res *settlement.Result, err error) error {
	if res != nil && res.MerchantTxHash != "" && types.HasCode(err, types.ErrFeeTransferFailed) {
		fmt.Fprintf(os.Stderr, "merchant transfer confirmed: %s\n", res.MerchantTxHash)
		fmt.Fprintf(os.Stderr, "retry the fee with: paylink pay --resume %s <url>\n", res.MerchantTxHash)
	}
	return err
}

func explorerOrHash(s types.Settlement) string {
	if s.ExplorerURL != "" {
		return s.ExplorerURL
	}
	return s.TxHash
}
