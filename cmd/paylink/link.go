package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/vitwit/paylink"
	"github.com/vitwit/paylink/qr"
	"github.com/vitwit/paylink/types"
	"github.com/vitwit/paylink/utils"
)

func chainsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chains",
		Short: "List supported chains and tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			items := cli.checkout.Supported()
			if jsonOut {
				return printJSON(items)
			}
			for _, item := range items {
				fmt.Printf("%-8d %-18s %s\n", item.ChainID, item.Name, strings.Join(item.Tokens, ", "))
			}
			return nil
		},
	}
}

func linkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Create and inspect payment links",
	}
	cmd.AddCommand(linkCreateCmd(false))
	cmd.AddCommand(linkCreateCmd(true))
	cmd.AddCommand(linkInspectCmd())
	return cmd
}

func linkCreateCmd(static bool) *cobra.Command {
	var (
		req      paylink.LinkRequest
		chain    int64
		expires  string
		qrFile   string
		qrInline bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a fixed-amount payment link",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.ChainID = types.ChainID(chain)
			if expires != "" {
				at, err := utils.ParseFlexibleTime(expires)
				if err != nil {
					return types.NewError(types.ErrInvalidDescriptor, "invalid --expires", err)
				}
				req.ExpiresAt = &at
			}

			create := cli.checkout.CreateLink
			if static {
				create = cli.checkout.StaticLink
			}
			l, err := create(req)
			if err != nil {
				return err
			}

			if qrFile != "" {
				png, err := cli.checkout.QR(l.Descriptor)
				if err != nil {
					return err
				}
				if err := os.WriteFile(qrFile, png, 0o644); err != nil {
					return fmt.Errorf("write qr: %w", err)
				}
			}

			if jsonOut {
				return printJSON(l)
			}
			fmt.Println(l.URL)
			if l.Receipt != nil {
				fmt.Printf("receipt: %s\n", l.Receipt.ID)
			}
			if qrInline {
				art, err := qr.ASCII(l.URL)
				if err != nil {
					return err
				}
				fmt.Print(art)
			}
			return nil
		},
	}
	if static {
		cmd.Use = "static"
		cmd.Short = "Create a link where the payer enters the amount"
	}

	cmd.Flags().StringVarP(&req.Merchant, "merchant", "m", "", "receiving wallet address")
	cmd.Flags().Int64VarP(&chain, "chain", "c", 0, "chain id (default from config)")
	cmd.Flags().StringVarP(&req.Token, "token", "t", "", "token symbol (default from config)")
	cmd.Flags().StringVar(&req.Memo, "memo", "", "note shown to the payer")
	cmd.Flags().DurationVar(&req.TTL, "ttl", 0, "link lifetime, e.g. 30m")
	cmd.Flags().StringVar(&expires, "expires", "", "absolute expiry (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&qrFile, "qr", "", "write a PNG QR code to this file")
	cmd.Flags().BoolVar(&qrInline, "qr-ascii", false, "print the QR code in the terminal")
	_ = cmd.MarkFlagRequired("merchant")
	if !static {
		cmd.Flags().StringVarP(&req.Amount, "amount", "a", "", "amount in token units, e.g. 10.50")
		_ = cmd.MarkFlagRequired("amount")
	}
	return cmd
}

func linkInspectCmd() *cobra.Command {
	var amount string

	cmd := &cobra.Command{
		Use:   "inspect [url]",
		Short: "Decode a payment link and show what the payer would pay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := cli.checkout.ResolveLink(args[0])
			if err != nil {
				return err
			}
			p := cli.checkout.Preview(d, amount)
			if jsonOut {
				return printJSON(p)
			}

			fmt.Printf("Merchant: %s\n", p.Merchant)
			fmt.Printf("Network:  %s\n", p.Chain)
			fmt.Printf("Token:    %s\n", d.Token)
			if d.Memo != "" {
				fmt.Printf("Memo:     %s\n", d.Memo)
			}
			if d.ExpiresAt != nil {
				fmt.Printf("Expires:  %s\n", utils.FormatTime(*d.ExpiresAt))
			}
			if d.ReceiptID != "" {
				fmt.Printf("Receipt:  %s\n", d.ReceiptID)
			}
			if !p.Payable {
				fmt.Printf("Status:   %s\n", p.Status)
				return nil
			}
			fmt.Printf("Amount:   %s\n", p.Amount)
			fmt.Printf("Fee:      %s (%d bps)\n", p.Fee, p.Quote.FeeBps)
			fmt.Printf("Total:    %s\n", p.Total)
			return nil
		},
	}

	cmd.Flags().StringVarP(&amount, "amount", "a", "", "payer amount for static links")
	return cmd
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return utils.FormatTime(*t)
}
