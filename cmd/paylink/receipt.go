package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/vitwit/paylink/types"
	"github.com/vitwit/paylink/utils"
)

func receiptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receipt",
		Short: "Inspect stored receipts",
	}
	cmd.AddCommand(receiptShowCmd())
	cmd.AddCommand(receiptListCmd())
	cmd.AddCommand(receiptSweepCmd())
	return cmd
}

func receiptShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show one receipt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := cli.checkout.Receipt(strings.ToUpper(args[0]))
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(r)
			}

			d := r.Descriptor
			fmt.Printf("Receipt:  %s\n", r.ID)
			fmt.Printf("Status:   %s\n", r.Status)
			fmt.Printf("Merchant: %s\n", d.Merchant)
			fmt.Printf("Network:  %s\n", chainName(d.ChainID))
			fmt.Printf("Amount:   %s %s\n", amountOrStatic(d), d.Token)
			fmt.Printf("Created:  %s\n", utils.FormatTime(r.CreatedAt))
			fmt.Printf("Expires:  %s\n", formatTime(d.ExpiresAt))
			if r.Status == types.ReceiptPaid {
				fmt.Printf("Paid:     %s by %s\n", formatTime(r.PaidAt), r.Payer)
				for _, s := range r.Settlements {
					fmt.Printf("  %-8s %s %s -> %s\n", s.Type, s.Amount, d.Token, utils.ShortenAddress(s.Recipient))
					fmt.Printf("           %s\n", explorerOrHash(s))
				}
			}
			return nil
		},
	}
}

func receiptListCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List receipts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := cli.checkout.Receipts()
			if err != nil {
				return err
			}
			out := all[:0]
			for _, r := range all {
				if status == "" || string(r.Status) == status {
					out = append(out, r)
				}
			}
			if jsonOut {
				return printJSON(out)
			}
			for _, r := range out {
				d := r.Descriptor
				fmt.Printf("%s  %-7s  %12s %-5s  %-16s %s\n",
					r.ID, r.Status, amountOrStatic(d), d.Token, chainName(d.ChainID), utils.FormatTime(r.CreatedAt))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "only pending, paid or expired receipts")
	return cmd
}

func receiptSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Mark pending receipts of expired links as expired",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := cli.checkout.SweepExpired(time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("%d receipt(s) expired\n", n)
			return nil
		},
	}
}

func chainName(id types.ChainID) string {
	if c, ok := cli.checkout.Registry().Chain(id); ok {
		return c.Name
	}
	return id.String()
}

func amountOrStatic(d types.Descriptor) string {
	if d.IsStatic() {
		return "(payer)"
	}
	return utils.FormatMoney(d.Amount)
}
