package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/vitwit/paylink/types"
	"github.com/vitwit/paylink/utils"
)

func posCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pos",
		Short: "Point-of-sale payment log",
	}
	cmd.AddCommand(posRecordCmd())
	cmd.AddCommand(posRecentCmd())
	return cmd
}

func posRecordCmd() *cobra.Command {
	var (
		chain int64
		token string
		at    string
	)

	cmd := &cobra.Command{
		Use:   "record [tx-hash] [amount]",
		Short: "Note a payment received at the counter",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := types.RecentPayment{
				TxHash:  args[0],
				Amount:  args[1],
				ChainID: types.ChainID(chain),
				Token:   token,
			}
			if at != "" {
				ts, err := utils.ParseFlexibleTime(at)
				if err != nil {
					return types.NewError(types.ErrInvalidDescriptor, "invalid --at", err)
				}
				p.Timestamp = ts
			}
			if err := cli.checkout.RecordPayment(p); err != nil {
				return err
			}
			fmt.Println("recorded")
			return nil
		},
	}

	cmd.Flags().Int64VarP(&chain, "chain", "c", 0, "chain id (default from config)")
	cmd.Flags().StringVarP(&token, "token", "t", "", "token symbol (default from config)")
	cmd.Flags().StringVar(&at, "at", "", "payment time (RFC3339 or YYYY-MM-DD), default now")
	return cmd
}

func posRecentCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recorded payments, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			recent, err := cli.checkout.RecentPayments(limit)
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(recent)
			}
			for _, p := range recent {
				fmt.Printf("%s  %12s %-5s  %-16s %s\n",
					p.Timestamp.Local().Format(time.DateTime), utils.FormatMoney(p.Amount), p.Token,
					chainName(p.ChainID), cli.checkout.ExplorerURL(p.ChainID, p.TxHash))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum entries, 0 for all")
	return cmd
}
