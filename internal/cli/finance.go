package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/BharatiPatra/fi-dashboard/backend"
	"github.com/BharatiPatra/fi-dashboard/internal/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// backendCommand wraps run with the session check and the shared error mapping.
func (a *app) backendCommand(run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.requireSession(cmd); err != nil {
			return err
		}
		err := run(cmd, args)
		if errors.Is(err, errors.ErrUnauthenticated) {
			return a.notLoggedIn(cmd)
		}
		var httpErr *backend.HTTPError
		if errors.As(err, &httpErr) {
			return fmt.Errorf("backend request failed (%d): %s", httpErr.StatusCode, httpErr.Message)
		}
		return err
	}
}

func newSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show balances, credit spending and mutual fund value",
		RunE: a.backendCommand(func(cmd *cobra.Command, args []string) error {
			ctx, stop := commandContext(cmd)
			defer stop()

			s, err := a.client.Summary(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.jsonOutput {
				printJSON(out, s)
				return nil
			}
			printField(out, "Current balance", money(s.TotalCurrentBalance))
			printField(out, "Pension balance", money(s.PensionBalance))
			printField(out, "Credit spending", money(s.TotalCreditSpending))
			printField(out, "Mutual funds", strings.TrimSpace(money(s.TotalMutualFundValue)+" "+s.MutualFundCurrency))
			printField(out, "Net worth", strings.TrimSpace(money(s.TotalNetWorth.Amount())+" "+s.TotalNetWorth.CurrencyCode))
			printLoans(out, s.Liabilities)
			return nil
		}),
	}
}

func newNetWorthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "networth",
		Short: "Show assets, liabilities and net worth",
		RunE: a.backendCommand(func(cmd *cobra.Command, args []string) error {
			ctx, stop := commandContext(cmd)
			defer stop()

			nw, err := a.client.NetWorth(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.jsonOutput {
				printJSON(out, nw)
				return nil
			}
			keyLabel.Fprintln(out, "Assets")
			printItems(out, nw.Assets)
			keyLabel.Fprintln(out, "Liabilities")
			printItems(out, nw.Liabilities)
			fmt.Fprintln(out)
			printField(out, "Total assets", money(nw.TotalAssets))
			printField(out, "Total liabilities", money(nw.TotalLiabilities))
			printField(out, "Net worth", money(nw.Net))
			return nil
		}),
	}
}

func newMutualFundsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mutualfunds",
		Short: "List mutual fund transactions",
		RunE: a.backendCommand(func(cmd *cobra.Command, args []string) error {
			ctx, stop := commandContext(cmd)
			defer stop()

			txs, err := a.client.MutualFundTransactions(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			total := backend.TotalInvested(txs)
			if a.jsonOutput {
				printJSON(out, map[string]any{"transactions": txs, "totalInvested": total})
				return nil
			}
			for _, tx := range txs {
				fmt.Fprintf(out, "%-12s %-6s %14s  %s\n", tx.TransactionDate, tx.ExternalOrderType, money(tx.TransactionAmount.Amount()), tx.SchemeName)
			}
			fmt.Fprintln(out)
			printField(out, "Total invested", money(total))
			return nil
		}),
	}
}

func newAskCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <message...>",
		Short: "Ask the finance agent a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.backendCommand(func(cmd *cobra.Command, args []string) error {
			ctx, stop := commandContext(cmd)
			defer stop()

			reply, err := a.client.AskAgent(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if a.jsonOutput {
				printJSON(cmd.OutOrStdout(), map[string]string{"reply": reply})
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		}),
	}
}

func printItems(w io.Writer, items []backend.NetWorthItem) {
	for _, item := range items {
		fmt.Fprintf(w, "  %-40s %14s\n", item.Attribute, money(item.Value.Amount()))
	}
}

var loanLabels = []struct {
	label     string
	attribute string
}{
	{"Home loan", backend.LiabilityHomeLoan},
	{"Vehicle loan", backend.LiabilityVehicleLoan},
	{"Other loans", backend.LiabilityOtherLoan},
}

// printLoans prints the loans the summary reports, in a fixed order.
func printLoans(w io.Writer, liabilities []backend.NetWorthItem) {
	for _, loan := range loanLabels {
		if amount, ok := backend.Find(liabilities, loan.attribute); ok {
			printField(w, loan.label, money(amount))
		}
	}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
