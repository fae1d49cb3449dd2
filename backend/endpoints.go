package backend

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/BharatiPatra/fi-dashboard/internal/errors"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

const (
	SummaryPath       = "/common/summary"
	MutualFundsPath   = "/mutualfunds/raw"
	AssetsPath        = "/networth/assets"
	LiabilitiesPath   = "/networth/liabilities"
	AgentQueryPath    = "/agent/query"
	SecurityLoginPath = "/security/login"
)

// Liability attributes reported by the backend.
const (
	LiabilityHomeLoan    = "LIABILITY_TYPE_HOME_LOAN"
	LiabilityVehicleLoan = "LIABILITY_TYPE_VEHICLE_LOAN"
	LiabilityOtherLoan   = "LIABILITY_TYPE_OTHER_LOAN"
)

type Summary struct {
	TotalCurrentBalance  decimal.Decimal     `json:"total_current_balance"`
	PensionBalance       decimal.Decimal     `json:"pension_balance"`
	TotalCreditSpending  decimal.Decimal     `json:"total_credit_spending"`
	TotalMutualFundValue decimal.Decimal     `json:"total_mutual_fund_value"`
	MutualFundCurrency   string              `json:"mutual_fund_currency"`
	TotalNetWorth        Money               `json:"total_net_worth"`
	Liabilities          []NetWorthItem      `json:"liabilities"`
	MutualFunds          []MutualFundHolding `json:"mutual_fund"`
}

type MutualFundHolding struct {
	Date       string          `json:"date"`
	SchemeName string          `json:"schemeName"`
	SchemeType string          `json:"schemeType"`
	Type       string          `json:"type"`
	Price      decimal.Decimal `json:"price"`
}

type MutualFundTransaction struct {
	ISIN              string          `json:"isinNumber"`
	FolioID           string          `json:"folioId"`
	ExternalOrderType string          `json:"externalOrderType"`
	TransactionDate   string          `json:"transactionDate"`
	PurchasePrice     Money           `json:"purchasePrice"`
	TransactionAmount Money           `json:"transactionAmount"`
	TransactionUnits  decimal.Decimal `json:"transactionUnits"`
	TransactionMode   string          `json:"transactionMode"`
	SchemeName        string          `json:"schemeName"`
}

// NetWorth combines the asset and liability views with decimal totals.
type NetWorth struct {
	Assets           []NetWorthItem  `json:"assets"`
	Liabilities      []NetWorthItem  `json:"liabilities"`
	TotalAssets      decimal.Decimal `json:"totalAssets"`
	TotalLiabilities decimal.Decimal `json:"totalLiabilities"`
	Net              decimal.Decimal `json:"netWorth"`
}

func (c *Client) Summary(ctx context.Context) (Summary, error) {
	var s Summary
	if err := c.getJSON(ctx, "summary", SummaryPath, &s); err != nil {
		return Summary{}, err
	}
	return s, nil
}

func (c *Client) MutualFundTransactions(ctx context.Context) ([]MutualFundTransaction, error) {
	var resp struct {
		Transactions []MutualFundTransaction `json:"transactions"`
	}
	if err := c.getJSON(ctx, "mutualfunds", MutualFundsPath, &resp); err != nil {
		return nil, err
	}
	return resp.Transactions, nil
}

// TotalInvested sums the transaction amounts.
func TotalInvested(txs []MutualFundTransaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.TransactionAmount.Amount())
	}
	return total
}

// NetWorth fetches assets and liabilities concurrently. Either failing fails
// the whole call.
func (c *Client) NetWorth(ctx context.Context) (NetWorth, error) {
	if !c.sessions.Current().IsComplete() {
		return NetWorth{}, errors.ErrUnauthenticated
	}

	var assets, liabilities struct {
		Assets      []NetWorthItem `json:"assets"`
		Liabilities []NetWorthItem `json:"liabilities"`
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := c.getJSON(gctx, "networth_assets", AssetsPath, &assets); err != nil {
			return fmt.Errorf("failed to fetch assets: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := c.getJSON(gctx, "networth_liabilities", LiabilitiesPath, &liabilities); err != nil {
			return fmt.Errorf("failed to fetch liabilities: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return NetWorth{}, err
	}

	nw := NetWorth{
		Assets:           assets.Assets,
		Liabilities:      liabilities.Liabilities,
		TotalAssets:      Sum(assets.Assets),
		TotalLiabilities: Sum(liabilities.Liabilities),
	}
	nw.Net = nw.TotalAssets.Sub(nw.TotalLiabilities)
	return nw, nil
}

type agentQuery struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// AskAgent sends a chat message to the AI agent and returns its reply.
func (c *Client) AskAgent(ctx context.Context, message string) (string, error) {
	t := c.sessions.Current()
	if !t.IsComplete() {
		return "", errors.ErrUnauthenticated
	}

	var raw json.RawMessage
	if err := c.postJSON(ctx, t, "agent_query", AgentQueryPath, agentQuery{
		UserID:    t.UserID,
		SessionID: t.SessionID,
		Message:   message,
	}, &raw); err != nil {
		return "", err
	}

	reply := gjson.GetBytes(raw, "reply")
	if !reply.Exists() {
		return "", fmt.Errorf("agent response has no reply")
	}
	return reply.String(), nil
}
