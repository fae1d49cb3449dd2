package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/BharatiPatra/fi-dashboard/backend"
	fierrors "github.com/BharatiPatra/fi-dashboard/internal/errors"
	"github.com/BharatiPatra/fi-dashboard/internal/metrics"
	"github.com/BharatiPatra/fi-dashboard/session"
	fakestore "github.com/BharatiPatra/fi-dashboard/session/repofakes"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var complete = session.Triple{UserID: "u1", SessionID: "s1", MCPSessionID: "m1"}

type testFixture struct {
	server   *httptest.Server
	mux      *http.ServeMux
	hits     atomic.Int32
	sessions *session.Context
	metrics  *metrics.Registry
	client   *backend.Client
}

func setupTestFixture(t *testing.T, triple session.Triple) *testFixture {
	t.Helper()
	f := &testFixture{mux: http.NewServeMux(), metrics: metrics.New()}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		f.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.server.Close)

	store := fakestore.NewFakeStore()
	f.sessions = session.NewContext(store)
	if !triple.IsEmpty() {
		require.NoError(t, f.sessions.SetSession(triple))
	}

	client, err := backend.New(f.server.URL, f.sessions, backend.WithMetrics(f.metrics.Backend))
	require.NoError(t, err)
	f.client = client
	return f
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := backend.New("not a url", session.NewContext(fakestore.NewFakeStore()))
	require.Error(t, err)
}

func TestRequest_UnauthenticatedFailsFast(t *testing.T) {
	tests := []struct {
		name   string
		triple session.Triple
	}{
		{"empty", session.Triple{}},
		{"partial", session.Triple{UserID: "u1", SessionID: "s1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t, tt.triple)

			resp, err := f.client.Request(context.Background(), "/common/summary", backend.RequestOptions{})
			require.Nil(t, resp)
			require.ErrorIs(t, err, fierrors.ErrUnauthenticated)

			_, err = f.client.Summary(context.Background())
			require.ErrorIs(t, err, fierrors.ErrUnauthenticated)
			_, err = f.client.NetWorth(context.Background())
			require.ErrorIs(t, err, fierrors.ErrUnauthenticated)
			_, err = f.client.AskAgent(context.Background(), "hi")
			require.ErrorIs(t, err, fierrors.ErrUnauthenticated)

			require.Zero(t, f.hits.Load(), "no network call may be issued")
		})
	}
}

func TestRequest_AppendsSessionParams(t *testing.T) {
	f := setupTestFixture(t, complete)
	var got *http.Request
	f.mux.HandleFunc("/common/summary", func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.WriteHeader(http.StatusNoContent)
	})

	resp, err := f.client.Request(context.Background(), "/common/summary?year=2024", backend.RequestOptions{})
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	q := got.URL.Query()
	require.Equal(t, "u1", q.Get("userId"))
	require.Equal(t, "s1", q.Get("sessionId"))
	require.Equal(t, "m1", q.Get("mcpSessionId"))
	require.Equal(t, "2024", q.Get("year"))
	require.Equal(t, complete, f.sessions.Current(), "the session is not mutated")
}

// loggedOutAfterFirstRead serves complete on the first read and an empty
// triple afterwards, as if a logout landed right after it.
type loggedOutAfterFirstRead struct {
	reads atomic.Int32
}

func (r *loggedOutAfterFirstRead) Current() session.Triple {
	if r.reads.Add(1) == 1 {
		return complete
	}
	return session.Triple{}
}

func TestRequest_GatesAndSendsOneSnapshot(t *testing.T) {
	var got *http.Request
	var body map[string]string
	be := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		if r.Method == http.MethodPost {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}
		writeJSON(w, http.StatusOK, map[string]string{"reply": "ok"})
	}))
	defer be.Close()

	t.Run("request", func(t *testing.T) {
		client, err := backend.New(be.URL, &loggedOutAfterFirstRead{})
		require.NoError(t, err)

		resp, err := client.Request(context.Background(), "/common/summary", backend.RequestOptions{})
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, "u1", got.URL.Query().Get("userId"))
		require.Equal(t, "m1", got.URL.Query().Get("mcpSessionId"))
	})

	t.Run("agent query", func(t *testing.T) {
		client, err := backend.New(be.URL, &loggedOutAfterFirstRead{})
		require.NoError(t, err)

		reply, err := client.AskAgent(context.Background(), "hi")
		require.NoError(t, err)
		require.Equal(t, "ok", reply)
		require.Equal(t, "u1", body["user_id"])
		require.Equal(t, "s1", body["session_id"])
	})
}

func TestRequest_AbsolutePath(t *testing.T) {
	f := setupTestFixture(t, complete)
	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "m1", r.URL.Query().Get("mcpSessionId"))
		w.WriteHeader(http.StatusOK)
	}))
	defer other.Close()

	resp, err := f.client.Request(context.Background(), other.URL+"/elsewhere", backend.RequestOptions{})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Zero(t, f.hits.Load())
}

func TestRequest_TransportErrorUnchanged(t *testing.T) {
	f := setupTestFixture(t, complete)
	f.server.Close()

	_, err := f.client.Request(context.Background(), "/common/summary", backend.RequestOptions{})
	require.Error(t, err)
	require.False(t, errors.Is(err, fierrors.ErrUnauthenticated))
}

func TestRequest_ReturnsRawNon2xx(t *testing.T) {
	f := setupTestFixture(t, complete)
	f.mux.HandleFunc("/common/summary", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "upstream down"})
	})

	resp, err := f.client.Request(context.Background(), "/common/summary", backend.RequestOptions{})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "upstream down")
}

func TestSummary(t *testing.T) {
	f := setupTestFixture(t, complete)
	f.mux.HandleFunc("/common/summary", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{
			"total_current_balance": "125000.50",
			"pension_balance": "80000",
			"total_credit_spending": 4200.25,
			"total_mutual_fund_value": 310000,
			"mutual_fund_currency": "INR",
			"total_net_worth": {"currencyCode": "INR", "units": "515000"},
			"liabilities": [
				{"netWorthAttribute": "LIABILITY_TYPE_HOME_LOAN", "value": {"currencyCode": "INR", "units": "2000000"}}
			],
			"mutual_fund": [{"date": "2024-01-01", "schemeName": "Index Fund", "schemeType": "EQUITY", "type": "BUY", "price": 101.5}]
		}`)
	})

	s, err := f.client.Summary(context.Background())
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString("125000.50").Equal(s.TotalCurrentBalance))
	require.True(t, decimal.RequireFromString("4200.25").Equal(s.TotalCreditSpending))
	require.True(t, decimal.NewFromInt(515000).Equal(s.TotalNetWorth.Amount()))
	home, ok := backend.Find(s.Liabilities, backend.LiabilityHomeLoan)
	require.True(t, ok)
	require.True(t, decimal.NewFromInt(2000000).Equal(home))
	require.Len(t, s.MutualFunds, 1)
	require.Equal(t, "Index Fund", s.MutualFunds[0].SchemeName)

	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Backend.Requests.WithLabelValues("summary", "2xx")))
}

func TestSummary_HTTPError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"error field", http.StatusInternalServerError, `{"error":"database unavailable"}`, "database unavailable"},
		{"detail field", http.StatusUnprocessableEntity, `{"detail":"bad session"}`, "bad session"},
		{"plain body", http.StatusBadGateway, "gateway exploded", "gateway exploded"},
		{"empty body", http.StatusServiceUnavailable, "", "Service Unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t, complete)
			f.mux.HandleFunc("/common/summary", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := f.client.Summary(context.Background())
			var httpErr *backend.HTTPError
			require.ErrorAs(t, err, &httpErr)
			require.Equal(t, tt.status, httpErr.StatusCode)
			require.Equal(t, tt.message, httpErr.Message)
		})
	}
}

func TestMutualFundTransactions(t *testing.T) {
	f := setupTestFixture(t, complete)
	f.mux.HandleFunc("/mutualfunds/raw", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"transactions": [
			{"isinNumber": "INF000", "schemeName": "A", "transactionAmount": {"currencyCode": "INR", "units": "1000", "nanos": 500000000}, "transactionUnits": 10.5},
			{"isinNumber": "INF001", "schemeName": "B", "transactionAmount": {"currencyCode": "INR", "units": "250"}}
		]}`)
	})

	txs, err := f.client.MutualFundTransactions(context.Background())
	require.NoError(t, err)
	require.Len(t, txs, 2)
	require.Equal(t, "INF000", txs[0].ISIN)
	require.True(t, decimal.RequireFromString("1000.5").Equal(txs[0].TransactionAmount.Amount()))
	require.True(t, decimal.RequireFromString("1250.5").Equal(backend.TotalInvested(txs)))
}

func TestNetWorth(t *testing.T) {
	f := setupTestFixture(t, complete)
	f.mux.HandleFunc("/networth/assets", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "u1", r.URL.Query().Get("userId"))
		_, _ = io.WriteString(w, `{"assets": [
			{"netWorthAttribute": "ASSET_TYPE_SAVINGS_ACCOUNTS", "value": {"currencyCode": "INR", "units": "1000"}},
			{"netWorthAttribute": "ASSET_TYPE_MUTUAL_FUND", "value": {"currencyCode": "INR", "units": "500", "nanos": 250000000}}
		]}`)
	})
	f.mux.HandleFunc("/networth/liabilities", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"liabilities": [
			{"netWorthAttribute": "LIABILITY_TYPE_OTHER_LOAN", "value": {"currencyCode": "INR", "units": "300"}}
		]}`)
	})

	nw, err := f.client.NetWorth(context.Background())
	require.NoError(t, err)
	require.Len(t, nw.Assets, 2)
	require.Len(t, nw.Liabilities, 1)
	require.True(t, decimal.RequireFromString("1500.25").Equal(nw.TotalAssets))
	require.True(t, decimal.NewFromInt(300).Equal(nw.TotalLiabilities))
	require.True(t, decimal.RequireFromString("1200.25").Equal(nw.Net))
}

func TestNetWorth_OneSideFails(t *testing.T) {
	f := setupTestFixture(t, complete)
	f.mux.HandleFunc("/networth/assets", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"assets": []}`)
	})
	f.mux.HandleFunc("/networth/liabilities", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := f.client.NetWorth(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "liabilities")
	var httpErr *backend.HTTPError
	require.ErrorAs(t, err, &httpErr)
}

func TestAskAgent(t *testing.T) {
	f := setupTestFixture(t, complete)
	f.mux.HandleFunc("/agent/query", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, map[string]string{"user_id": "u1", "session_id": "s1", "message": "how am I doing?"}, body)
		writeJSON(w, http.StatusOK, map[string]string{"reply": "Net worth is up 4%."})
	})

	reply, err := f.client.AskAgent(context.Background(), "how am I doing?")
	require.NoError(t, err)
	require.Equal(t, "Net worth is up 4%.", reply)
}

func TestAskAgent_MissingReply(t *testing.T) {
	f := setupTestFixture(t, complete)
	f.mux.HandleFunc("/agent/query", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"answer": "wrong field"})
	})

	_, err := f.client.AskAgent(context.Background(), "hello")
	require.Error(t, err)
}

func TestMoney_Amount(t *testing.T) {
	tests := []struct {
		name  string
		money backend.Money
		want  string
	}{
		{"units only", backend.Money{Units: "42"}, "42"},
		{"units and nanos", backend.Money{Units: "1", Nanos: 5}, "1.000000005"},
		{"negative", backend.Money{Units: "-3", Nanos: -500000000}, "-3.5"},
		{"empty", backend.Money{}, "0"},
		{"garbage units", backend.Money{Units: "abc", Nanos: 100000000}, "0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.True(t, decimal.RequireFromString(tt.want).Equal(tt.money.Amount()), tt.money.Amount().String())
		})
	}
}
