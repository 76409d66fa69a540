package exchanges

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"cryptopulse/internal/domain"
)

// ============================================================================
// KRAKEN LIVE WEBSOCKET CLIENT
// ============================================================================

// KrakenWSClient is the live trade ingestion path for Kraken: it sends the
// v2 subscribe frame, dispatches trade and heartbeat messages, and
// distinguishes a normal close from an abnormal one.
type KrakenWSClient struct {
	symbols []domain.Symbol
	url     string
	logger  *zap.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewKrakenWSClient builds a Kraken live client for the given symbols.
func NewKrakenWSClient(symbols []domain.Symbol, wsURL string, logger *zap.Logger) *KrakenWSClient {
	return &KrakenWSClient{symbols: symbols, url: wsURL, logger: logger.With(zap.String("exchange", "KRAKEN"))}
}

type krakenSubscribeMessage struct {
	Method string `json:"method"`
	Params struct {
		Channel  string   `json:"channel"`
		Symbol   []string `json:"symbol"`
		Snapshot bool     `json:"snapshot"`
	} `json:"params"`
}

// Connect opens the websocket and sends the subscription frame.
func (k *KrakenWSClient) Connect(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, k.url, nil)
	if err != nil {
		return fmt.Errorf("kraken: failed to connect websocket: %w", err)
	}
	k.conn = conn

	sub := krakenSubscribeMessage{Method: "subscribe"}
	sub.Params.Channel = "trade"
	sub.Params.Snapshot = true
	for _, s := range k.symbols {
		sub.Params.Symbol = append(sub.Params.Symbol, ToKrakenPair(s))
	}

	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("kraken: failed to send subscribe message: %w", err)
	}

	k.logger.Info("subscribed to trades", zap.Any("symbols", k.symbols))
	return nil
}

type krakenTradeFrame struct {
	Channel string `json:"channel"`
	Type    string `json:"type"`
	Data    []struct {
		Symbol    string  `json:"symbol"`
		Price     float64 `json:"price"`
		Qty       float64 `json:"qty"`
		Timestamp string  `json:"timestamp"`
	} `json:"data"`
}

// StreamTrades reads frames until the connection closes. Malformed single
// frames are logged and skipped; unrecognized channels are logged and
// skipped; normal closure ends the stream with no error, abnormal closure
// surfaces an error.
func (k *KrakenWSClient) StreamTrades(ctx context.Context) (<-chan domain.Trade, <-chan error) {
	trades, errs := tradeChannels()

	go func() {
		defer close(trades)
		defer close(errs)

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			k.mu.Lock()
			conn := k.conn
			k.mu.Unlock()
			if conn == nil {
				errs <- fmt.Errorf("kraken: not connected, call Connect first")
				return
			}

			_, raw, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					k.logger.Info("websocket closed normally")
					return
				}
				k.logger.Error("websocket closed abnormally", zap.Error(err))
				errs <- fmt.Errorf("kraken: abnormal websocket closure: %w", err)
				return
			}

			var envelope map[string]any
			if err := json.Unmarshal(raw, &envelope); err != nil {
				k.logger.Warn("dropping malformed frame", zap.Error(err))
				continue
			}

			channel, _ := envelope["channel"].(string)
			switch channel {
			case "trade":
				var frame krakenTradeFrame
				if err := json.Unmarshal(raw, &frame); err != nil {
					k.logger.Warn("dropping malformed trade frame", zap.Error(err))
					continue
				}
				for _, d := range frame.Data {
					t, err := krakenTradeToDomain(d.Symbol, d.Price, d.Qty, d.Timestamp)
					if err != nil {
						k.logger.Warn("dropping invalid trade", zap.Error(err))
						continue
					}
					select {
					case trades <- t:
					case <-ctx.Done():
						return
					}
				}
			case "heartbeat":
				k.logger.Debug("heartbeat")
			default:
				k.logger.Info("unrecognized channel message", zap.String("channel", channel))
			}
		}
	}()

	return trades, errs
}

func krakenTradeToDomain(pair string, price, qty float64, isoTimestamp string) (domain.Trade, error) {
	ts, err := time.Parse(time.RFC3339Nano, isoTimestamp)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("invalid timestamp %q: %w", isoTimestamp, err)
	}
	t := domain.Trade{
		Exchange:  domain.ExchangeKraken,
		Symbol:    NormalizeSymbol(pair),
		Price:     price,
		Volume:    qty,
		Timestamp: ts.UnixMilli(),
	}
	if err := t.Validate(); err != nil {
		return domain.Trade{}, err
	}
	return t, nil
}

// Close closes the websocket connection.
func (k *KrakenWSClient) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.conn == nil {
		return nil
	}
	err := k.conn.Close()
	k.conn = nil
	return err
}

// ============================================================================
// KRAKEN HISTORICAL REST CLIENT
// ============================================================================

// krakenRestMinInterval is the minimum pause enforced between pages of the
// same paginated request, regardless of a caller-configured rate limit.
const krakenRestMinInterval = time.Second

// KrakenRESTClient is the paginated historical backfill path: it fetches
// every configured symbol's trade history concurrently, then merges and
// sorts the results by timestamp.
type KrakenRESTClient struct {
	symbols    []domain.Symbol
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
	rateLimit  time.Duration
}

// NewKrakenRESTClient builds a Kraken historical client.
func NewKrakenRESTClient(symbols []domain.Symbol, endpoint string, rateLimit time.Duration, logger *zap.Logger) *KrakenRESTClient {
	if rateLimit < krakenRestMinInterval {
		rateLimit = krakenRestMinInterval
	}
	return &KrakenRESTClient{
		symbols:    symbols,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger.With(zap.String("exchange", "KRAKEN")),
		rateLimit:  rateLimit,
	}
}

type krakenRestResponse struct {
	Error  []string                     `json:"error"`
	Result map[string]json.RawMessage   `json:"result"`
}

// StreamTrades fetches all pages from `since` up to the wall clock at call
// time, for every configured symbol concurrently, merging results sorted
// by timestamp.
func (k *KrakenRESTClient) StreamTrades(ctx context.Context, since time.Time) (<-chan domain.Trade, <-chan error) {
	trades, errs := tradeChannels()
	stopNs := time.Now().UnixNano()
	sinceNs := since.UnixNano()

	go func() {
		defer close(trades)
		defer close(errs)

		var wg sync.WaitGroup
		results := make([][]domain.Trade, len(k.symbols))
		fetchErrs := make([]error, len(k.symbols))

		for i, symbol := range k.symbols {
			wg.Add(1)
			go func(i int, symbol domain.Symbol) {
				defer wg.Done()
				ts, err := k.fetchAllTrades(ctx, symbol, sinceNs, stopNs)
				results[i] = ts
				fetchErrs[i] = err
			}(i, symbol)
		}
		wg.Wait()

		var merged []domain.Trade
		for i, err := range fetchErrs {
			if err != nil {
				k.logger.Error("failed fetching historical trades",
					zap.String("symbol", string(k.symbols[i])), zap.Error(err))
				errs <- err
				continue
			}
			merged = append(merged, results[i]...)
		}

		sort.Slice(merged, func(i, j int) bool { return merged[i].Timestamp < merged[j].Timestamp })

		for _, t := range merged {
			select {
			case trades <- t:
			case <-ctx.Done():
				return
			}
		}
	}()

	return trades, errs
}

// fetchAllTrades pages through history for one symbol until the cursor
// catches up to stopNs.
func (k *KrakenRESTClient) fetchAllTrades(ctx context.Context, symbol domain.Symbol, sinceNs, stopNs int64) ([]domain.Trade, error) {
	pair := ToKrakenPair(symbol)
	var all []domain.Trade
	cursor := sinceNs

	for cursor < stopNs {
		page, last, err := k.fetchPage(ctx, pair, cursor)
		if err != nil {
			return all, err
		}
		if len(page) == 0 && last < stopNs {
			return all, fmt.Errorf("kraken: empty page for %s with cursor %d still short of wall clock %d", pair, cursor, stopNs)
		}

		for _, raw := range page {
			t, err := krakenRestTradeToDomain(symbol, raw)
			if err != nil {
				k.logger.Warn("dropping invalid historical trade", zap.Error(err))
				continue
			}
			all = append(all, t)
		}

		cursor = last

		select {
		case <-ctx.Done():
			return all, ctx.Err()
		case <-time.After(k.rateLimit):
		}
	}

	return all, nil
}

// krakenRestTrade mirrors the 7-tuple Kraken's REST API returns per trade:
// [price, qty, timestamp_sec, side, type, misc, txid].
type krakenRestTrade [7]any

func (k *KrakenRESTClient) fetchPage(ctx context.Context, pair string, sinceNs int64) (trades []krakenRestTrade, lastNs int64, err error) {
	u, err := url.Parse(k.endpoint)
	if err != nil {
		return nil, 0, fmt.Errorf("kraken: invalid endpoint %q: %w", k.endpoint, err)
	}
	q := u.Query()
	q.Set("pair", pair)
	q.Set("since", strconv.FormatInt(sinceNs, 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("kraken: failed to build request: %w", err)
	}

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("kraken: REST request failed: %w", err)
	}
	defer resp.Body.Close()

	var body krakenRestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, 0, fmt.Errorf("kraken: failed to decode REST response: %w", err)
	}

	if len(body.Error) > 0 {
		return nil, 0, fmt.Errorf("kraken: API returned error: %v", body.Error)
	}

	lastRaw, ok := body.Result["last"]
	if !ok {
		return nil, 0, fmt.Errorf("kraken: malformed REST response, missing \"last\" cursor")
	}
	var lastStr string
	if err := json.Unmarshal(lastRaw, &lastStr); err != nil {
		return nil, 0, fmt.Errorf("kraken: malformed \"last\" cursor: %w", err)
	}
	last, err := strconv.ParseInt(lastStr, 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("kraken: unparseable \"last\" cursor %q: %w", lastStr, err)
	}

	pairRaw, ok := body.Result[pair]
	if !ok {
		return nil, last, nil
	}
	if err := json.Unmarshal(pairRaw, &trades); err != nil {
		return nil, last, fmt.Errorf("kraken: malformed trade rows for %s: %w", pair, err)
	}

	return trades, last, nil
}

func krakenRestTradeToDomain(symbol domain.Symbol, raw krakenRestTrade) (domain.Trade, error) {
	price, err := toFloat(raw[0])
	if err != nil {
		return domain.Trade{}, fmt.Errorf("invalid price: %w", err)
	}
	qty, err := toFloat(raw[1])
	if err != nil {
		return domain.Trade{}, fmt.Errorf("invalid qty: %w", err)
	}
	tsSec, err := toFloat(raw[2])
	if err != nil {
		return domain.Trade{}, fmt.Errorf("invalid timestamp: %w", err)
	}

	t := domain.Trade{
		Exchange:  domain.ExchangeKraken,
		Symbol:    symbol,
		Price:     price,
		Volume:    qty,
		Timestamp: int64(tsSec * 1000),
	}
	if err := t.Validate(); err != nil {
		return domain.Trade{}, err
	}
	return t, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
