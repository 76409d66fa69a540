package exchanges

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"cryptopulse/internal/domain"
)

// BybitWSClient is a live trade source subscribed to Bybit's publicTrade
// stream, handling the subscribe-per-stream and ping/pong control-message
// protocol.
type BybitWSClient struct {
	symbols  []domain.Symbol
	endpoint string
	logger   *zap.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewBybitWSClient builds a Bybit live client for the given symbols.
func NewBybitWSClient(symbols []domain.Symbol, endpoint string, logger *zap.Logger) *BybitWSClient {
	return &BybitWSClient{symbols: symbols, endpoint: endpoint, logger: logger.With(zap.String("exchange", "BYBIT"))}
}

func (b *BybitWSClient) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, b.endpoint, nil)
	if err != nil {
		return fmt.Errorf("bybit: failed to connect websocket: %w", err)
	}
	b.conn = conn

	for _, s := range b.symbols {
		stream := fmt.Sprintf("publicTrade.%s", strings.ToUpper(string(s)))
		sub := map[string]any{"op": "subscribe", "args": []string{stream}}
		if err := conn.WriteJSON(sub); err != nil {
			return fmt.Errorf("bybit: failed to subscribe to %s: %w", stream, err)
		}
	}

	go b.pingLoop(ctx)

	b.logger.Info("subscribed to trades", zap.Any("symbols", b.symbols))
	return nil
}

func (b *BybitWSClient) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.mu.Lock()
			conn := b.conn
			b.mu.Unlock()
			if conn == nil {
				continue
			}
			if err := conn.WriteJSON(map[string]any{"op": "ping"}); err != nil {
				b.logger.Error("failed to send ping", zap.Error(err))
			}
		}
	}
}

type bybitEnvelope struct {
	Topic string          `json:"topic"`
	Op    string          `json:"op"`
	Data  json.RawMessage `json:"data"`
}

type bybitTradeData struct {
	Symbol string `json:"s"`
	Price  string `json:"p"`
	Size   string `json:"v"`
	Time   int64  `json:"T"`
}

func (b *BybitWSClient) StreamTrades(ctx context.Context) (<-chan domain.Trade, <-chan error) {
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

			b.mu.Lock()
			conn := b.conn
			b.mu.Unlock()
			if conn == nil {
				errs <- fmt.Errorf("bybit: not connected, call Connect first")
				return
			}

			_, raw, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					b.logger.Info("websocket closed normally")
					return
				}
				b.logger.Error("websocket closed abnormally", zap.Error(err))
				errs <- fmt.Errorf("bybit: abnormal websocket closure: %w", err)
				return
			}

			var env bybitEnvelope
			if err := json.Unmarshal(raw, &env); err != nil {
				b.logger.Warn("dropping malformed frame", zap.Error(err))
				continue
			}

			switch {
			case env.Op == "pong" || env.Op == "ping" || env.Op == "subscribe":
				continue
			case strings.HasPrefix(env.Topic, "publicTrade."):
				var rows []bybitTradeData
				if err := json.Unmarshal(env.Data, &rows); err != nil {
					b.logger.Warn("dropping malformed trade frame", zap.Error(err))
					continue
				}
				for _, row := range rows {
					t, err := bybitTradeToDomain(row)
					if err != nil {
						b.logger.Warn("dropping invalid trade", zap.Error(err))
						continue
					}
					select {
					case trades <- t:
					case <-ctx.Done():
						return
					}
				}
			default:
				b.logger.Info("unrecognized topic", zap.String("topic", env.Topic))
			}
		}
	}()

	return trades, errs
}

func bybitTradeToDomain(row bybitTradeData) (domain.Trade, error) {
	price, err := strconv.ParseFloat(row.Price, 64)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("invalid price: %w", err)
	}
	size, err := strconv.ParseFloat(row.Size, 64)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("invalid size: %w", err)
	}
	t := domain.Trade{
		Exchange:  domain.ExchangeBybit,
		Symbol:    NormalizeSymbol(row.Symbol),
		Price:     price,
		Volume:    size,
		Timestamp: row.Time,
	}
	if err := t.Validate(); err != nil {
		return domain.Trade{}, err
	}
	return t, nil
}

func (b *BybitWSClient) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	b.conn = nil
	return err
}
