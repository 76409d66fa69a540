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

// BinanceWSClient is a live trade source over Binance's combined-stream
// WebSocket, normalizing each message into a domain.Trade; order-book
// depth is out of scope here.
type BinanceWSClient struct {
	symbols []domain.Symbol
	baseURL string
	logger  *zap.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

// NewBinanceWSClient builds a Binance live client for the given symbols.
// baseURL is the combined-stream websocket endpoint, e.g.
// "wss://fstream.binance.com/stream?streams=".
func NewBinanceWSClient(symbols []domain.Symbol, baseURL string, logger *zap.Logger) *BinanceWSClient {
	return &BinanceWSClient{symbols: symbols, baseURL: baseURL, logger: logger.With(zap.String("exchange", "BINANCE"))}
}

type binanceTradeMessage struct {
	Stream string `json:"stream"`
	Data   struct {
		EventType string `json:"e"`
		Symbol    string `json:"s"`
		Price     string `json:"p"`
		Quantity  string `json:"q"`
		TradeTime int64  `json:"T"`
	} `json:"data"`
}

func (bc *BinanceWSClient) Connect(ctx context.Context) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	streams := make([]string, 0, len(bc.symbols))
	for _, s := range bc.symbols {
		streams = append(streams, fmt.Sprintf("%s@trade", strings.ToLower(string(s))))
	}
	wsURL := bc.baseURL + strings.Join(streams, "/")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("binance: failed to connect websocket: %w", err)
	}
	conn.SetReadLimit(655350)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	bc.conn = conn
	bc.connected = true
	bc.logger.Info("connected", zap.String("url", wsURL))
	return nil
}

func (bc *BinanceWSClient) StreamTrades(ctx context.Context) (<-chan domain.Trade, <-chan error) {
	trades, errs := tradeChannels()

	go bc.pingLoop(ctx)

	go func() {
		defer close(trades)
		defer close(errs)

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			bc.mu.Lock()
			conn := bc.conn
			bc.mu.Unlock()
			if conn == nil {
				errs <- fmt.Errorf("binance: not connected, call Connect first")
				return
			}

			messageType, raw, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					bc.logger.Info("websocket closed normally")
					return
				}
				bc.logger.Error("websocket closed abnormally", zap.Error(err))
				errs <- fmt.Errorf("binance: abnormal websocket closure: %w", err)
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}

			var msg binanceTradeMessage
			if err := json.Unmarshal(raw, &msg); err != nil {
				bc.logger.Warn("dropping malformed frame", zap.Error(err))
				continue
			}
			if msg.Data.EventType != "trade" {
				bc.logger.Debug("unrecognized event type", zap.String("event_type", msg.Data.EventType))
				continue
			}

			t, err := binanceTradeToDomain(msg)
			if err != nil {
				bc.logger.Warn("dropping invalid trade", zap.Error(err))
				continue
			}

			select {
			case trades <- t:
			case <-ctx.Done():
				return
			}
		}
	}()

	return trades, errs
}

func binanceTradeToDomain(msg binanceTradeMessage) (domain.Trade, error) {
	price, err := strconv.ParseFloat(msg.Data.Price, 64)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("invalid price: %w", err)
	}
	qty, err := strconv.ParseFloat(msg.Data.Quantity, 64)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("invalid quantity: %w", err)
	}
	t := domain.Trade{
		Exchange:  domain.ExchangeBinance,
		Symbol:    NormalizeSymbol(msg.Data.Symbol),
		Price:     price,
		Volume:    qty,
		Timestamp: msg.Data.TradeTime,
	}
	if err := t.Validate(); err != nil {
		return domain.Trade{}, err
	}
	return t, nil
}

func (bc *BinanceWSClient) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bc.mu.Lock()
			conn := bc.conn
			bc.mu.Unlock()
			if conn == nil {
				continue
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				bc.logger.Error("failed to send ping", zap.Error(err))
			}
		}
	}
}

func (bc *BinanceWSClient) Close() error {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if bc.conn == nil {
		return nil
	}
	bc.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := bc.conn.Close()
	bc.conn = nil
	bc.connected = false
	return err
}
