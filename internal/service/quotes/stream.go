package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"SignalDesk/pkg/cache"
	"SignalDesk/pkg/logger"

	"github.com/gorilla/websocket"
)

// quoteTTL bounds how long a last price is trusted for reservation
// estimates.
const quoteTTL = 15 * time.Minute

// Stream consumes a trade-price WebSocket feed and keeps the last traded
// price per symbol in a TTL cache. It backs the at-market reservation
// estimate; a stale or missing quote just means no reservation.
type Stream struct {
	apiKey         string
	websocketURL   string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	cache  cache.Service
	logger *logger.Logger
	conn   *websocket.Conn
}

// New creates a quote stream caching into the given cache.
func New(apiKey, websocketURL string, symbols []string, reconnectDelay, pingInterval time.Duration, c cache.Service, lgr *logger.Logger) *Stream {
	return &Stream{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		cache:          c,
		logger:         lgr,
	}
}

// LastPrice returns the most recent cached trade price for symbol.
func (s *Stream) LastPrice(symbol string) (float64, bool) {
	var price float64
	if err := s.cache.Get(context.Background(), "quote:"+symbol, &price); err != nil {
		return 0, false
	}
	return price, true
}

// Start runs the connect/read loop until ctx is cancelled, reconnecting
// after errors.
func (s *Stream) Start(ctx context.Context) {
	go func() {
		for {
			if ctx.Err() != nil {
				return
			}
			if err := s.run(ctx); err != nil {
				s.logger.Warn("quote stream error", logger.Error(err))
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.reconnectDelay):
			}
		}
	}()
}

func (s *Stream) run(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", s.websocketURL, s.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("quotes connect: %w", err)
	}
	s.conn = conn
	defer conn.Close()

	for _, sym := range s.symbols {
		msg := map[string]string{"type": "subscribe", "symbol": sym}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", sym, err)
		}
	}
	s.logger.Info("quote stream connected", logger.Strings("symbols", s.symbols))

	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	go s.pingLoop(pingCtx, conn)

	for {
		if ctx.Err() != nil {
			return nil
		}
		_, b, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("quotes read: %w", err)
		}
		var m wsMessage
		if err := json.Unmarshal(b, &m); err != nil {
			continue // non-trade frame
		}
		if m.Type != "trade" {
			continue
		}
		for _, d := range m.Data {
			_ = s.cache.Set(ctx, "quote:"+d.Symbol, d.Price, quoteTTL)
		}
	}
}

func (s *Stream) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = conn.WriteMessage(websocket.PingMessage, nil)
		}
	}
}

type wsTrade struct {
	Symbol string  `json:"s"`
	Price  float64 `json:"p"`
}

type wsMessage struct {
	Type string    `json:"type"`
	Data []wsTrade `json:"data"`
}

// StaticQuotes is a fixed QuoteSource for dev mode and tests.
type StaticQuotes map[string]float64

func (q StaticQuotes) LastPrice(symbol string) (float64, bool) {
	p, ok := q[symbol]
	return p, ok
}

// NoQuotes never has a price; at-market signals then reserve nothing.
type NoQuotes struct{}

func (NoQuotes) LastPrice(string) (float64, bool) { return 0, false }
