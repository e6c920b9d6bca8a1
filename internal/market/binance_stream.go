package market

import (
	"context"
	"strconv"

	"github.com/tradecore/engine/internal/binance"
	"github.com/tradecore/engine/internal/money"
)

// BinanceStream is the Stream implementation for Binance, built on the
// gorilla/websocket-backed binance.WSClient.
type BinanceStream struct {
	testnet bool
}

// NewBinanceStream constructs a BinanceStream.
func NewBinanceStream(testnet bool) *BinanceStream {
	return &BinanceStream{testnet: testnet}
}

func (s *BinanceStream) Name() string { return "binance" }

// Run connects, subscribes to trade streams for every symbol, and blocks
// forwarding parsed ticks to onTick until ctx is cancelled or the
// connection drops.
func (s *BinanceStream) Run(ctx context.Context, symbols []string, onTick func(symbol string, price money.Price)) error {
	done := make(chan error, 1)

	handler := &tickHandler{onTick: onTick, done: done}

	opts := []binance.WSClientOption{}
	if s.testnet {
		opts = append(opts, binance.WithWSTestnet(true))
	}
	client := binance.NewWSClient(handler, opts...)

	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Disconnect()

	for _, symbol := range symbols {
		if err := client.SubscribeTrade(symbol); err != nil {
			return err
		}
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-done:
		return err
	}
}

// tickHandler adapts binance's event-callback WSHandler interface to the
// Stream.Run onTick contract: extract a Price for the tracked symbol or
// drop the message.
type tickHandler struct {
	binance.DefaultWSHandler
	onTick func(symbol string, price money.Price)
	done   chan error
}

func (h *tickHandler) OnTrade(event binance.TradeEvent) {
	v, err := strconv.ParseFloat(event.Price, 64)
	if err != nil {
		return
	}
	price, err := money.NewPrice(v)
	if err != nil {
		return
	}
	h.onTick(event.Symbol, price)
}

func (h *tickHandler) OnError(err error) {
	select {
	case h.done <- err:
	default:
	}
}

func (h *tickHandler) OnDisconnect() {
	select {
	case h.done <- errDisconnected:
	default:
	}
}

var errDisconnected = disconnectedError{}

type disconnectedError struct{}

func (disconnectedError) Error() string { return "binance stream disconnected" }
