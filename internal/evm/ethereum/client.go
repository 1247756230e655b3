// Package ethereum adapts a go-ethereum node client to the realtime monitor feed.
package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockinsight7000-evm/internal/evm/chain"
	"github.com/goodnatureofminers/blockinsight7000-evm/pkg/safe"
)

const defaultPollInterval = 4 * time.Second

// Options tunes the feed behaviour.
type Options struct {
	// Streaming selects eth_subscribe("newHeads"); otherwise heads are polled.
	Streaming    bool
	PollInterval time.Duration
	CallTimeout  time.Duration
}

// Client implements the monitor's chain feed on top of API.
type Client struct {
	api    API
	opts   Options
	logger *zap.Logger
}

// Dial connects to rawURL and wraps the connection with RPC metrics.
func Dial(ctx context.Context, rawURL string, opts Options, rpcMetrics RPCMetrics, logger *zap.Logger) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", redact(rawURL), err)
	}
	opts.Streaming = IsStreamingURL(rawURL)
	return NewClient(NewObservedClient(ec, rpcMetrics), opts, logger), nil
}

// NewClient constructs a Client.
func NewClient(api API, opts Options, logger *zap.Logger) *Client {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	mode := "polling"
	if opts.Streaming {
		mode = "streaming"
	}
	return &Client{
		api:    api,
		opts:   opts,
		logger: logger.Named("eth_feed").With(zap.String("mode", mode)),
	}
}

// IsStreamingURL reports whether rawURL supports push subscriptions.
func IsStreamingURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "ws", "wss":
		return true
	case "":
		// a bare path is an IPC socket
		return u.Path != ""
	default:
		return false
	}
}

func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}

func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.CallTimeout > 0 {
		return context.WithTimeout(ctx, c.opts.CallTimeout)
	}
	return context.WithCancel(ctx)
}

// LatestHeight returns the current chain height.
func (c *Client) LatestHeight(ctx context.Context) (uint64, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	height, err := c.api.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("block number: %w", err)
	}
	return height, nil
}

// SubscribeHeads delivers every new head to ch until the subscription is
// unsubscribed, ctx ends or the feed fails; a failure is reported on Err().
func (c *Client) SubscribeHeads(ctx context.Context, ch chan<- chain.Head) (chain.Subscription, error) {
	if c.opts.Streaming {
		return c.subscribeNewHead(ctx, ch)
	}
	return c.pollHeads(ctx, ch), nil
}

func (c *Client) subscribeNewHead(ctx context.Context, ch chan<- chain.Head) (chain.Subscription, error) {
	headers := make(chan *types.Header, 16)
	sub, err := c.api.SubscribeNewHead(ctx, headers)
	if err != nil {
		return nil, fmt.Errorf("subscribe new heads: %w", err)
	}

	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		for {
			select {
			case header := <-headers:
				select {
				case ch <- headFromHeader(header):
				case <-quit:
					return nil
				case <-ctx.Done():
					return nil
				}
			case err, ok := <-sub.Err():
				if !ok || err == nil {
					return errors.New("head subscription closed by node")
				}
				return fmt.Errorf("head subscription: %w", err)
			case <-quit:
				return nil
			case <-ctx.Done():
				return nil
			}
		}
	}), nil
}

func (c *Client) pollHeads(parent context.Context, ch chan<- chain.Head) chain.Subscription {
	return event.NewSubscription(func(quit <-chan struct{}) error {
		ctx, cancel := context.WithCancel(parent)
		defer cancel()
		go func() {
			select {
			case <-quit:
				cancel()
			case <-ctx.Done():
			}
		}()

		ticker := time.NewTicker(c.opts.PollInterval)
		defer ticker.Stop()

		var last uint64
		seen := false
		for {
			latest, err := c.LatestHeight(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("poll heads: %w", err)
			}

			if !seen || latest > last {
				from := latest
				if seen {
					from = last + 1
				}
				for n := from; n <= latest; n++ {
					head, err := c.headByNumber(ctx, n)
					if err != nil {
						if ctx.Err() != nil {
							return nil
						}
						return fmt.Errorf("poll heads: %w", err)
					}
					select {
					case ch <- head:
					case <-ctx.Done():
						return nil
					}
					last, seen = n, true
				}
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return nil
			}
		}
	})
}

func (c *Client) headByNumber(ctx context.Context, number uint64) (chain.Head, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	header, err := c.api.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return chain.Head{}, fmt.Errorf("header %d: %w", number, err)
	}
	return headFromHeader(header), nil
}

func headFromHeader(h *types.Header) chain.Head {
	return chain.Head{
		Number: h.Number.Uint64(),
		Hash:   h.Hash().Hex(),
	}
}

// FetchBlock returns the block metadata and its ordered transaction hashes.
func (c *Client) FetchBlock(ctx context.Context, hash string) (chain.Block, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	blk, err := c.api.BlockByHash(ctx, common.HexToHash(hash))
	if err != nil {
		return chain.Block{}, fmt.Errorf("block %s: %w", hash, err)
	}

	ts, err := safe.Int64(blk.Time())
	if err != nil {
		return chain.Block{}, fmt.Errorf("block %s time: %w", hash, err)
	}

	txs := blk.Transactions()
	hashes := make([]string, len(txs))
	for i, tx := range txs {
		hashes[i] = tx.Hash().Hex()
	}

	return chain.Block{
		Number:   blk.NumberU64(),
		Hash:     blk.Hash().Hex(),
		Time:     time.Unix(ts, 0).UTC(),
		TxHashes: hashes,
	}, nil
}

// FetchTransaction returns the transaction detail with its recovered sender.
func (c *Client) FetchTransaction(ctx context.Context, ref chain.TxRef) (chain.Transaction, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	tx, _, err := c.api.TransactionByHash(ctx, common.HexToHash(ref.Hash))
	if err != nil {
		return chain.Transaction{}, fmt.Errorf("transaction %s: %w", ref.Hash, err)
	}

	from, err := c.api.TransactionSender(ctx, tx, common.HexToHash(ref.BlockHash), ref.Index)
	if err != nil {
		return chain.Transaction{}, fmt.Errorf("transaction %s sender: %w", ref.Hash, err)
	}

	return transactionFromTypes(tx, from), nil
}

func transactionFromTypes(tx *types.Transaction, from common.Address) chain.Transaction {
	out := chain.Transaction{
		Hash:     tx.Hash().Hex(),
		From:     strings.ToLower(from.Hex()),
		Value:    tx.Value(),
		Gas:      tx.Gas(),
		GasPrice: tx.GasPrice(),
	}
	if to := tx.To(); to != nil {
		out.To = strings.ToLower(to.Hex())
	}
	return out
}

// FetchReceipt returns the execution receipt of a mined transaction.
func (c *Client) FetchReceipt(ctx context.Context, hash string) (chain.Receipt, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	r, err := c.api.TransactionReceipt(ctx, common.HexToHash(hash))
	if err != nil {
		return chain.Receipt{}, fmt.Errorf("receipt %s: %w", hash, err)
	}
	return chain.Receipt{
		TxHash:            r.TxHash.Hex(),
		Status:            r.Status,
		TransactionIndex:  r.TransactionIndex,
		GasUsed:           r.GasUsed,
		EffectiveGasPrice: r.EffectiveGasPrice,
	}, nil
}

// Close releases the node connection.
func (c *Client) Close() {
	c.api.Close()
}
