package chain

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	clierr "github.com/tradetok/copytrade/internal/errors"
)

// WaitMined polls for the receipt of txHash until it is mined or the
// deadline passes. Transient receipt-poll failures are ignored until the
// deadline; a reverted transaction is reported as an execution failure.
func (c *Client) WaitMined(ctx context.Context, chainID int64, txHash common.Hash, pollInterval, timeout time.Duration) error {
	url, err := c.endpoint(chainID)
	if err != nil {
		return err
	}
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return clierr.Wrap(clierr.CodeUnavailable, "connect rpc", err)
	}
	defer client.Close()

	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		receipt, err := client.TransactionReceipt(waitCtx, txHash)
		if err == nil && receipt != nil {
			if receipt.Status == types.ReceiptStatusSuccessful {
				return nil
			}
			return clierr.New(clierr.CodeExecution, "transaction reverted on-chain")
		}
		// Not mined yet, or a transient RPC failure; keep polling until
		// the deadline.
		select {
		case <-waitCtx.Done():
			return clierr.Wrap(clierr.CodeUnavailable, "timed out waiting for receipt", waitCtx.Err())
		case <-ticker.C:
		}
	}
}
