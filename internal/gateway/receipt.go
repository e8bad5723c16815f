package gateway

import (
	"context"
	"time"

	"sealcheck.io/sealcheck/internal/pkg/errors"
)

// Receipt is the confirmation record of a submitted transaction.
type Receipt struct {
	TransactionHash string `json:"transactionHash"`
	Success         bool   `json:"success"`
	ContractAddress string `json:"contractAddress,omitempty"`
	FailureMessage  string `json:"failureMessage,omitempty"`
}

// Rejected reports whether a failed receipt carries recognizable denial
// text. Execution-time denials surface here rather than at submission.
func (r *Receipt) Rejected() bool {
	return !r.Success && isDenialMessage(r.FailureMessage)
}

// WaitReceipt polls for a transaction receipt until it appears or the
// bounded timeout elapses. This is the commit barrier: a write is only
// treated as observable after its receipt confirms.
func WaitReceipt(ctx context.Context, c *Client, txID string, interval, timeout time.Duration) (*Receipt, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		var rcpt *Receipt
		if err := c.Invoke(ctx, "ptx_getTransactionReceipt", []interface{}{txID}, &rcpt); err != nil {
			return nil, err
		}
		if rcpt != nil {
			return rcpt, nil
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), errors.CodeReceiptTimeout,
				"context cancelled awaiting receipt for "+txID, errors.ScopeCase)
		case <-deadline.C:
			return nil, errors.Wrap(errors.ErrTimeout, errors.CodeReceiptTimeout,
				"no receipt for "+txID+" within "+timeout.String(), errors.ScopeCase)
		case <-tick.C:
		}
	}
}
