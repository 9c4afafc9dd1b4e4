// Package mailbox defines the remote-mailbox client boundary and the
// backend-independent listing, fetching and ordering steps.
package mailbox

import (
	"context"
	"log/slog"
	"sort"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/LucasBadico/mailbook/model"
)

// MaxPageSize is the hard per-page protocol limit. A single list
// request never asks for more than this, regardless of the caller's
// overall maximum.
const MaxPageSize = 500

// Client is an authorized mailbox client. Implementations never manage
// credentials inside this package; they arrive ready to use.
type Client interface {
	// ListMessageIDs returns up to pageSize message identifiers
	// matching query, starting at the opaque continuation token
	// (empty for the first page), plus the next continuation token
	// (empty when the listing is exhausted).
	ListMessageIDs(ctx context.Context, query, pageToken string, pageSize int64) (ids []string, nextPageToken string, err error)

	// GetMessage fetches the full content of one message.
	GetMessage(ctx context.Context, id string) (model.Message, error)
}

// RawFetcher is an optional client capability for retrieving a
// message's raw RFC 822 bytes, used by the mbox archive.
type RawFetcher interface {
	GetRawMessage(ctx context.Context, id string) ([]byte, error)
}

// ListAll collects message identifiers matching query across pages,
// capped at max. Each round requests min(MaxPageSize, remaining); the
// loop stops when the cap is reached or the server stops offering a
// continuation token. Fewer results than max is not an error.
func ListAll(ctx context.Context, c Client, query string, max int, limiter *rate.Limiter) ([]string, error) {
	var ids []string
	pageToken := ""

	for {
		remaining := max - len(ids)
		if remaining <= 0 {
			break
		}

		pageSize := int64(remaining)
		if pageSize > MaxPageSize {
			pageSize = MaxPageSize
		}

		if err := wait(ctx, limiter); err != nil {
			return nil, err
		}

		batch, next, err := c.ListMessageIDs(ctx, query, pageToken, pageSize)
		if err != nil {
			return nil, err
		}
		ids = append(ids, batch...)

		if next == "" {
			break
		}
		pageToken = next
	}

	return ids, nil
}

// FetchAll retrieves the full content of every identifier in order. A
// failed fetch is recorded in its FetchResult and never aborts the
// batch. notify, when non-nil, is invoked once per result as it
// arrives.
func FetchAll(ctx context.Context, c Client, ids []string, limiter *rate.Limiter, logger *slog.Logger, notify func(model.FetchResult)) []model.FetchResult {
	results := make([]model.FetchResult, 0, len(ids))

	for _, id := range ids {
		if err := wait(ctx, limiter); err != nil {
			results = append(results, model.FetchResult{ID: id, Err: err})
			break
		}

		msg, err := c.GetMessage(ctx, id)
		res := model.FetchResult{ID: id, Message: msg, Err: err}
		if err != nil && logger != nil {
			logger.Warn("fetch message failed", "id", id, "err", err)
		}

		results = append(results, res)
		if notify != nil {
			notify(res)
		}
	}

	return results
}

// Successes filters fetch results down to the retrieved messages,
// preserving fetch order.
func Successes(results []model.FetchResult) []model.Message {
	msgs := make([]model.Message, 0, len(results))
	for _, res := range results {
		if res.Err == nil {
			msgs = append(msgs, res.Message)
		}
	}
	return msgs
}

// SortByReceipt orders messages ascending by receipt timestamp. A
// missing or non-numeric timestamp sorts as zero; equal timestamps
// keep their fetch order.
func SortByReceipt(msgs []model.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return receiptMillis(msgs[i]) < receiptMillis(msgs[j])
	})
}

func receiptMillis(msg model.Message) int64 {
	n, err := strconv.ParseInt(msg.InternalDate, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func wait(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}
