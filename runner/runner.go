// Package runner drives the export pipeline end to end: list, fetch,
// order, convert, assemble, write. The pipeline is strictly sequential;
// remote calls are paced by a shared rate limiter.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/LucasBadico/mailbook/config"
	"github.com/LucasBadico/mailbook/document"
	"github.com/LucasBadico/mailbook/extract"
	"github.com/LucasBadico/mailbook/filter"
	"github.com/LucasBadico/mailbook/mailbox"
	"github.com/LucasBadico/mailbook/markdown"
	"github.com/LucasBadico/mailbook/mboxout"
	"github.com/LucasBadico/mailbook/model"
	"github.com/LucasBadico/mailbook/progress"
	"github.com/LucasBadico/mailbook/stats"
	"github.com/LucasBadico/mailbook/writer"
)

// Options wire a Runner.
type Options struct {
	Config    config.Config
	Client    mailbox.Client
	Logger    *slog.Logger
	SourceTag string
}

// Runner executes one export run.
type Runner struct {
	cfg       config.Config
	client    mailbox.Client
	logger    *slog.Logger
	sourceTag string

	collector *stats.Collector
	converter *markdown.Converter
	limiter   *rate.Limiter
	filter    *filter.Filter
}

// New validates the wiring and builds a Runner.
func New(opts Options) (*Runner, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("mailbox client must not be nil")
	}

	f, err := filter.New(filter.Options{
		IncludeHeader: opts.Config.IncludeHeader,
		IncludeBody:   opts.Config.IncludeBody,
		ExcludeHeader: opts.Config.ExcludeHeader,
		ExcludeBody:   opts.Config.ExcludeBody,
	})
	if err != nil {
		return nil, err
	}

	return &Runner{
		cfg:       opts.Config,
		client:    opts.Client,
		logger:    opts.Logger,
		sourceTag: opts.SourceTag,
		collector: stats.NewCollector(),
		converter: markdown.NewConverter(),
		limiter:   rate.NewLimiter(rate.Limit(opts.Config.RatePerSec), 1),
		filter:    f,
	}, nil
}

// Summary returns the run statistics collected so far.
func (r *Runner) Summary() stats.Summary {
	return r.collector.Snapshot()
}

// Run executes the pipeline. Per-message failures are recorded and
// skipped; only listing failures and output setup failures abort the
// run.
func (r *Runner) Run(ctx context.Context) error {
	started := time.Now()

	ids, err := mailbox.ListAll(ctx, r.client, r.cfg.Query, r.cfg.Max, r.limiter)
	if err != nil {
		return fmt.Errorf("list messages: %w", err)
	}
	for _, id := range ids {
		r.collector.Record(stats.Event{Stage: stats.StageList, Type: stats.EventTypeListed, MessageID: id})
	}

	if len(ids) == 0 {
		r.logger.Info("no messages found", "query", r.cfg.Query)
		return nil
	}
	r.logger.Info("matched messages", "query", r.cfg.Query, "count", len(ids))

	bar := progress.New(len(ids), r.cfg.LogLevel)
	results := mailbox.FetchAll(ctx, r.client, ids, r.limiter, r.logger, func(res model.FetchResult) {
		evt := stats.Event{Stage: stats.StageFetch, Type: stats.EventTypeFetched, MessageID: res.ID}
		if res.Err != nil {
			evt.Type = stats.EventTypeFetchError
			evt.Err = res.Err
		}
		r.collector.Record(evt)
		bar.Update(evt)
	})
	bar.Stop()

	msgs := mailbox.Successes(results)
	mailbox.SortByReceipt(msgs)

	out, err := writer.New(r.cfg.OutDir)
	if err != nil {
		return err
	}
	r.logger.Info("writing documents", "dir", out.Dir(), "count", len(msgs))

	archive, err := r.openArchive()
	if err != nil {
		return err
	}
	if archive != nil {
		defer func() {
			if err := archive.Close(); err != nil {
				r.logger.Warn("close mbox archive", "err", err)
			}
		}()
	}

	ordinal := 0
	for _, msg := range msgs {
		body := extract.BestBody(msg.Payload)
		content := r.convertBody(msg, body)

		if r.filter.Active() && !r.filter.AllowsMessage(msg, filterText(body)) {
			r.collector.Record(stats.Event{Stage: stats.StageConvert, Type: stats.EventTypeFiltered, MessageID: msg.ID})
			r.logger.Debug("filtered out", "id", msg.ID, "subject", msg.Header("Subject"))
			continue
		}

		ordinal++
		if content == "" {
			r.collector.Record(stats.Event{Stage: stats.StageConvert, Type: stats.EventTypeEmptyBody, MessageID: msg.ID})
		}

		doc := document.Build(ordinal, msg, content, document.Options{
			Prefix:    r.cfg.Prefix,
			SourceTag: r.sourceTag,
		})

		path, err := out.Write(doc)
		if err != nil {
			r.collector.Record(stats.Event{Stage: stats.StageWrite, Type: stats.EventTypeError, MessageID: msg.ID, Err: err})
			r.logger.Error("write document failed", "id", msg.ID, "err", err)
			continue
		}
		r.collector.Record(stats.Event{Stage: stats.StageWrite, Type: stats.EventTypeWritten, MessageID: msg.ID})
		r.logger.Info("wrote document", "ordinal", ordinal, "file", path, "subject", msg.Header("Subject"))

		if archive != nil {
			r.archiveRaw(ctx, archive, msg)
		}
	}

	summary := r.collector.Snapshot()
	duration := time.Since(started)
	r.logger.Info("export complete", append(summary.LogAttrs(), "duration", duration)...)
	progress.PrintSummary(summary, duration, r.cfg.LogLevel == "info")

	return nil
}

// convertBody applies the body priority rule: HTML through the
// converter, plain text verbatim, otherwise empty.
func (r *Runner) convertBody(msg model.Message, body model.ExtractedBody) string {
	if body.HTML != "" {
		content, err := r.converter.Convert(body.HTML)
		if err != nil {
			r.logger.Warn("html conversion failed, falling back to plain text", "id", msg.ID, "err", err)
			return body.Text
		}
		return content
	}
	return body.Text
}

func (r *Runner) openArchive() (*mboxout.Archive, error) {
	if r.cfg.MboxPath == "" {
		return nil, nil
	}
	if _, ok := r.client.(mailbox.RawFetcher); !ok {
		return nil, fmt.Errorf("--mbox is not supported by the %s source", r.sourceTag)
	}
	return mboxout.Open(r.cfg.MboxPath)
}

func (r *Runner) archiveRaw(ctx context.Context, archive *mboxout.Archive, msg model.Message) {
	rawClient := r.client.(mailbox.RawFetcher)

	if err := r.limiter.Wait(ctx); err != nil {
		r.collector.Record(stats.Event{Stage: stats.StageWrite, Type: stats.EventTypeError, MessageID: msg.ID, Err: err})
		return
	}

	raw, err := rawClient.GetRawMessage(ctx, msg.ID)
	if err == nil {
		err = archive.Append(raw)
	}
	if err != nil {
		r.collector.Record(stats.Event{Stage: stats.StageWrite, Type: stats.EventTypeError, MessageID: msg.ID, Err: err})
		r.logger.Warn("archive message failed", "id", msg.ID, "err", err)
		return
	}
	r.collector.Record(stats.Event{Stage: stats.StageWrite, Type: stats.EventTypeArchived, MessageID: msg.ID})
}

// filterText selects the body text the local filters run against:
// the plain-text candidate when present, the raw HTML otherwise.
func filterText(body model.ExtractedBody) string {
	if body.Text != "" {
		return body.Text
	}
	return body.HTML
}
