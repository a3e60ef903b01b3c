package nats

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"golang.org/x/sync/semaphore"

	"github.com/kirillkom/invoice-carbon/internal/infrastructure/resilience"
)

const workerQueueGroup = "invoice-workers"

type Queue struct {
	conn    *nats.Conn
	subject string
	guard   *resilience.Guard
	logger  *slog.Logger
	slots   *semaphore.Weighted
	workers int64
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	// MaxConcurrent caps invoices processed at once by one subscriber.
	MaxConcurrent int
	Guard         *resilience.Guard
	Logger        *slog.Logger
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("invoice-carbon"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return newQueue(conn, subject, options.Guard, logger, options.MaxConcurrent), nil
}

func newQueue(conn *nats.Conn, subject string, guard *resilience.Guard, logger *slog.Logger, maxConcurrent int) *Queue {
	if strings.TrimSpace(subject) == "" {
		subject = "invoices.uploaded"
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		conn:    conn,
		subject: subject,
		guard:   guard,
		logger:  logger,
		slots:   semaphore.NewWeighted(int64(maxConcurrent)),
		workers: int64(maxConcurrent),
	}
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishInvoiceUploaded(ctx context.Context, invoiceID string) error {
	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, []byte(invoiceID)); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	var err error
	if q.guard != nil {
		err = q.guard.Do(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeInvoiceUploaded blocks until ctx is done, then drains the
// subscription and waits for in-flight handlers.
func (q *Queue) SubscribeInvoiceUploaded(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, workerQueueGroup, func(msg *nats.Msg) {
		q.dispatch(ctx, string(msg.Data), handler)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	q.wait()
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

// dispatch runs handler on its own goroutine once a slot is free. The
// message callback blocks while all slots are taken, which pushes back on
// the subscription. Messages that arrive after shutdown starts are logged
// and left for redelivery.
func (q *Queue) dispatch(ctx context.Context, invoiceID string, handler func(context.Context, string) error) {
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return
	}
	if err := ctx.Err(); err != nil {
		q.logger.Warn("invoice_dispatch_skipped", "invoice_id", invoiceID, "error", err)
		return
	}
	if err := q.slots.Acquire(ctx, 1); err != nil {
		q.logger.Warn("invoice_dispatch_skipped", "invoice_id", invoiceID, "error", err)
		return
	}
	go func() {
		defer q.slots.Release(1)

		handlerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()
		if err := handler(handlerCtx, invoiceID); err != nil {
			q.logger.Error("worker_handler_failed", "invoice_id", invoiceID, "error", err)
		}
	}()
}

func (q *Queue) wait() {
	_ = q.slots.Acquire(context.Background(), q.workers)
	q.slots.Release(q.workers)
}
