package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/f1-penalty-rag/internal/infrastructure/resilience"
)

// Queue carries document ingest requests from the API to workers.
type Queue struct {
	conn           *nats.Conn
	subject        string
	executor       *resilience.Executor
	handlerTimeout time.Duration
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	// HandlerTimeout bounds one ingest; zero leaves it to the caller.
	HandlerTimeout time.Duration
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

	conn, err := nats.Connect(
		url,
		nats.Name("f1-penalty-rag"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:           conn,
		subject:        subject,
		executor:       options.ResilienceExecutor,
		handlerTimeout: options.HandlerTimeout,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

type ingestMessage struct {
	URL         string    `json:"url"`
	RequestedAt time.Time `json:"requested_at"`
}

func encodeIngestMessage(url string, at time.Time) ([]byte, error) {
	return json.Marshal(ingestMessage{URL: url, RequestedAt: at.UTC()})
}

// decodeIngestMessage also accepts a bare URL payload.
func decodeIngestMessage(data []byte) (ingestMessage, error) {
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return ingestMessage{}, errors.New("empty ingest message")
	}
	if !strings.HasPrefix(raw, "{") {
		return ingestMessage{URL: raw}, nil
	}
	var msg ingestMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return ingestMessage{}, fmt.Errorf("decode ingest message: %w", err)
	}
	if msg.URL == "" {
		return ingestMessage{}, errors.New("ingest message has no url")
	}
	return msg, nil
}

func (q *Queue) PublishIngestRequest(ctx context.Context, url string) error {
	data, err := encodeIngestMessage(url, time.Now())
	if err != nil {
		return fmt.Errorf("encode ingest message: %w", err)
	}
	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, data); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if err := q.executor.Execute(ctx, "nats.publish", call, classifyNATSError); err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeIngestRequests runs handler for each request until ctx is done,
// then drains the subscription.
func (q *Queue) SubscribeIngestRequests(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, "workers", func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		request, err := decodeIngestMessage(msg.Data)
		if err != nil {
			slog.Warn("ingest_message_rejected", "error", err)
			return
		}

		handlerCtx, cancel := q.handlerContext(ctx)
		defer cancel()
		if err := handler(handlerCtx, request.URL); err != nil {
			slog.Error("ingest_request_failed", "url", request.URL, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	slog.Info("ingest_subscription_started", "subject", q.subject)

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func (q *Queue) handlerContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if q.handlerTimeout > 0 {
		return context.WithTimeout(ctx, q.handlerTimeout)
	}
	return context.WithCancel(ctx)
}
