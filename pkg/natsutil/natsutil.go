// Package natsutil provides typed NATS publish/subscribe and request/reply
// helpers with OpenTelemetry trace propagation.
package natsutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
)

// natsHeaderCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type natsHeaderCarrier nats.Msg

func (c *natsHeaderCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *natsHeaderCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *natsHeaderCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// Reply is the envelope sent back on request/reply subjects. Exactly one
// of Data and Error is set.
type Reply[T any] struct {
	Data  *T     `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// RemoteError is a handler failure reported by the responder.
type RemoteError struct {
	Subject string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: remote error: %s", e.Subject, e.Message)
}

// ErrEmptyReply is returned when a reply carries neither data nor error.
var ErrEmptyReply = errors.New("empty reply")

func newMsg(ctx context.Context, subject string, v any) (*nats.Msg, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", subject, err)
	}
	msg := &nats.Msg{Subject: subject, Data: data, Header: nats.Header{}}
	msg.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, (*natsHeaderCarrier)(msg))
	return msg, nil
}

// Publish serializes v as JSON and publishes to the given subject.
// Trace context from ctx is injected into NATS message headers.
func Publish[T any](ctx context.Context, nc *nats.Conn, subject string, v T) error {
	msg, err := newMsg(ctx, subject, v)
	if err != nil {
		return err
	}
	return nc.PublishMsg(msg)
}

// Subscribe registers a handler that deserializes JSON messages of type T.
// Trace context is extracted from NATS message headers and passed to the
// handler. Malformed messages are logged and dropped.
func Subscribe[T any](nc *nats.Conn, subject string, logger *slog.Logger, handler func(context.Context, T)) (*nats.Subscription, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		var v T
		if err := json.Unmarshal(msg.Data, &v); err != nil {
			logger.Warn("dropping malformed message", "subject", msg.Subject, "err", err)
			return
		}
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*natsHeaderCarrier)(msg))
		handler(ctx, v)
	})
}

// Handle serves request/reply on subject within queue so several workers
// can share the load. Each request is answered with a Reply; handler errors
// and undecodable requests become Reply.Error. The handler runs on the
// subscription goroutine, so requests are processed one at a time per worker.
func Handle[Req, Resp any](nc *nats.Conn, subject, queue string, logger *slog.Logger, handler func(context.Context, Req) (Resp, error)) (*nats.Subscription, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return nc.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*natsHeaderCarrier)(msg))
		reply := serve(ctx, msg.Data, handler)
		if reply.Error != "" {
			logger.Warn("request failed", "subject", msg.Subject, "err", reply.Error)
		}
		if msg.Reply == "" {
			return
		}
		out, err := newMsg(ctx, msg.Reply, reply)
		if err != nil {
			logger.Error("encode reply", "subject", msg.Subject, "err", err)
			return
		}
		if err := msg.RespondMsg(out); err != nil {
			logger.Error("send reply", "subject", msg.Subject, "err", err)
		}
	})
}

func serve[Req, Resp any](ctx context.Context, data []byte, handler func(context.Context, Req) (Resp, error)) Reply[Resp] {
	var req Req
	if err := json.Unmarshal(data, &req); err != nil {
		return Reply[Resp]{Error: "malformed request: " + err.Error()}
	}
	resp, err := handler(ctx, req)
	if err != nil {
		return Reply[Resp]{Error: err.Error()}
	}
	return Reply[Resp]{Data: &resp}
}

// Request sends a JSON-encoded request to a Handle responder and decodes
// the reply. The deadline comes from ctx.
func Request[Req, Resp any](ctx context.Context, nc *nats.Conn, subject string, req Req) (Resp, error) {
	var zero Resp
	msg, err := newMsg(ctx, subject, req)
	if err != nil {
		return zero, err
	}
	resp, err := nc.RequestMsgWithContext(ctx, msg)
	if err != nil {
		return zero, err
	}
	return decodeReply[Resp](subject, resp.Data)
}

func decodeReply[Resp any](subject string, data []byte) (Resp, error) {
	var zero Resp
	var reply Reply[Resp]
	if err := json.Unmarshal(data, &reply); err != nil {
		return zero, fmt.Errorf("decode reply from %s: %w", subject, err)
	}
	if reply.Error != "" {
		return zero, &RemoteError{Subject: subject, Message: reply.Error}
	}
	if reply.Data == nil {
		return zero, fmt.Errorf("%s: %w", subject, ErrEmptyReply)
	}
	return *reply.Data, nil
}
