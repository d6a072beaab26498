package telegram

import (
	"context"
	"fmt"
	"net/url"
	"scorepusher/lib/notify/fields"
	"scorepusher/lib/telemetry"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("notify/telegram")

const (
	Type           = "telegram"
	DefaultApiBase = "https://api.telegram.org"
)

type Options struct {
	Token   string      `json:"token" validate:"required"`
	ChatId  fields.Text `json:"chat_id" validate:"required"`
	ApiBase string      `json:"api_base" validate:"omitempty,url"`
}

// StatusError is a request the bot api answered with an error.
type StatusError struct {
	Code        int
	Description string
}

func (e *StatusError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("telegram: status %d", e.Code)
	}
	return fmt.Sprintf("telegram: status %d: %s", e.Code, e.Description)
}

func (e *StatusError) StatusCode() int {
	return e.Code
}

type apiResponse struct {
	Ok          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

type Channel struct {
	http    *resty.Client
	token   string
	chatId  string
	apiBase string
}

func New(config map[string]any) (*Channel, error) {
	opts, err := fields.Decode[Options](config)
	if err != nil {
		return nil, err
	}
	return NewWithOptions(opts), nil
}

func NewWithOptions(opts Options) *Channel {
	apiBase := opts.ApiBase
	if apiBase == "" {
		apiBase = DefaultApiBase
	}

	client := resty.New()
	client.SetTimeout(10 * time.Second)
	// the token is part of every request path
	telemetry.InstrumentResty(client, "notify/telegram/http", opts.Token, url.PathEscape(opts.Token))

	return &Channel{
		http:    client,
		token:   opts.Token,
		chatId:  opts.ChatId.String(),
		apiBase: strings.TrimSuffix(apiBase, "/"),
	}
}

func (c *Channel) Type() string {
	return Type
}

// Push sends message as plain text through the sendMessage method.
func (c *Channel) Push(ctx context.Context, message string) error {
	ctx, span := tracer.Start(ctx, "Push")
	defer span.End()

	var result apiResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"chat_id": c.chatId,
			"text":    message,
		}).
		SetResult(&result).
		SetError(&result).
		Get(fmt.Sprintf("%s/bot%s/sendMessage", c.apiBase, c.token))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send message")
		// the request url carries the bot token
		return fmt.Errorf("telegram: send message: %w", redact(err, c.token))
	}
	if res.IsError() || !result.Ok {
		err := &StatusError{Code: res.StatusCode(), Description: result.Description}
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

type redactedError struct {
	message string
	err     error
}

func (e redactedError) Error() string {
	return e.message
}

func (e redactedError) Unwrap() error {
	return e.err
}

func redact(err error, token string) error {
	if token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return redactedError{
		message: strings.ReplaceAll(err.Error(), token, "<token>"),
		err:     err,
	}
}
