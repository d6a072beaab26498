package webvpn

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("platforms/webvpn")

// ProbeUrl redirects to the gateway when the caller is off campus.
const ProbeUrl = "https://i.njupt.edu.cn/"

type Mode string

const (
	ModeAuto Mode = "auto"
	ModeOn   Mode = "on"
	ModeOff  Mode = "off"
)

// ParseMode accepts the values a config file may carry: nil, a boolean or
// one of "auto", "on" and "off". Anything else falls back to auto.
func ParseMode(value any) Mode {
	switch v := value.(type) {
	case nil:
		return ModeAuto
	case bool:
		if v {
			return ModeOn
		}
		return ModeOff
	case string:
		switch Mode(strings.ToLower(strings.TrimSpace(v))) {
		case "", ModeAuto:
			return ModeAuto
		case ModeOn:
			return ModeOn
		case ModeOff:
			return ModeOff
		}
	}
	slog.Warn("invalid web vpn mode, falling back to auto", "mode", value)
	return ModeAuto
}

// Detect requests the probe url without following redirects and reports
// whether it was sent to the gateway.
func Detect(ctx context.Context, client *resty.Client, probeUrl string) (bool, error) {
	ctx, span := tracer.Start(ctx, "Detect")
	defer span.End()

	// the session client is shared, so redirects are turned off per request
	// through a clone of its settings
	probe := resty.NewWithClient(&http.Client{
		Jar:       client.GetClient().Jar,
		Transport: client.GetClient().Transport,
		Timeout:   client.GetClient().Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	})
	probe.SetHeaders(map[string]string{"user-agent": client.Header.Get("user-agent")})

	res, err := probe.R().
		SetContext(ctx).
		Get(probeUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to probe")
		return false, err
	}
	if res.IsError() {
		err := fmt.Errorf("GET %s: unexpected status %s", probeUrl, res.Status())
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	location := res.Header().Get("Location")
	span.SetAttributes(
		attribute.Int("status", res.StatusCode()),
		attribute.String("location", location),
	)
	return res.StatusCode() == http.StatusFound && strings.Contains(location, "webvpn"), nil
}

// Resolve turns a mode into a routing decision, probing only in auto mode.
func Resolve(ctx context.Context, mode Mode, client *resty.Client, probeUrl string) (bool, error) {
	switch mode {
	case ModeOn:
		return true, nil
	case ModeOff:
		return false, nil
	}
	return Detect(ctx, client, probeUrl)
}
