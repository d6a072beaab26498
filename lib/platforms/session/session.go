package session

import (
	"net/http/cookiejar"
	"scorepusher/lib/restyutil"
	"scorepusher/lib/telemetry"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/publicsuffix"
)

const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type Options struct {
	// defaults to 30 seconds
	Timeout time.Duration
	// optional, receives full http exchanges while debug logging is on
	Dump restyutil.InstrumentOutput
}

// New returns a browser-like http client with its own cookie jar. The
// cookies it collects during login are what authenticate later portal
// requests, so one client should be used per fetch.
func New(opts Options) (*resty.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{
		PublicSuffixList: publicsuffix.List,
	})
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	client := resty.New()
	client.SetCookieJar(jar)
	client.SetTimeout(timeout)
	client.SetHeader("user-agent", UserAgent)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))

	telemetry.InstrumentResty(client, "platforms/http")
	restyutil.InstrumentClient(client, opts.Dump)

	return client, nil
}
