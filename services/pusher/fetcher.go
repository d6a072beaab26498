package pusher

import (
	"context"
	"log/slog"
	"scorepusher/lib/platforms/eas"
	"scorepusher/lib/platforms/session"
	"scorepusher/lib/platforms/sso"
	"scorepusher/lib/platforms/webvpn"
	"scorepusher/lib/restyutil"
	"scorepusher/lib/scores"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Fetcher produces the current snapshot.
type Fetcher interface {
	Fetch(ctx context.Context) (scores.Snapshot, error)
}

type PortalOptions struct {
	// the student id doubles as the sso username
	Username   string
	Password   string
	WebVpnMode webvpn.Mode
	// defaults to sso.LoginUrl of the resolved route
	LoginUrl string
	// defaults to webvpn.ProbeUrl
	ProbeUrl string
	Dump     restyutil.InstrumentOutput
}

// PortalFetcher signs in to the academic portal with a fresh session on
// every fetch and reads the score page.
type PortalFetcher struct {
	opts PortalOptions
}

func NewPortalFetcher(opts PortalOptions) PortalFetcher {
	if opts.ProbeUrl == "" {
		opts.ProbeUrl = webvpn.ProbeUrl
	}
	if opts.WebVpnMode == "" {
		opts.WebVpnMode = webvpn.ModeAuto
	}
	return PortalFetcher{opts: opts}
}

// routeUrls returns the sign in page and the portal's CAS service url for
// the chosen route. A configured login url applies to both routes.
func (f PortalFetcher) routeUrls(useWebVpn bool) (loginUrl, serviceUrl string) {
	loginUrl = f.opts.LoginUrl
	if loginUrl == "" {
		loginUrl = sso.LoginUrl(useWebVpn)
	}
	return loginUrl, eas.ServiceUrlFor(useWebVpn)
}

func (f PortalFetcher) Fetch(ctx context.Context) (scores.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "PortalFetcher:Fetch")
	defer span.End()

	client, err := session.New(session.Options{Dump: f.opts.Dump})
	if err != nil {
		span.SetStatus(codes.Error, "failed to create session")
		return nil, err
	}

	useWebVpn, err := webvpn.Resolve(ctx, f.opts.WebVpnMode, client, f.opts.ProbeUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to detect web vpn")
		return nil, err
	}
	span.SetAttributes(attribute.Bool("web_vpn", useWebVpn))
	if useWebVpn {
		slog.InfoContext(ctx, "routing through web vpn")
	} else {
		slog.InfoContext(ctx, "routing directly")
	}

	loginUrl, serviceUrl := f.routeUrls(useWebVpn)
	err = sso.Login(ctx, client, sso.LoginOptions{
		LoginUrl: loginUrl,
		Username: f.opts.Username,
		Password: f.opts.Password,
	})
	if err != nil {
		span.SetStatus(codes.Error, "failed to login")
		return nil, err
	}
	err = sso.GrantService(ctx, client, loginUrl, serviceUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to grant portal session")
		return nil, err
	}

	portal, err := eas.NewClient(client, eas.ClientOptions{
		BaseUrl:   eas.BaseUrl(useWebVpn),
		StudentId: f.opts.Username,
	})
	if err != nil {
		return nil, err
	}
	return portal.GetScores(ctx)
}
