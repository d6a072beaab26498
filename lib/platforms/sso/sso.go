// Package sso signs a session into the campus CAS server and grants it
// tickets for downstream services.
package sso

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"scorepusher/lib/htmlutil"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("platforms/sso")

const (
	DefaultLoginUrl = "https://i.njupt.edu.cn/cas/login"
	// the gateway root redirects to its own sign in form, which is backed
	// by the same CAS accounts
	WebVpnLoginUrl = "https://vpn.njupt.edu.cn:8443/"
)

// LoginUrl returns the sign in page for the chosen route.
func LoginUrl(useWebVpn bool) string {
	if useWebVpn {
		return WebVpnLoginUrl
	}
	return DefaultLoginUrl
}

var ErrInvalidCredentials = errors.New("incorrect username or password")
var ErrNotAuthenticated = errors.New("session is not signed in")

type LoginOptions struct {
	LoginUrl string
	Username string
	Password string
}

// loginForm finds the form holding the password input, nil when the page
// does not ask for credentials.
func loginForm(doc *goquery.Document) *goquery.Selection {
	form := doc.Find(`form:has(input[name="password"])`).First()
	if form.Length() == 0 {
		return nil
	}
	return form
}

func formAction(form *goquery.Selection, page *url.URL) (string, error) {
	action := strings.TrimSpace(form.AttrOr("action", ""))
	if action == "" {
		return page.String(), nil
	}
	ref, err := url.Parse(action)
	if err != nil {
		return "", err
	}
	return page.ResolveReference(ref).String(), nil
}

func parse(res *resty.Response) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
}

func finalUrl(res *resty.Response) *url.URL {
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		return res.RawResponse.Request.URL
	}
	parsed, _ := url.Parse(res.Request.URL)
	return parsed
}

func errorMessage(doc *goquery.Document) string {
	for _, selector := range []string{"#errormsg", "#msg", ".login-error", ".errors"} {
		text := htmlutil.Text(doc.Find(selector))
		if text != "" {
			return text
		}
	}
	return ""
}

// Login submits the CAS login form with the given credentials. The
// session cookies of client carry the resulting ticket granting ticket.
func Login(ctx context.Context, client *resty.Client, opts LoginOptions) error {
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	loginUrl := opts.LoginUrl
	if loginUrl == "" {
		loginUrl = DefaultLoginUrl
	}

	res, err := client.R().
		SetContext(ctx).
		Get(loginUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch (1)")
		return err
	}
	if res.IsError() {
		span.SetStatus(codes.Error, "unexpected status (1)")
		return fmt.Errorf("GET %s: unexpected status %s", loginUrl, res.Status())
	}
	doc, err := parse(res)
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse html (1)")
		return err
	}
	form := loginForm(doc)
	if form == nil {
		// an existing ticket granting ticket skips the form
		return nil
	}

	values := htmlutil.HiddenValues(ctx, form)
	values.Set("username", opts.Username)
	values.Set("password", opts.Password)

	action, err := formAction(form, finalUrl(res))
	if err != nil {
		span.SetStatus(codes.Error, "invalid form action")
		return err
	}

	res, err = client.R().
		SetContext(ctx).
		SetBody(values.Encode()).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		Post(action)
	if err != nil {
		span.SetStatus(codes.Error, "failed to post login form")
		return err
	}
	doc, err = parse(res)
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse html (2)")
		return err
	}
	if loginForm(doc) != nil || res.StatusCode() == 401 {
		span.SetStatus(codes.Error, ErrInvalidCredentials.Error())
		message := errorMessage(doc)
		if message != "" {
			return fmt.Errorf("%w: %s", ErrInvalidCredentials, message)
		}
		return ErrInvalidCredentials
	}
	if res.IsError() {
		span.SetStatus(codes.Error, "unexpected status (2)")
		return fmt.Errorf("POST %s: unexpected status %s", action, res.Status())
	}
	return nil
}

// GrantService follows the CAS service redirect so that the service at
// serviceUrl opens a session for client.
func GrantService(ctx context.Context, client *resty.Client, loginUrl, serviceUrl string) error {
	ctx, span := tracer.Start(ctx, "GrantService")
	defer span.End()

	if loginUrl == "" {
		loginUrl = DefaultLoginUrl
	}

	res, err := client.R().
		SetContext(ctx).
		SetQueryParam("service", serviceUrl).
		Get(loginUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to request service ticket")
		return err
	}
	if res.IsError() {
		span.SetStatus(codes.Error, "unexpected status")
		return fmt.Errorf("GET %s: unexpected status %s", loginUrl, res.Status())
	}
	doc, err := parse(res)
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse html")
		return err
	}
	if loginForm(doc) != nil {
		span.SetStatus(codes.Error, ErrNotAuthenticated.Error())
		return ErrNotAuthenticated
	}
	return nil
}
