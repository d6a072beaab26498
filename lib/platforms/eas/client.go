package eas

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"scorepusher/lib/htmlutil"
	"scorepusher/lib/scores"
	"scorepusher/lib/viewstate"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/text/encoding/simplifiedchinese"
)

var tracer = otel.Tracer("platforms/eas")

const (
	DirectBaseUrl = "http://jwxt.njupt.edu.cn"
	WebVpnBaseUrl = "https://vpn.njupt.edu.cn:8443/http/webvpn5e607416b84322620fcfebad55f2c381efb3e3d8de97685feb46fd2e866a8ae9"

	// ServiceUrl is the CAS service the portal session is granted for.
	ServiceUrl = "http://jwxt.njupt.edu.cn/login_cas.aspx"

	scoreModuleCode  = "N121605"
	scoreQueryButton = "在校学习成绩查询"
)

func BaseUrl(useWebVpn bool) string {
	if useWebVpn {
		return WebVpnBaseUrl
	}
	return DirectBaseUrl
}

// ServiceUrlFor is ServiceUrl as reached through the chosen route.
func ServiceUrlFor(useWebVpn bool) string {
	if useWebVpn {
		return WebVpnBaseUrl + "/login_cas.aspx"
	}
	return ServiceUrl
}

type ClientOptions struct {
	BaseUrl   string
	StudentId string
}

// Client reads the score page of the portal, the session must already be
// authenticated.
type Client struct {
	http      *resty.Client
	baseUrl   string
	studentId string
}

func NewClient(http *resty.Client, opts ClientOptions) (*Client, error) {
	if opts.StudentId == "" {
		return nil, fmt.Errorf("student id is required")
	}
	base, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}
	return &Client{
		http:      http,
		baseUrl:   strings.TrimSuffix(base.String(), "/"),
		studentId: opts.StudentId,
	}, nil
}

func encodeGB18030(s string) (string, error) {
	return simplifiedchinese.GB18030.NewEncoder().String(s)
}

func parsePage(body []byte) (*goquery.Document, error) {
	decoded, err := simplifiedchinese.GB18030.NewDecoder().Bytes(body)
	if err != nil {
		return nil, fmt.Errorf("decode gb18030: %w", err)
	}
	return goquery.NewDocumentFromReader(bytes.NewReader(decoded))
}

func (c *Client) get(ctx context.Context, link string) (*goquery.Document, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("GET %s: unexpected status %s", link, res.Status())
	}
	return parsePage(res.Body())
}

// GetName reads the student's display name from the portal home page.
func (c *Client) GetName(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "client:GetName")
	defer span.End()

	query := url.Values{"xh": {c.studentId}}
	doc, err := c.get(ctx, fmt.Sprintf("%s/xs_main.aspx?%s", c.baseUrl, query.Encode()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch home page")
		return "", err
	}

	name := htmlutil.Text(doc.Find("span#xhxm"))
	name = strings.TrimSpace(strings.TrimSuffix(name, "同学"))
	if name == "" {
		span.SetStatus(codes.Error, "failed to find name")
		return "", fmt.Errorf("could not find student name on home page")
	}
	return name, nil
}

// GetScoreViewState submits the all-terms score query and returns the
// __VIEWSTATE of the result page.
func (c *Client) GetScoreViewState(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "client:GetScoreViewState")
	defer span.End()

	name, err := c.GetName(ctx)
	if err != nil {
		return "", err
	}
	encodedName, err := encodeGB18030(name)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	query := url.Values{
		"xh":     {c.studentId},
		"xm":     {encodedName},
		"gnmkdm": {scoreModuleCode},
	}
	link := fmt.Sprintf("%s/xscj_gc.aspx?%s", c.baseUrl, query.Encode())

	doc, err := c.get(ctx, link)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch score page")
		return "", err
	}
	initialState := htmlutil.InputValue(doc, "__VIEWSTATE")
	generator := htmlutil.InputValue(doc, "__VIEWSTATEGENERATOR")
	if initialState == "" || generator == "" {
		span.SetStatus(codes.Error, "failed to find initial view state")
		return "", fmt.Errorf("could not find initial view state")
	}

	button, err := encodeGB18030(scoreQueryButton)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	form := url.Values{
		"__VIEWSTATE":          {initialState},
		"__VIEWSTATEGENERATOR": {generator},
		"ddlXN":                {""},
		"ddlXQ":                {""},
		"Button2":              {button},
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetBody(form.Encode()).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		Post(link)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to post score query")
		return "", err
	}
	if res.IsError() {
		err := fmt.Errorf("POST %s: unexpected status %s", link, res.Status())
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	doc, err = parsePage(res.Body())
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	state := htmlutil.InputValue(doc, "__VIEWSTATE")
	if state == "" {
		span.SetStatus(codes.Error, "failed to find view state")
		return "", fmt.Errorf("could not find view state in score query result")
	}
	span.SetAttributes(attribute.Int("view_state.length", len(state)))
	return state, nil
}

// GetScores fetches, decodes and extracts the current score records.
func (c *Client) GetScores(ctx context.Context) (scores.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "client:GetScores")
	defer span.End()

	state, err := c.GetScoreViewState(ctx)
	if err != nil {
		return nil, err
	}

	root, err := viewstate.DecodeBase64(state)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode view state")
		return nil, err
	}
	records, err := Extract(root)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to extract records")
		return nil, err
	}

	span.SetAttributes(attribute.Int("records", len(records)))
	return records, nil
}
