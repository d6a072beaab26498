package telemetry

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/semconv/v1.13.0/httpconv"
	"go.opentelemetry.io/otel/trace"
)

// form fields that never make it into span attributes
var redactedFields = []string{"password", "passwd"}

// InstrumentResty opens a span for every request the client makes.
// Response bodies are not recorded since portal pages are large. Every
// occurrence of a secret in the recorded attributes, the url included, is
// replaced with "<redacted>".
func InstrumentResty(client *resty.Client, tracerName string, secrets ...string) {
	tracer := otel.Tracer(tracerName)
	r := redactor{}
	for _, secret := range secrets {
		if secret != "" {
			r.secrets = append(r.secrets, secret)
		}
	}

	client.OnBeforeRequest(onBeforeRequest(tracer))
	client.OnAfterResponse(r.onAfterResponse)
	client.OnError(r.onError)
}

type redactor struct {
	secrets []string
}

func (r redactor) setAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if len(r.secrets) == 0 {
		span.SetAttributes(attrs...)
		return
	}
	for i, attr := range attrs {
		if attr.Value.Type() != attribute.STRING {
			continue
		}
		attrs[i] = attribute.String(string(attr.Key), r.redact(attr.Value.AsString()))
	}
	span.SetAttributes(attrs...)
}

func onBeforeRequest(tracer trace.Tracer) resty.RequestMiddleware {
	return func(cli *resty.Client, req *resty.Request) error {
		ctx, _ := tracer.Start(req.Context(), req.Method)
		req.SetContext(ctx)
		return nil
	}
}

func headerAttributes(out *[]attribute.KeyValue, prefix string, headers http.Header) {
	for header, values := range headers {
		if strings.EqualFold(header, "cookie") || strings.EqualFold(header, "set-cookie") {
			continue
		}
		if len(values) == 1 {
			*out = append(*out, attribute.String(fmt.Sprintf("%s/header: %s", prefix, header), values[0]))
			continue
		}
		for i, v := range values {
			*out = append(*out, attribute.String(fmt.Sprintf("%s/header: %s (%d)", prefix, header, i), v))
		}
	}
}

// RedactForm replaces the values of credential fields in an url-encoded
// body. Bodies that are not forms are returned unchanged.
func RedactForm(body string) string {
	values, err := url.ParseQuery(body)
	if err != nil {
		return body
	}
	changed := false
	for _, field := range redactedFields {
		if values.Has(field) {
			values.Set(field, "<redacted>")
			changed = true
		}
	}
	if !changed {
		return body
	}
	return values.Encode()
}

func (r redactor) instrumentRequestBody(span trace.Span, req *http.Request) {
	if req.GetBody == nil {
		return
	}
	reqbodyReader, err := req.GetBody()
	if err != nil {
		span.SetAttributes(attribute.String(
			"request/body",
			fmt.Sprintf("failed to get request body: %s", err.Error()),
		))
		return
	}
	// resty hands out a nil reader for requests without a body
	if reqbodyReader == nil {
		return
	}
	defer reqbodyReader.Close()
	reqbody, err := io.ReadAll(reqbodyReader)
	if err != nil {
		span.SetAttributes(attribute.String(
			"request/body",
			fmt.Sprintf("failed to read request body: %s", err.Error()),
		))
		return
	}
	r.setAttributes(span, attribute.String("request/body", RedactForm(string(reqbody))))
}

func (r redactor) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	span := trace.SpanFromContext(res.Request.Context())
	defer span.End()

	span.SetAttributes(httpconv.ClientResponse(res.RawResponse)...)

	// setting request attributes here since res.Request.RawRequest is nil in onBeforeRequest
	span.SetName(fmt.Sprintf("http %s", res.Request.Method))
	r.setAttributes(span, httpconv.ClientRequest(res.Request.RawRequest)...)

	var attrs []attribute.KeyValue
	headerAttributes(&attrs, "request", res.Request.Header)
	headerAttributes(&attrs, "response", res.Header())
	r.setAttributes(span, attrs...)
	span.SetAttributes(attribute.Int("response/body_size", len(res.Body())))

	r.instrumentRequestBody(span, res.Request.RawRequest)
	if res.IsError() {
		span.SetStatus(codes.Error, res.Status())
	}

	return nil
}

func (r redactor) redact(s string) string {
	for _, secret := range r.secrets {
		s = strings.ReplaceAll(s, secret, "<redacted>")
	}
	return s
}

func (r redactor) onError(req *resty.Request, err error) {
	span := trace.SpanFromContext(req.Context())
	defer span.End()

	// transport errors quote the request url
	message := r.redact(err.Error())
	span.AddEvent("exception", trace.WithAttributes(attribute.String("exception.message", message)))
	span.SetStatus(codes.Error, message)

	span.SetName(fmt.Sprintf("http %s", req.Method))
	var attrs []attribute.KeyValue
	headerAttributes(&attrs, "request", req.Header)
	r.setAttributes(span, attrs...)

	if req.RawRequest == nil {
		return
	}
	r.setAttributes(span, httpconv.ClientRequest(req.RawRequest)...)
	r.instrumentRequestBody(span, req.RawRequest)
}
