package telemetry

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t testing.TB) *tracetest.SpanRecorder {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		provider.Shutdown(context.Background())
	})
	return recorder
}

func TestSetupWithoutEndpoints(t *testing.T) {
	tel, err := Setup(context.Background(), "test:telemetry", Config{})
	require.NoError(t, err)
	require.Nil(t, tel.TracerProvider)
	require.Nil(t, tel.MeterProvider)
	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestOtlpConnEnabled(t *testing.T) {
	require.False(t, OtlpConnConfig{}.Enabled())
	require.True(t, OtlpConnConfig{HttpEndpoint: "http://localhost:4318"}.Enabled())
	require.True(t, OtlpConnConfig{GrpcEndpoint: "http://localhost:4317"}.Enabled())
}

func TestInitSlog(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	InitSlog(true)
	require.True(t, slog.Default().Enabled(context.Background(), slog.LevelDebug))
	InitSlog(false)
	require.False(t, slog.Default().Enabled(context.Background(), slog.LevelDebug))
}

func TestRedactForm(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		redacted bool
	}{
		{name: "login form", body: "username=B21040101&password=hunter2&lt=LT-1", redacted: true},
		{name: "score form", body: "__VIEWSTATE=abc&ddlXN=", redacted: false},
		{name: "not a form", body: `{"text":"hi"}`, redacted: false},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			out := RedactForm(test.body)
			if !test.redacted {
				require.Equal(t, test.body, out)
				return
			}
			values, err := url.ParseQuery(out)
			require.NoError(t, err)
			require.Equal(t, "<redacted>", values.Get("password"))
			require.Equal(t, "B21040101", values.Get("username"))
		})
	}
}

func TestInstrumentResty(t *testing.T) {
	recorder := recordSpans(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := resty.New()
	InstrumentResty(client, "test:resty", "s3cret")

	// requests without a body
	_, err := client.R().Get(server.URL + "/bots3cret/getMe")
	require.NoError(t, err)
	_, err = client.R().
		SetFormData(map[string]string{"username": "B21040101", "password": "hunter2"}).
		Post(server.URL + "/login")
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	sawUrl := false
	for _, span := range spans {
		for _, attr := range span.Attributes() {
			value := attr.Value.Emit()
			require.NotContains(t, value, "s3cret", string(attr.Key))
			require.NotContains(t, value, "hunter2", string(attr.Key))
			if attr.Key == "http.url" && span.Name() == "http GET" {
				require.Contains(t, value, "/bot<redacted>/getMe")
				sawUrl = true
			}
		}
	}
	require.True(t, sawUrl)
}
