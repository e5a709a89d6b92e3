package facturify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"gitlab.com/fletera/api/facturify-gateway/internal/adapters/config"
	"gitlab.com/fletera/api/facturify-gateway/internal/adapters/metrics"
	"gitlab.com/fletera/api/facturify-gateway/internal/domain"
)

// newRetryingClient builds the resilient HTTP client shared by the provider
// adapters: a hard per-attempt timeout, bounded exponential backoff, and
// retries on transient failures only. MaxRetries in the configuration counts
// total attempts, so a value of 3 means one request plus two retries.
func newRetryingClient(cfg config.FacturifyConfig, logger domain.Logger) *retryablehttp.Client {
	backoffBase := time.Duration(cfg.RetryBackoffSeconds * float64(time.Second))
	if backoffBase <= 0 {
		backoffBase = 2 * time.Second
	}

	client := retryablehttp.NewClient()
	client.HTTPClient = &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}
	client.RetryMax = cfg.MaxRetries - 1
	if client.RetryMax < 0 {
		client.RetryMax = 0
	}
	client.RetryWaitMin = backoffBase
	client.RetryWaitMax = 4 * backoffBase
	client.Logger = &retryLogger{logger: logger}
	client.CheckRetry = transientRetryPolicy
	// DefaultBackoff waits base * 2^(k-1) before retry attempt k, capped at
	// RetryWaitMax.
	client.Backoff = retryablehttp.DefaultBackoff
	client.RequestLogHook = func(_ retryablehttp.Logger, _ *http.Request, attempt int) {
		if attempt > 0 {
			metrics.IncrementProviderRetry()
		}
	}
	return client
}

// transientRetryPolicy retries network errors, timeouts, and 5xx responses.
// Any 4xx-class response goes back to the caller unretried, 429 included:
// repeating a semantically rejected request cannot succeed.
func transientRetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if resp != nil && resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// doJSON sends one request through the resilient client and buffers the
// response body. Transport-level failures, including an exhausted retry
// budget, come back as domain.TransientTransportError; HTTP error statuses
// are returned to the caller for semantic classification.
func doJSON(ctx context.Context, client *retryablehttp.Client, operation, method, url string, headers map[string]string, body []byte) (int, []byte, error) {
	var rawBody interface{}
	if body != nil {
		rawBody = body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, rawBody)
	if err != nil {
		return 0, nil, fmt.Errorf("build %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, domain.NewTransientTransportError(operation, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, domain.NewTransientTransportError(operation, err)
	}
	return resp.StatusCode, payload, nil
}

// providerBaseURL trims the trailing slash so paths can be appended verbatim.
func providerBaseURL(cfg config.FacturifyConfig) string {
	return strings.TrimRight(cfg.BaseURL, "/")
}

// retryLogger adapts domain.Logger to retryablehttp's LeveledLogger. The
// library logs without a request context, so entries carry no request ID.
type retryLogger struct {
	logger domain.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(context.Background(), msg, keysAndValues...)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(context.Background(), msg, keysAndValues...)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(context.Background(), msg, keysAndValues...)
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(context.Background(), msg, keysAndValues...)
}
