// Package httpfetch performs GET requests with retry, a per-host circuit
// breaker and a response size limit.
package httpfetch

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/kapu/palette-index-go/internal/constants"
	"github.com/kapu/palette-index-go/internal/util"
	"github.com/kapu/palette-index-go/pkg/errors"
)

// Getter is the read-only HTTP surface used by the catalog client and the
// palette extractor.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// JSONGetter fetches and decodes JSON documents.
type JSONGetter interface {
	GetJSON(ctx context.Context, url string, dest any) error
}

type Options struct {
	Client       *http.Client
	UserAgent    string
	MaxRetries   int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	MaxBodyBytes int64
	// FailureThreshold is the number of failed requests (not attempts) to
	// one host that opens its circuit. Zero uses constants.CircuitBreakerConfig.
	FailureThreshold int
	ResetTimeout     time.Duration
}

type Fetcher struct {
	client       *http.Client
	userAgent    string
	maxRetries   int
	baseDelay    time.Duration
	maxDelay     time.Duration
	maxBodyBytes int64
	threshold    int
	resetTimeout time.Duration
	logger       *zap.Logger

	breakersMu sync.Mutex
	breakers   map[string]*util.CircuitBreaker
}

func New(opts Options, logger *zap.Logger) *Fetcher {
	logger = util.OrNop(logger)

	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: constants.APIConfig.RequestTimeout}
	}
	if opts.UserAgent == "" {
		opts.UserAgent = constants.APIConfig.UserAgent
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = constants.RetryConfig.BaseDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = constants.RetryConfig.MaxDelay
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = constants.APIConfig.MaxBodyBytes
	}
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = constants.CircuitBreakerConfig.FailureThreshold
	}
	if opts.ResetTimeout <= 0 {
		opts.ResetTimeout = constants.CircuitBreakerConfig.ResetTimeout
	}

	return &Fetcher{
		client:       opts.Client,
		userAgent:    opts.UserAgent,
		maxRetries:   opts.MaxRetries,
		baseDelay:    opts.BaseDelay,
		maxDelay:     opts.MaxDelay,
		maxBodyBytes: opts.MaxBodyBytes,
		threshold:    opts.FailureThreshold,
		resetTimeout: opts.ResetTimeout,
		logger:       logger,
		breakers:     make(map[string]*util.CircuitBreaker),
	}
}

// Get returns the body of a 2xx response. Failures are *errors.APIError;
// network errors, 429 and 5xx are retried with exponential backoff. While the
// host's circuit is open Get fails fast with *errors.CircuitOpenError.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	host := hostOf(url)
	breaker := f.breakerFor(host)
	if !breaker.CanExecute() {
		return nil, errors.NewCircuitOpenError(url, host, breaker.RetryAfter())
	}

	var body []byte
	operation := func() error {
		data, err := f.do(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			var apiErr *errors.APIError
			if stderrors.As(err, &apiErr) && apiErr.Retryable() {
				return err
			}
			return backoff.Permanent(err)
		}
		body = data
		return nil
	}

	notify := func(err error, delay time.Duration) {
		f.logger.Debug("Request failed, retrying",
			zap.String("url", url),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}

	err := backoff.RetryNotify(operation, f.policy(ctx), notify)
	if err == nil {
		breaker.RecordSuccess()
		return body, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		breaker.Cancel()
		return nil, errors.NewAPIError("request cancelled", url, 0, ctxErr)
	}

	// one failed request counts once, however many attempts it took
	var apiErr *errors.APIError
	if stderrors.As(err, &apiErr) && apiErr.Retryable() {
		breaker.RecordFailure()
	} else {
		breaker.RecordSuccess()
	}
	return nil, err
}

// GetJSON fetches url and decodes the JSON body into dest.
func (f *Fetcher) GetJSON(ctx context.Context, url string, dest any) error {
	body, err := f.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return errors.NewAPIError("invalid JSON response", url, http.StatusOK, err)
	}
	return nil
}

func (f *Fetcher) breakerFor(host string) *util.CircuitBreaker {
	f.breakersMu.Lock()
	defer f.breakersMu.Unlock()

	breaker, ok := f.breakers[host]
	if !ok {
		breaker = util.NewCircuitBreaker(f.threshold, f.resetTimeout, f.logger.With(zap.String("host", host)))
		f.breakers[host] = breaker
	}
	return breaker
}

func hostOf(rawURL string) string {
	parsed, err := neturl.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Host
}

func (f *Fetcher) policy(ctx context.Context) backoff.BackOffContext {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = f.baseDelay
	exp.MaxInterval = f.maxDelay
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(f.maxRetries)), ctx)
}

func (f *Fetcher) do(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewAPIError("invalid request", url, http.StatusBadRequest, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.NewAPIError("request failed", url, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		apiErr := errors.NewAPIError(fmt.Sprintf("unexpected status code: %d", resp.StatusCode), url, resp.StatusCode, nil)
		apiErr.Context["body"] = util.TruncateString(string(snippet), 200)
		return nil, apiErr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return nil, errors.NewAPIError("read body", url, 0, err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, errors.NewAPIError(fmt.Sprintf("response exceeds %d bytes", f.maxBodyBytes), url, resp.StatusCode, nil)
	}
	return body, nil
}
