package affected

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/git-pkgs/affected/cache"
)

const (
	defaultRetryInterval    = 5 * time.Second
	defaultRetryMaxInterval = 2 * time.Minute
)

// requestHelper performs registry GETs with optional response caching and
// optional exponential retry of transient failures.
type requestHelper struct {
	httpClient *http.Client
	userAgent  string
	cache      cache.Cache
	cacheTTL   time.Duration
	retries    uint64
	newBackOff func() backoff.BackOff
	logger     *zap.Logger
}

func newRequestHelper(o options) *requestHelper {
	return &requestHelper{
		httpClient: o.httpClient,
		userAgent:  o.userAgent,
		cache:      o.cache,
		cacheTTL:   o.cacheTTL,
		retries:    o.retries,
		newBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = defaultRetryInterval
			bo.MaxInterval = defaultRetryMaxInterval
			return bo
		},
		logger: o.logger,
	}
}

// get fetches u and returns the body of a 200 response. Any other status
// yields a *RequestError.
func (h *requestHelper) get(ctx context.Context, u string, header http.Header) ([]byte, error) {
	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", h.userAgent)
		for k, v := range header {
			req.Header[k] = v
		}

		resp, err := h.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode != http.StatusOK {
			reqErr := &RequestError{URL: u, StatusCode: resp.StatusCode, Body: string(data)}
			if !retryableStatus(resp.StatusCode) {
				return backoff.Permanent(reqErr)
			}
			return reqErr
		}

		body = data
		return nil
	}

	if h.retries == 0 {
		err := operation()
		if permanent, ok := err.(*backoff.PermanentError); ok {
			return nil, permanent.Err
		}
		return body, err
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(h.newBackOff(), h.retries), ctx)
	err := backoff.RetryNotify(operation, bo, func(err error, wait time.Duration) {
		h.logger.Warn("retrying registry request",
			zap.String("url", u), zap.Duration("wait", wait), zap.Error(err))
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// getCached is get, memoised by URL in the shared cache when one is set.
func (h *requestHelper) getCached(ctx context.Context, u string) ([]byte, error) {
	if h.cache == nil {
		return h.get(ctx, u, nil)
	}

	key := cache.Key("url", u)
	if data, ok, err := h.cache.Get(ctx, key); err != nil {
		h.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		return data, nil
	}

	data, err := h.get(ctx, u, nil)
	if err != nil {
		return nil, err
	}
	if err := h.cache.Set(ctx, key, data, h.cacheTTL); err != nil {
		h.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return data, nil
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
