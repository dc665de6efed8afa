package datasource

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/villedieurio/evened-web/internal/errors"
	"github.com/villedieurio/evened-web/internal/format"
	"github.com/villedieurio/evened-web/internal/httpclient"
	"github.com/villedieurio/evened-web/internal/logger"
	"github.com/villedieurio/evened-web/internal/observability/metrics"
)

// HTTP fetches files from a web server relative to a base URL.
type HTTP struct {
	client   *httpclient.Client
	base     *url.URL
	log      logger.Logger
	recorder metrics.Recorder
}

// NewHTTP returns an HTTP source. baseURL must be absolute; a missing
// trailing slash is added so relative paths resolve below it.
func NewHTTP(baseURL string, client *httpclient.Client, opts ...Option) (*HTTP, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errors.Newf("invalid base URL %q", baseURL).
			Component("datasource").
			Category(errors.CategoryConfiguration).
			Context("base_url", baseURL).
			Build()
	}
	if base.Path == "" || base.Path[len(base.Path)-1] != '/' {
		base.Path += "/"
	}
	if client == nil {
		client = httpclient.New(nil)
	}

	o := applyOptions(opts)
	return &HTTP{
		client:   client,
		base:     base,
		log:      o.log.With(logger.String("source", "http")),
		recorder: o.recorder,
	}, nil
}

// Name implements Source.
func (h *HTTP) Name() string {
	return "http"
}

// URL returns the absolute URL p resolves to.
func (h *HTTP) URL(p string) (*url.URL, error) {
	ref, err := url.Parse(p)
	if err != nil {
		return nil, err
	}
	return h.base.ResolveReference(ref), nil
}

// Fetch implements Source. A non-2xx status fails with "HTTP <status> <path>".
func (h *HTTP) Fetch(ctx context.Context, p string) (data []byte, err error) {
	start := time.Now()
	defer func() { record(h.recorder, metrics.OpFetchHTTP, h.Name(), start, len(data), err) }()

	target, err := h.URL(p)
	if err != nil {
		return nil, errors.New(err).
			Component("datasource").
			Category(errors.CategoryValidation).
			Context("path", p).
			Build()
	}

	resp, err := h.client.Get(ctx, target.String())
	if err != nil {
		return nil, errors.New(err).
			Component("datasource").
			Category(errors.CategoryNetwork).
			Context("path", p).
			Context("url", target.Redacted()).
			Build()
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			h.log.Debug("failed to close response body", logger.Error(cerr))
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, errors.Newf("HTTP %d %s", resp.StatusCode, p).
			Component("datasource").
			Category(errors.CategoryNetwork).
			Context("path", p).
			Context("status", resp.StatusCode).
			Build()
	}

	data, err = io.ReadAll(io.LimitReader(resp.Body, MaxFileSize+1))
	if err != nil {
		return nil, errors.New(err).
			Component("datasource").
			Category(errors.CategoryNetwork).
			Context("path", p).
			Build()
	}
	if len(data) > MaxFileSize {
		return nil, errors.Newf("%s exceeds %s", p, format.Bytes(MaxFileSize)).
			Component("datasource").
			Category(errors.CategoryNetwork).
			Context("path", p).
			Build()
	}

	h.log.Debug("file fetched",
		logger.String("url", target.Redacted()),
		logger.Int("status", resp.StatusCode),
		logger.String("size", format.Bytes(len(data))),
		logger.Duration("elapsed", time.Since(start)))

	return data, nil
}
