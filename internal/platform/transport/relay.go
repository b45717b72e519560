package transport

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/fasthttp"
)

// RelayTransport fetches the target through a URL-prefix relay, e.g.
// "https://relay.example/raw?url=" + escaped target.
type RelayTransport struct {
	name         string
	prefix       string
	client       *fasthttp.Client
	timeout      time.Duration
	maxBodyBytes int64
}

func NewRelay(prefix string, cfg HTTPConfig) (*RelayTransport, error) {
	cfg = cfg.normalized()
	prefix = strings.TrimSpace(prefix)
	parsed, err := url.Parse(prefix)
	if err != nil || parsed.Host == "" {
		return nil, crerr.Newf("invalid relay prefix %q", prefix)
	}

	return &RelayTransport{
		name:   "relay:" + parsed.Host,
		prefix: prefix,
		client: &fasthttp.Client{
			Name:                     "streamhub",
			ReadTimeout:              cfg.Timeout,
			WriteTimeout:             cfg.Timeout,
			MaxResponseBodySize:      int(cfg.MaxBodyBytes),
			NoDefaultUserAgentHeader: true,
		},
		timeout:      cfg.Timeout,
		maxBodyBytes: cfg.MaxBodyBytes,
	}, nil
}

func (t *RelayTransport) Name() string { return t.name }

func (t *RelayTransport) RelayURL(target string) string {
	return t.prefix + url.QueryEscape(target)
}

func (t *RelayTransport) Do(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	fReq := fasthttp.AcquireRequest()
	fResp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(fReq)
	defer fasthttp.ReleaseResponse(fResp)

	fReq.SetRequestURI(t.RelayURL(req.URL))
	fReq.Header.SetMethod(fasthttp.MethodGet)
	for key, values := range req.Header {
		for _, v := range values {
			fReq.Header.Add(key, v)
		}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = t.timeout
	}
	timeout = effectiveTimeout(ctx, timeout)
	if timeout <= 0 {
		return Response{}, context.DeadlineExceeded
	}

	if err := t.client.DoTimeout(fReq, fResp, timeout); err != nil {
		if crerr.Is(err, fasthttp.ErrBodyTooLarge) {
			return Response{}, crerr.Mark(err, ErrBodyTooLarge)
		}
		return Response{}, crerr.Wrapf(err, "%s request", t.name)
	}

	header := make(http.Header)
	fResp.Header.VisitAll(func(key, value []byte) {
		header.Add(string(key), string(value))
	})
	if err := checkStatus(fResp.StatusCode(), header); err != nil {
		return Response{}, err
	}

	body, err := readBody(bytes.NewReader(fResp.Body()), header.Get("Content-Encoding"), t.maxBodyBytes)
	if err != nil {
		return Response{}, err
	}

	return Response{
		StatusCode: fResp.StatusCode(),
		Header:     header,
		Body:       body,
		Via:        t.name,
	}, nil
}
