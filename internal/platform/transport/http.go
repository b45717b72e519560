package transport

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"golang.org/x/net/proxy"
)

// HTTPTransport sends requests with net/http, either directly or through an
// outbound HTTP(S)/SOCKS5 proxy.
type HTTPTransport struct {
	name         string
	client       *http.Client
	maxBodyBytes int64
}

type HTTPConfig struct {
	Timeout      time.Duration
	MaxBodyBytes int64
}

func (c HTTPConfig) normalized() HTTPConfig {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 6 << 20
	}
	return c
}

func NewDirect(cfg HTTPConfig) *HTTPTransport {
	cfg = cfg.normalized()
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.DisableCompression = true
	return &HTTPTransport{
		name:         "direct",
		client:       &http.Client{Timeout: cfg.Timeout, Transport: base},
		maxBodyBytes: cfg.MaxBodyBytes,
	}
}

// NewProxy supports http://, https:// and socks5:// proxy URLs.
func NewProxy(rawProxyURL string, cfg HTTPConfig) (*HTTPTransport, error) {
	cfg = cfg.normalized()
	proxyURL, err := url.Parse(strings.TrimSpace(rawProxyURL))
	if err != nil {
		return nil, crerr.Wrapf(err, "parse proxy url %q", rawProxyURL)
	}
	if proxyURL.Host == "" {
		return nil, crerr.Newf("proxy url %q has no host", rawProxyURL)
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	base.DisableCompression = true

	switch strings.ToLower(proxyURL.Scheme) {
	case "http", "https":
		base.Proxy = http.ProxyURL(proxyURL)
	case "socks5", "socks5h":
		dialer, err := proxy.FromURL(proxyURL, proxy.Direct)
		if err != nil {
			return nil, crerr.Wrapf(err, "build socks5 dialer for %s", proxyURL.Host)
		}
		base.Proxy = nil
		if ctxDialer, ok := dialer.(proxy.ContextDialer); ok {
			base.DialContext = ctxDialer.DialContext
		} else {
			base.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	default:
		return nil, crerr.Newf("unsupported proxy scheme %q", proxyURL.Scheme)
	}

	return &HTTPTransport{
		name:         "proxy:" + proxyURL.Host,
		client:       &http.Client{Timeout: cfg.Timeout, Transport: base},
		maxBodyBytes: cfg.MaxBodyBytes,
	}, nil
}

// NewHTTPWithClient wraps an existing client, mainly for tests.
func NewHTTPWithClient(name string, client *http.Client, maxBodyBytes int64) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = 6 << 20
	}
	return &HTTPTransport{name: name, client: client, maxBodyBytes: maxBodyBytes}
}

func (t *HTTPTransport) Name() string { return t.name }

func (t *HTTPTransport) Do(ctx context.Context, req Request) (Response, error) {
	if timeout := effectiveTimeout(ctx, req.Timeout); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return Response{}, crerr.Wrap(err, "build request")
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return Response{}, crerr.Wrapf(err, "%s request", t.name)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp.StatusCode, resp.Header); err != nil {
		drain(resp.Body)
		return Response{}, err
	}

	body, err := readBody(resp.Body, resp.Header.Get("Content-Encoding"), t.maxBodyBytes)
	if err != nil {
		return Response{}, err
	}

	return Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Via:        t.name,
	}, nil
}
