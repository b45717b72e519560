package transport

import (
	"context"
	"net/http"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
)

// ErrDecode marks a body that was fetched but is not the expected JSON.
var ErrDecode = crerr.New("decode json payload")

// GetJSON fetches target through the chain and decodes the body into out.
// Decoding happens per transport, so a 2xx challenge page from one hop falls
// through to the next. The error carries ErrDecode only when every transport
// answered and none of the bodies decoded.
func (c *Chain) GetJSON(ctx context.Context, target string, out any) error {
	header := http.Header{}
	header.Set("Accept", "application/json, text/plain, */*")

	undecodable := 0
	_, err := c.fetch(ctx, Request{URL: target, Header: header}, func(resp Response) error {
		if err := sonic.Unmarshal(resp.Body, out); err != nil {
			undecodable++
			return crerr.Wrapf(err, "decode %s via %s", target, resp.Via)
		}
		return nil
	})
	if err != nil && undecodable == len(c.transports) {
		return crerr.Mark(err, ErrDecode)
	}
	return err
}
