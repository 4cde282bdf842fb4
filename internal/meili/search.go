package meili

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/kailas-cloud/meiligate/internal/domain/search"
)

// Search runs req and returns the Meilisearch response body untouched.
// Every field of req is forwarded as set, zero values included.
func (c *Client) Search(ctx context.Context, req search.Request) (search.Results, error) {
	body, err := searchBody(req)
	if err != nil {
		return nil, err
	}

	var res []byte
	err = c.do(ctx, OpSearch, func() (err error) {
		res, err = c.rest.call(ctx, http.MethodPost, "/indexes/"+url.PathEscape(req.UID)+"/search", body)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, errors.New("meilisearch returned an empty search response")
	}
	return search.Results(res), nil
}

// searchBody is req in wire form. The index travels in the path.
func searchBody(req search.Request) (map[string]json.RawMessage, error) {
	var body map[string]json.RawMessage
	if err := convert(req, &body); err != nil {
		return nil, err
	}
	delete(body, "uid")
	return body, nil
}
