// Package gracc talks to the GRACC accounting index through the OpenSearch
// client.
package gracc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	opensearch "github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"github.com/rs/zerolog"

	"github.com/osg-htc/osg-reports/internal/domain/query"
	"github.com/osg-htc/osg-reports/internal/domain/repository"
	"github.com/osg-htc/osg-reports/internal/shared/types"
)

// ScrollKeepAlive is how long the backend keeps a scroll cursor between pages.
const ScrollKeepAlive = 5 * time.Minute

// DefaultPageSize is used by Scan when the search does not set a size.
const DefaultPageSize = 1000

// GraccRepositoryImpl implements repository.GraccRepository.
type GraccRepositoryImpl struct {
	client  *opensearch.Client
	timeout time.Duration
}

// NewGraccRepository creates a client for the backend at url. Every request
// is bounded by timeout and never retried.
func NewGraccRepository(url string, timeout time.Duration) (repository.GraccRepository, error) {
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses:    []string{url},
		DisableRetry: true,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: timeout,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error creating GRACC client: %w", err)
	}
	return &GraccRepositoryImpl{client: client, timeout: timeout}, nil
}

type searchResponse struct {
	ScrollID     string             `json:"_scroll_id"`
	Aggregations query.Aggregations `json:"aggregations"`
	Hits         struct {
		Hits []struct {
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Aggregate runs search and returns its aggregations. An empty result has
// an empty, non-nil Aggregations.
func (r *GraccRepositoryImpl) Aggregate(ctx context.Context, search *query.Search) (query.Aggregations, error) {
	body, err := encodeBody(search)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	zerolog.Ctx(ctx).Debug().Str("index", search.Index).RawJSON("body", body).Msg("gracc aggregate")

	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(search.Index),
		r.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("error querying %s: %w", search.Index, err)
	}

	var resp searchResponse
	if err := decode(res, &resp); err != nil {
		return nil, fmt.Errorf("error querying %s: %w", search.Index, err)
	}
	if resp.Aggregations == nil {
		resp.Aggregations = query.Aggregations{}
	}
	return resp.Aggregations, nil
}

// Scan pages through every hit with a scroll cursor, calling fn for each
// _source. fn may return repository.ErrStopScan to end the scan early.
func (r *GraccRepositoryImpl) Scan(ctx context.Context, search *query.Search, fn repository.ScanFunc) error {
	body := search.Body()
	if size, _ := body["size"].(int); size <= 0 {
		body["size"] = DefaultPageSize
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("error encoding search: %w", err)
	}

	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("index", search.Index).RawJSON("body", encoded).Msg("gracc scan")

	reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
	res, err := r.client.Search(
		r.client.Search.WithContext(reqCtx),
		r.client.Search.WithIndex(search.Index),
		r.client.Search.WithBody(bytes.NewReader(encoded)),
		r.client.Search.WithScroll(ScrollKeepAlive),
	)
	if err != nil {
		cancel()
		return fmt.Errorf("error scanning %s: %w", search.Index, err)
	}
	var page searchResponse
	err = decode(res, &page)
	cancel()
	if err != nil {
		return fmt.Errorf("error scanning %s: %w", search.Index, err)
	}

	scrollID := page.ScrollID
	defer func() {
		if scrollID != "" {
			r.clearScroll(ctx, scrollID)
		}
	}()

	pages := 0
	for len(page.Hits.Hits) > 0 {
		pages++
		for _, hit := range page.Hits.Hits {
			if err := fn(hit.Source); err != nil {
				if errors.Is(err, repository.ErrStopScan) {
					logger.Debug().Int("pages", pages).Msg("gracc scan stopped early")
					return nil
				}
				return err
			}
		}
		if scrollID == "" {
			return nil
		}

		reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
		res, err := r.client.Scroll(
			r.client.Scroll.WithContext(reqCtx),
			r.client.Scroll.WithScrollID(scrollID),
			r.client.Scroll.WithScroll(ScrollKeepAlive),
		)
		if err != nil {
			cancel()
			return fmt.Errorf("error scrolling %s: %w", search.Index, err)
		}
		page = searchResponse{}
		err = decode(res, &page)
		cancel()
		if err != nil {
			return fmt.Errorf("error scrolling %s: %w", search.Index, err)
		}
		if page.ScrollID != "" {
			scrollID = page.ScrollID
		}
	}

	logger.Debug().Int("pages", pages).Msg("gracc scan finished")
	return nil
}

func (r *GraccRepositoryImpl) clearScroll(ctx context.Context, scrollID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	res, err := r.client.ClearScroll(
		r.client.ClearScroll.WithContext(ctx),
		r.client.ClearScroll.WithScrollID(scrollID),
	)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("could not clear scroll")
		return
	}
	_ = res.Body.Close()
}

func encodeBody(search *query.Search) ([]byte, error) {
	body, err := json.Marshal(search.Body())
	if err != nil {
		return nil, fmt.Errorf("error encoding search: %w", err)
	}
	return body, nil
}

func decode(res *opensearchapi.Response, v any) error {
	defer res.Body.Close()
	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return fmt.Errorf("%w: status %d: %s", types.ErrBackendResponse, res.StatusCode, bytes.TrimSpace(msg))
	}
	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", types.ErrBackendResponse, err)
	}
	return nil
}
