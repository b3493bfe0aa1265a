// Package catalog reads the item listing, item details and species records
// from the remote catalog API.
package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/kapu/palette-index-go/internal/domain"
	"github.com/kapu/palette-index-go/internal/service/httpfetch"
	"github.com/kapu/palette-index-go/internal/util"
	"github.com/kapu/palette-index-go/pkg/errors"
)

// Source is what the pipeline needs from the catalog.
type Source interface {
	ListItems(ctx context.Context, limit, offset int) ([]domain.CatalogItemRef, error)
	FetchDetail(ctx context.Context, detailURL string) (*domain.DetailRecord, error)
	FetchSpecies(ctx context.Context, speciesURL string) (*domain.SpeciesRecord, error)
}

type Client struct {
	http     httpfetch.JSONGetter
	baseURL  string
	pageSize int
	logger   *zap.Logger
}

func NewClient(getter httpfetch.JSONGetter, baseURL string, pageSize int, logger *zap.Logger) *Client {
	return &Client{
		http:     getter,
		baseURL:  baseURL,
		pageSize: pageSize,
		logger:   util.OrNop(logger),
	}
}

// ListItems walks the listing pages starting at offset. A limit above zero
// truncates the result.
func (c *Client) ListItems(ctx context.Context, limit, offset int) ([]domain.CatalogItemRef, error) {
	pageSize := c.pageSize
	if limit > 0 && limit < pageSize {
		pageSize = limit
	}

	next := c.listURL(pageSize, offset)
	seen := make(map[string]struct{})
	refs := make([]domain.CatalogItemRef, 0, pageSize)

	for next != "" {
		if _, dup := seen[next]; dup {
			break
		}
		seen[next] = struct{}{}

		var page domain.CatalogPage
		if err := c.http.GetJSON(ctx, next, &page); err != nil {
			return nil, fmt.Errorf("failed to fetch catalog listing: %w", err)
		}

		refs = append(refs, page.Results...)
		c.logger.Debug("Fetched catalog page",
			zap.String("url", next),
			zap.Int("results", len(page.Results)),
			zap.Int("total", page.Count),
		)

		if len(page.Results) == 0 || (limit > 0 && len(refs) >= limit) {
			break
		}
		next = page.Next
	}

	if limit > 0 && len(refs) > limit {
		refs = refs[:limit]
	}
	return refs, nil
}

func (c *Client) FetchDetail(ctx context.Context, detailURL string) (*domain.DetailRecord, error) {
	var record domain.DetailRecord
	if err := c.http.GetJSON(ctx, detailURL, &record); err != nil {
		return nil, err
	}
	if record.Name == "" || record.Species.URL == "" {
		return nil, errors.NewAPIError("detail record is missing name or species", detailURL, http.StatusOK, nil)
	}
	return &record, nil
}

func (c *Client) FetchSpecies(ctx context.Context, speciesURL string) (*domain.SpeciesRecord, error) {
	var record domain.SpeciesRecord
	if err := c.http.GetJSON(ctx, speciesURL, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *Client) listURL(limit, offset int) string {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	return c.baseURL + "/pokemon?" + params.Encode()
}
