package capability

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"github.com/epigenicai/genagent/types"
)

// CommercialSource is the commercial-data capability: market and pipeline
// intelligence for a gene target. Lookup returns NOT_FOUND when the source
// has no record for the gene, and CAPABILITY_UNAVAILABLE when the source
// itself cannot serve requests.
type CommercialSource interface {
	Lookup(ctx context.Context, gene string) (*types.CommercialRecord, error)
}

// CommercialClient queries a commercial-data JSON endpoint.
type CommercialClient struct {
	base *baseClient
}

// NewCommercialClient creates a commercial-data client.
func NewCommercialClient(cfg ClientConfig, logger *zap.Logger) *CommercialClient {
	if cfg.Name == "" {
		cfg.Name = "commercial"
	}
	return &CommercialClient{base: newBaseClient(cfg, logger)}
}

// Lookup implements CommercialSource.
func (c *CommercialClient) Lookup(ctx context.Context, gene string) (*types.CommercialRecord, error) {
	if gene == "" {
		return nil, types.NewError(types.ErrInvalidInput, "empty gene")
	}
	var record types.CommercialRecord
	err := c.base.getJSON(ctx, "/targets?gene="+url.QueryEscape(gene), &record)
	if err != nil {
		// Exhausted transient retries mean the source is down for this
		// attempt window, which the runner may treat as a degraded skip.
		if types.IsRetryable(err) {
			return nil, types.NewError(types.ErrCapabilityUnavailable,
				"commercial source unavailable").WithCause(err)
		}
		return nil, err
	}
	c.base.logger.Debug("commercial lookup complete", zap.String("gene", gene))
	return &record, nil
}
