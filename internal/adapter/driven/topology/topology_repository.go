package topology

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/osg-htc/osg-reports/internal/domain/entity"
	"github.com/osg-htc/osg-reports/internal/domain/repository"
	"github.com/osg-htc/osg-reports/internal/shared/types"
)

const rgsummaryPath = "/rgsummary/xml"

// TopologyRepositoryImpl implements repository.TopologyRepository over the
// rgsummary XML endpoint.
type TopologyRepositoryImpl struct {
	baseURL string
	client  *http.Client
}

// NewTopologyRepository creates a repository for the registry at baseURL.
func NewTopologyRepository(baseURL string, timeout time.Duration) repository.TopologyRepository {
	return &TopologyRepositoryImpl{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// HostURL turns a bare host name into a registry base URL.
func HostURL(host string) string {
	if strings.Contains(host, "://") {
		return host
	}
	return "https://" + host
}

// GetResourceGroups fetches and decodes the resource groups selected by filter.
func (r *TopologyRepositoryImpl) GetResourceGroups(ctx context.Context, filter repository.TopologyFilter) ([]entity.ResourceGroup, error) {
	endpoint, err := r.endpoint(filter)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().Str("url", endpoint).Msg("fetching topology")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error building topology request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching topology: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: topology status %d: %s", types.ErrBackendResponse, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	return Decode(resp.Body)
}

func (r *TopologyRepositoryImpl) endpoint(filter repository.TopologyFilter) (string, error) {
	base := r.baseURL
	if filter.BaseURL != "" {
		base = filter.BaseURL
	}
	u, err := url.Parse(strings.TrimRight(HostURL(base), "/") + rgsummaryPath)
	if err != nil {
		return "", fmt.Errorf("invalid topology URL %q: %w", base, err)
	}

	params := url.Values{}
	if filter.ActiveOnly {
		// Without active=on the registry ignores active_value; disable works the same way.
		params.Set("active", "on")
		params.Set("active_value", "1")
		params.Set("disable", "on")
		params.Set("disable_value", "0")
	}
	if filter.ComputeEntryPoints {
		params.Set("gridtype", "on")
		params.Set("gridtype_1", "on")
		params.Set("service", "on")
		params.Set("service_1", "on")
	}
	u.RawQuery = params.Encode()
	return u.String(), nil
}
