package affected

import (
	"context"
	"fmt"

	"github.com/ecosyste-ms/ecosystems-go"
)

// EcosystemsClient wraps the ecosyste.ms API client, used as a secondary
// source of version lists when a registry is failing.
type EcosystemsClient struct {
	client *ecosystems.Client
}

func newEcosystemsClient(userAgent string) (*EcosystemsClient, error) {
	client, err := ecosystems.NewClient(userAgent)
	if err != nil {
		return nil, err
	}
	return &EcosystemsClient{client: client}, nil
}

// GetVersions lists every version ecosyste.ms knows for pkg.
func (c *EcosystemsClient) GetVersions(ctx context.Context, ecosystem, pkg string) ([]string, error) {
	purlStr := PackagePURL(ecosystem, pkg)
	if purlStr == "" {
		return nil, fmt.Errorf("ecosyste.ms: unsupported ecosystem %s", ecosystem)
	}

	p, err := ecosystems.ParsePURL(purlStr)
	if err != nil {
		return nil, err
	}

	versions, err := c.client.GetAllVersionsPURL(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("ecosyste.ms: listing %s: %w", purlStr, err)
	}

	result := make([]string, 0, len(versions))
	for _, v := range versions {
		result = append(result, v.Number)
	}
	return result, nil
}

func (c *EcosystemsClient) source(ecosystem string) versionLister {
	return &ecosystemsSource{client: c, ecosystem: ecosystem}
}

type ecosystemsSource struct {
	client    *EcosystemsClient
	ecosystem string
}

func (s *ecosystemsSource) ListVersions(ctx context.Context, pkg string) ([]string, error) {
	return s.client.GetVersions(ctx, s.ecosystem, pkg)
}
