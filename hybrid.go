package affected

import (
	"context"

	"go.uber.org/zap"
)

// hybridSource lists versions from a primary source and falls back to a
// secondary one when the primary fails transiently. A not-found answer from
// the primary is authoritative and is never retried elsewhere.
type hybridSource struct {
	primary  versionLister
	fallback versionLister
	logger   *zap.Logger
}

func newHybridSource(primary, fallback versionLister, logger *zap.Logger) *hybridSource {
	return &hybridSource{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (s *hybridSource) ListVersions(ctx context.Context, pkg string) ([]string, error) {
	versions, err := s.primary.ListVersions(ctx, pkg)
	if !IsRetryable(err) {
		return versions, err
	}

	s.logger.Warn("primary version source failed, trying fallback",
		zap.String("package", pkg), zap.Error(err))

	fallback, ferr := s.fallback.ListVersions(ctx, pkg)
	if ferr != nil || len(fallback) == 0 {
		if ferr != nil {
			s.logger.Warn("fallback version source failed",
				zap.String("package", pkg), zap.Error(ferr))
		}
		return nil, err
	}
	return fallback, nil
}
