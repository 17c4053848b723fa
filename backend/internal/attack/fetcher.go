package attack

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apperrors "cybergraph/backend/pkg/errors"
	"cybergraph/backend/pkg/logger"
)

// HTTPFetcher downloads STIX bundles over HTTP.
type HTTPFetcher struct {
	client *http.Client
	logger *zap.Logger
}

// NewHTTPFetcher creates a fetcher whose requests time out after timeout.
// The enterprise bundle is tens of megabytes, so keep it generous.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
		logger: logger.Named("stix"),
	}
}

// FetchBundle downloads and decodes the bundle at url.
func (f *HTTPFetcher) FetchBundle(ctx context.Context, url string) ([]Object, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.NewBundleFetchFailed(url, 0, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperrors.NewBundleFetchFailed(url, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewBundleFetchFailed(url, resp.StatusCode, fmt.Errorf("unexpected status: %s", resp.Status))
	}

	var bundle Bundle
	if err := json.NewDecoder(resp.Body).Decode(&bundle); err != nil {
		return nil, apperrors.NewBundleFetchFailed(url, resp.StatusCode, fmt.Errorf("failed to decode bundle: %w", err))
	}

	f.logger.Info("Fetched bundle",
		zap.String("url", url),
		zap.Int("objects", len(bundle.Objects)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return bundle.Objects, nil
}

// FetchMatrices downloads several matrices concurrently. Any unknown matrix or
// failed download cancels the rest and is returned.
func FetchMatrices(ctx context.Context, fetcher BundleFetcher, matrices []string) (map[string][]Object, error) {
	for _, m := range matrices {
		if _, ok := MatrixURLs[m]; !ok {
			return nil, apperrors.NewUnknownMatrix(m, Matrices())
		}
	}

	results := make([][]Object, len(matrices))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range matrices {
		i, m := i, m // per-iteration copies (go directive < 1.22)
		g.Go(func() error {
			objects, err := fetcher.FetchBundle(gctx, MatrixURLs[m])
			if err != nil {
				return fmt.Errorf("failed to fetch %s matrix: %w", m, err)
			}
			results[i] = objects
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	bundles := make(map[string][]Object, len(matrices))
	for i, m := range matrices {
		bundles[m] = results[i]
	}
	return bundles, nil
}
