package usecase

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nahlund/backend/tileserver/internal/tile"
	"github.com/nahlund/backend/tileserver/pkg/logger"
	"github.com/nahlund/backend/tileserver/pkg/metrics"
)

const (
	userAgent = "nahlund-tileserver/1.0"

	maxImageSize = 16 << 20
)

// expandURL fills the {z}, {x} and {y} placeholders of an XYZ template.
func expandURL(template string, id tile.ID) string {
	return strings.NewReplacer(
		"{z}", strconv.Itoa(int(id.Z)),
		"{x}", strconv.FormatUint(uint64(id.X), 10),
		"{y}", strconv.FormatUint(uint64(id.Y), 10),
	).Replace(template)
}

type imageFetcher struct {
	client *http.Client
	logger logger.Logger
}

func (f *imageFetcher) fetch(ctx context.Context, url string) (image.Image, error) {
	f.logger.Debug("fetching from upstream", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := f.client.Do(req)
	metrics.UpstreamLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		f.logger.Error("failed to fetch from upstream", "url", url, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.logger.Warn("upstream returned non-200", "url", url, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: %s returned status %d", ErrUpstream, url, resp.StatusCode)
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, maxImageSize))
	if err != nil {
		f.logger.Error("failed to decode upstream image", "url", url, "error", err)
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrUpstream, url, err)
	}

	return img, nil
}
