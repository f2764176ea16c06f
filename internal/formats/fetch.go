package formats

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aquillm/aquillm/internal/core/domain"
)

// maxFetchBytes bounds how much of a remote resource is read.
const maxFetchBytes = 32 << 20 // 32 MiB

// Fetch retrieves a URL with the client's bounded timeout and
// classifies failures: network errors, timeouts and 5xx responses are
// transient (retryable); 4xx responses are permanent.
func Fetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", "aquillm/1.0")

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		// Timeouts and connection failures are worth retrying.
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d from %s", domain.ErrFetchTransient, resp.StatusCode, url)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: status %d from %s", domain.ErrFetchFailed, resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", domain.ErrFetchTransient, err)
	}
	return body, nil
}
