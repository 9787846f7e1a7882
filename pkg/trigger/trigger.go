package trigger

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/tyebliya/waitlist-api/pkg/httpclient"
	"github.com/tyebliya/waitlist-api/pkg/logger"
	"go.uber.org/zap"
)

const callTimeout = 10 * time.Second

// CallAsync notifies a webhook URL that a record was created, passing the id
// as the record_id query parameter. Failures are logged and never reach the caller.
func CallAsync(triggerURL, recordID string, httpClient httpclient.Client) {
	if triggerURL == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()

		targetURL, err := buildURL(triggerURL, recordID)
		if err != nil {
			logger.Error("Invalid trigger URL", zap.Error(err), zap.String("record_id", recordID))
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, http.NoBody)
		if err != nil {
			logger.Error("Failed to build trigger request", zap.Error(err), zap.String("record_id", recordID))
			return
		}

		resp, err := httpClient.Do(req)
		if err != nil {
			logger.Error("Failed to call trigger URL",
				zap.Error(err),
				zap.String("record_id", recordID))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			logger.Info("Trigger URL called successfully",
				zap.String("record_id", recordID),
				zap.Int("status_code", resp.StatusCode))
		} else {
			logger.Warn("Trigger URL returned non-success status",
				zap.String("record_id", recordID),
				zap.Int("status_code", resp.StatusCode))
		}
	}()
}

func buildURL(triggerURL, recordID string) (string, error) {
	u, err := url.Parse(triggerURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("record_id", recordID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
