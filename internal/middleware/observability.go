package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tyebliya/waitlist-api/internal/guard"
	"github.com/tyebliya/waitlist-api/pkg/logger"
	"github.com/tyebliya/waitlist-api/pkg/metrics"
	"go.uber.org/zap"
)

// sensitiveQueryParams are redacted from logs to avoid leaking secrets.
var sensitiveQueryParams = map[string]bool{
	"token": true, "password": true, "secret": true, "key": true,
	"auth": true, "api_key": true, "apikey": true,
}

// ObservabilityMiddleware records request metrics and writes one log line per request.
// It runs after RequestIDMiddleware so the log line carries the request id.
func ObservabilityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		// In-flight gauge is labelled by method only; the route is unknown until c.Next returns
		metrics.ActiveRequests.WithLabelValues(method).Inc()
		defer metrics.ActiveRequests.WithLabelValues(method).Dec()

		// Handlers run here; gin resolves the matched route during this call
		c.Next()

		// Label metrics with the route template ("/api/waitlist/stats") rather than
		// the raw URL so requests for random paths cannot grow the series count
		path := c.FullPath()
		if path == "" {
			// 404s and scanner traffic share one label
			path = "unmatched"
		}

		duration := metrics.MeasureDuration(start)
		status := c.Writer.Status()
		statusStr := strconv.Itoa(status)

		// Metrics use the template, the log line below keeps the actual path
		metrics.HTTPRequestDuration.WithLabelValues(method, path, statusStr).Observe(duration)
		metrics.HTTPRequestTotal.WithLabelValues(method, path, statusStr).Inc()

		actualPath := c.Request.URL.Path
		// client_ip follows the same forwarding headers as the signup rate limiter,
		// so a 429 in the log can be matched to the limiter key
		fields := []zap.Field{
			zap.String("route", path),
			zap.String("client_ip", guard.ClientIP(c.Request.Header)),
			zap.String("request_id", c.GetString(RequestIDKey)),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.Int("response_size", c.Writer.Size()),
		}

		// Failed requests get extra context: route params, query string with
		// secrets removed, and whatever error the handler attached via c.Error
		if status >= 400 {
			if len(c.Params) > 0 {
				params := make(map[string]string, len(c.Params))
				for _, p := range c.Params {
					params[p.Key] = p.Value
				}
				fields = append(fields, zap.Any("route_params", params))
			}

			// Only the first value of each parameter is logged
			if query := c.Request.URL.Query(); len(query) > 0 {
				sanitized := make(map[string]string, len(query))
				for k, v := range query {
					if !sensitiveQueryParams[strings.ToLower(k)] && len(v) > 0 {
						sanitized[k] = v[0]
					}
				}
				if len(sanitized) > 0 {
					fields = append(fields, zap.Any("query_params", sanitized))
				}
			}

			// respondError attaches the underlying cause; the response body never carries it
			if len(c.Errors) > 0 {
				fields = append(fields, zap.String("error", c.Errors.String()))
			}
		}

		// The request context carries the otelgin span, so the line links to the trace
		logger.LogHTTPRequest(c.Request.Context(), method, actualPath, status, duration, fields...)
	}
}
