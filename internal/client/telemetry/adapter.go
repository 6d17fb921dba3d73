package telemetryclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/GregMSThompson/dashboard-backend/internal/dto"
	"github.com/GregMSThompson/dashboard-backend/internal/errs"
	"github.com/GregMSThompson/dashboard-backend/pkg/logger"
)

const (
	serviceName    = "telemetry"
	maxBodyBytes   = 8 << 20
	defaultTimeout = 10 * time.Second
)

type Adapter struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewAdapter builds a telemetry client. Outgoing requests are traced
// through the otelhttp transport.
func NewAdapter(baseURL, token string, timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Adapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Fetch GETs endpoint with params encoded as query values. A decoded
// envelope is returned as is, including success=false; transport failures
// and non-2xx responses become ExternalServiceErrors.
func (a *Adapter) Fetch(ctx context.Context, endpoint string, params map[string]any) (dto.TelemetryResult, error) {
	var result dto.TelemetryResult

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+endpoint, nil)
	if err != nil {
		return result, errs.NewExternalServiceError(serviceName, "failed to build request", false, err)
	}
	req.URL.RawQuery = encodeParams(params)
	req.Header.Set("Accept", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	logger.FromContext(ctx).Debug("telemetry fetch", "endpoint", endpoint, "query", req.URL.RawQuery)

	resp, err := a.client.Do(req)
	if err != nil {
		return result, errs.NewExternalServiceError(serviceName, "telemetry request failed", isTransient(err), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return result, errs.NewExternalServiceError(serviceName, "failed to read telemetry response", true, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("telemetry returned %d", resp.StatusCode)
		return result, errs.NewExternalServiceError(serviceName, msg, resp.StatusCode >= 500, nil)
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return result, errs.NewExternalServiceError(serviceName, "malformed telemetry response", false, err)
	}
	return result, nil
}

// encodeParams renders resolved parameters as a query string. Slices repeat
// the key; everything else is formatted with %v.
func encodeParams(params map[string]any) string {
	q := url.Values{}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := params[k].(type) {
		case nil:
		case []any:
			for _, e := range v {
				q.Add(k, fmt.Sprint(e))
			}
		case []string:
			for _, e := range v {
				q.Add(k, e)
			}
		default:
			q.Set(k, fmt.Sprint(v))
		}
	}
	return q.Encode()
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
