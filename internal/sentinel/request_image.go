package sentinel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/forest-guardian/invisterra/internal/properties"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	maxPixels         = 2500
	defaultResolution = 10.0
	defaultRetries    = 10
	defaultBackoff    = 5 * time.Second
)

// ErrUnauthorized is returned when every credential pair was rejected.
var ErrUnauthorized = errors.New("unauthorized access, check your client ID and secret")

// BandRequest selects the reflectance bands to download over a lon/lat
// bounding box and acquisition window.
type BandRequest struct {
	Bound orb.Bound
	From  time.Time
	To    time.Time
	Bands []BandID
	// Resolution in metres per pixel, 10 when zero.
	Resolution float64
}

type Credential struct {
	ClientID     string
	ClientSecret string
}

// Client talks to the Sentinel Hub Process API.
type Client struct {
	Credentials []Credential
	TokenURL    string
	ProcessURL  string
	// HTTP is used for both the token and the process calls.
	HTTP    *http.Client
	Retries int
	Backoff time.Duration
}

// NewClient builds a client from the configured Copernicus credentials.
func NewClient() (*Client, error) {
	ids := properties.CopernicusClientIDs()
	secrets := properties.CopernicusClientSecrets()
	tokenURL := properties.CopernicusTokenURL()
	if len(ids) == 0 || len(secrets) == 0 || tokenURL == "" {
		return nil, fmt.Errorf("missing required environment variables: COPERNICUS_CLIENT_ID, COPERNICUS_CLIENT_SECRET, or COPERNICUS_TOKEN_URL")
	}
	if len(ids) != len(secrets) {
		return nil, fmt.Errorf("mismatched number of client IDs and secrets")
	}
	c := &Client{
		TokenURL:   tokenURL,
		ProcessURL: properties.CopernicusProcessURL(),
		HTTP:       http.DefaultClient,
		Retries:    defaultRetries,
		Backoff:    defaultBackoff,
	}
	for i := range ids {
		c.Credentials = append(c.Credentials, Credential{ClientID: ids[i], ClientSecret: secrets[i]})
	}
	return c, nil
}

// RequestBands downloads the requested bands as a multi-band FLOAT32 GeoTIFF,
// bands in request order.
func (c *Client) RequestBands(ctx context.Context, req BandRequest) ([]byte, error) {
	body, err := buildPayload(req)
	if err != nil {
		return nil, err
	}
	if len(c.Credentials) == 0 {
		return nil, fmt.Errorf("no Copernicus credentials configured")
	}

	logger := zerolog.Ctx(ctx)
	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)

	for i, cred := range c.Credentials {
		config := &clientcredentials.Config{
			ClientID:     cred.ClientID,
			ClientSecret: cred.ClientSecret,
			TokenURL:     c.TokenURL,
		}
		content, err := c.post(ctx, config.Client(ctx), body)
		if err == nil {
			return content, nil
		}
		if errors.Is(err, ErrUnauthorized) {
			logger.Warn().Int("credential", i).Msg("Credential rejected, trying the next one")
			continue
		}
		return nil, err
	}
	return nil, ErrUnauthorized
}

func (c *Client) post(ctx context.Context, httpClient *http.Client, body []byte) ([]byte, error) {
	logger := zerolog.Ctx(ctx)
	retries := c.Retries
	if retries < 1 {
		retries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		content, status, err := c.attempt(ctx, httpClient, body)
		switch {
		case err == nil && status == http.StatusOK:
			return content, nil
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return nil, ErrUnauthorized
		case isTokenRejection(err):
			return nil, ErrUnauthorized
		case err != nil:
			lastErr = err
		default:
			lastErr = fmt.Errorf("status %d: %s", status, strings.TrimSpace(string(content)))
		}
		logger.Warn().Int("attempt", attempt).Err(lastErr).Msg("Process request failed")

		if attempt == retries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.Backoff):
		}
	}
	return nil, fmt.Errorf("failed to request image after %d attempts: %w", retries, lastErr)
}

func (c *Client) attempt(ctx context.Context, httpClient *http.Client, body []byte) ([]byte, int, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ProcessURL, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "image/tiff")

	response, err := httpClient.Do(request)
	if err != nil {
		return nil, 0, err
	}
	defer response.Body.Close()

	content, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, response.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	return content, response.StatusCode, nil
}

func isTokenRejection(err error) bool {
	var retrieve *oauth2.RetrieveError
	if !errors.As(err, &retrieve) || retrieve.Response == nil {
		return false
	}
	code := retrieve.Response.StatusCode
	return code == http.StatusUnauthorized || code == http.StatusForbidden || code == http.StatusBadRequest
}

func calculatePixels(distance float64, resolution float64) int {
	pixels := int(distance * (111_000.0 / resolution))
	if pixels < 1 {
		return 1
	}
	if pixels > maxPixels {
		return maxPixels
	}
	return pixels
}

func evalscript(bands []BandID) string {
	names := make([]string, len(bands))
	samples := make([]string, len(bands))
	for i, b := range bands {
		names[i] = fmt.Sprintf("%q", b.ProcessAPIName())
		samples[i] = "sample." + b.ProcessAPIName()
	}
	return fmt.Sprintf(`//VERSION=3
function setup() {
  return {
    input: [%s],
    output: {
      id: "default",
      bands: %d,
      sampleType: SampleType.FLOAT32,
    },
  }
}

function evaluatePixel(sample) {
  return [%s];
}
`, strings.Join(names, ", "), len(bands), strings.Join(samples, ", "))
}

func buildPayload(req BandRequest) ([]byte, error) {
	if len(req.Bands) == 0 {
		return nil, fmt.Errorf("no bands requested")
	}
	if req.Bound.Max.X() <= req.Bound.Min.X() || req.Bound.Max.Y() <= req.Bound.Min.Y() {
		return nil, fmt.Errorf("empty bounding box %v", req.Bound)
	}
	if !req.To.After(req.From) {
		return nil, fmt.Errorf("time range end %s is not after start %s",
			req.To.Format(time.DateOnly), req.From.Format(time.DateOnly))
	}
	resolution := req.Resolution
	if resolution <= 0 {
		resolution = defaultResolution
	}

	payload := map[string]interface{}{
		"input": map[string]interface{}{
			"bounds": map[string]interface{}{
				"geometry": geojson.NewGeometry(req.Bound.ToPolygon()),
			},
			"data": []map[string]interface{}{
				{
					"type": "sentinel-2-l2a",
					"dataFilter": map[string]interface{}{
						"timeRange": map[string]string{
							"from": req.From.UTC().Format(time.RFC3339),
							"to":   req.To.UTC().Format(time.RFC3339),
						},
						"mosaickingOrder": "mostRecent",
					},
				},
			},
		},
		"output": map[string]interface{}{
			"width":  calculatePixels(req.Bound.Max.X()-req.Bound.Min.X(), resolution),
			"height": calculatePixels(req.Bound.Max.Y()-req.Bound.Min.Y(), resolution),
			"responses": []map[string]interface{}{
				{
					"identifier": "default",
					"format":     map[string]string{"type": "image/tiff"},
				},
			},
		},
		"evalscript": evalscript(req.Bands),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}
	return body, nil
}
