package sentinel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type processServer struct {
	*httptest.Server
	calls    atomic.Int32
	accepted string
	status   int
	payload  map[string]interface{}
}

func newProcessServer(t *testing.T, accepted string, status int) *processServer {
	t.Helper()
	s := &processServer{accepted: accepted, status: status}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		id, _, ok := r.BasicAuth()
		if !ok {
			require.NoError(t, r.ParseForm())
			id = r.Form.Get("client_id")
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"token-%s","token_type":"bearer","expires_in":3600}`, id)
	})
	mux.HandleFunc("/process", func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer token-"+s.accepted {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if s.status != http.StatusOK {
			w.WriteHeader(s.status)
			io.WriteString(w, "busy")
			return
		}
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &s.payload))
		w.Header().Set("Content-Type", "image/tiff")
		io.WriteString(w, "II*\x00tiff")
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *processServer) client(ids ...string) *Client {
	c := &Client{
		TokenURL:   s.URL + "/token",
		ProcessURL: s.URL + "/process",
		HTTP:       s.Server.Client(),
		Retries:    3,
	}
	for _, id := range ids {
		c.Credentials = append(c.Credentials, Credential{ClientID: id, ClientSecret: "secret"})
	}
	return c
}

func testRequest() BandRequest {
	return BandRequest{
		Bound: orb.Bound{Min: orb.Point{11.0, 46.0}, Max: orb.Point{11.125, 46.0625}},
		From:  time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		To:    time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC),
		Bands: []BandID{B4, B8, B8A},
	}
}

func TestRequestBands(t *testing.T) {
	s := newProcessServer(t, "a", http.StatusOK)

	content, err := s.client("a").RequestBands(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "II*\x00tiff", string(content))
	assert.Equal(t, int32(1), s.calls.Load())

	output := s.payload["output"].(map[string]interface{})
	assert.Equal(t, float64(1387), output["width"])
	assert.Equal(t, float64(693), output["height"])

	script := s.payload["evalscript"].(string)
	assert.Contains(t, script, `input: ["B04", "B08", "B8A"]`)
	assert.Contains(t, script, "bands: 3")
	assert.Contains(t, script, "SampleType.FLOAT32")
	assert.Contains(t, script, "return [sample.B04, sample.B08, sample.B8A];")

	geometry := s.payload["input"].(map[string]interface{})["bounds"].(map[string]interface{})["geometry"].(map[string]interface{})
	assert.Equal(t, "Polygon", geometry["type"])
}

func TestRequestBandsFallsBackToNextCredential(t *testing.T) {
	s := newProcessServer(t, "b", http.StatusOK)

	content, err := s.client("a", "b").RequestBands(context.Background(), testRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, content)
	// a forbidden answer is not retried
	assert.Equal(t, int32(2), s.calls.Load())
}

func TestRequestBandsUnauthorized(t *testing.T) {
	s := newProcessServer(t, "nobody", http.StatusOK)

	_, err := s.client("a", "b").RequestBands(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(2), s.calls.Load())
}

func TestRequestBandsRetries(t *testing.T) {
	s := newProcessServer(t, "a", http.StatusServiceUnavailable)

	_, err := s.client("a").RequestBands(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Contains(t, err.Error(), "busy")
	assert.Equal(t, int32(3), s.calls.Load())
}

func TestBuildPayloadValidation(t *testing.T) {
	tests := map[string]func(*BandRequest){
		"no bands":       func(r *BandRequest) { r.Bands = nil },
		"empty bbox":     func(r *BandRequest) { r.Bound.Max = r.Bound.Min },
		"reversed range": func(r *BandRequest) { r.From, r.To = r.To, r.From },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			req := testRequest()
			mutate(&req)
			_, err := buildPayload(req)
			assert.Error(t, err)
		})
	}
}

func TestCalculatePixels(t *testing.T) {
	assert.Equal(t, 1, calculatePixels(0, 10))
	assert.Equal(t, 1387, calculatePixels(0.125, 10))
	assert.Equal(t, 693, calculatePixels(0.0625, 10))
	assert.Equal(t, 2500, calculatePixels(1, 10))
}

func TestNewClientFromEnvironment(t *testing.T) {
	t.Setenv("COPERNICUS_CLIENT_ID", "a, b")
	t.Setenv("COPERNICUS_CLIENT_SECRET", "x,y")
	t.Setenv("COPERNICUS_TOKEN_URL", "https://example.test/token")

	c, err := NewClient()
	require.NoError(t, err)
	assert.Equal(t, []Credential{{"a", "x"}, {"b", "y"}}, c.Credentials)
	assert.True(t, strings.HasSuffix(c.ProcessURL, "/api/v1/process"))

	t.Setenv("COPERNICUS_CLIENT_SECRET", "x")
	_, err = NewClient()
	assert.Error(t, err)
}
