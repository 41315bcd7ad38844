package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
)

const DefaultDataURL = "https://storage.googleapis.com/minikube-flake-rate/data.csv"

// Source opens the test results feed. The returned body must be closed by the caller.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// FetchError is returned when the feed could not be retrieved, either because the
// request failed, the server answered with a non-200 status, or the body could not be read.
type FetchError struct {
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("failed to fetch data from %s (status %d): %s", e.URL, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("failed to fetch data from %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("failed to fetch data from %s", e.URL)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type RealClient struct {
	dataURL    string
	token      string
	httpClient *http.Client
}

// NewRealClient creates a client for the CSV feed configured in the environment.
func NewRealClient() (*RealClient, error) {
	dataURL := os.Getenv("FLAKE_DATA_URL")
	if dataURL == "" {
		dataURL = DefaultDataURL
	}

	retries := 3
	if v := os.Getenv("FLAKE_FETCH_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid FLAKE_FETCH_RETRIES %q", v)
		}
		retries = n
	}

	timeout := 30 * time.Second
	if v := os.Getenv("FLAKE_FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid FLAKE_FETCH_TIMEOUT %q: %w", v, err)
		}
		timeout = d
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retries
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = adapter{log: logrus.WithField("component", "feed")}
	// Hand the final response back so non-200 answers keep their status and body.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	httpClient := retryClient.StandardClient()
	httpClient.Timeout = timeout

	return &RealClient{
		dataURL:    dataURL,
		token:      os.Getenv("FLAKE_DATA_TOKEN"),
		httpClient: httpClient,
	}, nil
}

func (c *RealClient) URL() string {
	return c.dataURL
}

func (c *RealClient) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.dataURL, nil)
	if err != nil {
		return nil, &FetchError{URL: c.dataURL, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: c.dataURL, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{
			URL:        c.dataURL,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	logrus.WithField("url", c.dataURL).Debug("Fetched data feed")
	return &body{ReadCloser: resp.Body, url: c.dataURL}, nil
}

// body reports read failures as FetchErrors so they surface the same way as a failed request.
type body struct {
	io.ReadCloser
	url string
}

func (b *body) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if err != nil && err != io.EOF {
		return n, &FetchError{URL: b.url, Err: err}
	}
	return n, err
}

// adapter routes retryablehttp's leveled logs to logrus, turning its key/value pairs into fields.
type adapter struct {
	log logrus.FieldLogger
}

func (a adapter) with(keysAndValues []interface{}) logrus.FieldLogger {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return a.log.WithFields(fields)
}

func (a adapter) Error(msg string, keysAndValues ...interface{}) {
	a.with(keysAndValues).Error(msg)
}

func (a adapter) Info(msg string, keysAndValues ...interface{}) {
	a.with(keysAndValues).Info(msg)
}

func (a adapter) Debug(msg string, keysAndValues ...interface{}) {
	a.with(keysAndValues).Debug(msg)
}

func (a adapter) Warn(msg string, keysAndValues ...interface{}) {
	a.with(keysAndValues).Warn(msg)
}

var _ retryablehttp.LeveledLogger = adapter{}
