// Package ci integrates with the AppVeyor build environment: detecting
// whether the current process runs under CI and uploading test result files
// to the job's results endpoint.
package ci

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// EnvIndicator is set by AppVeyor for every build job.
	EnvIndicator = "APPVEYOR"
	// EnvJobID carries the identifier of the current build job.
	EnvJobID = "APPVEYOR_JOB_ID"

	// DefaultEndpoint is the base URL for result uploads; the job ID is
	// appended as the final path segment.
	DefaultEndpoint = "https://ci.appveyor.com/api/testresults/mstest"

	defaultUploadTimeout = 2 * time.Minute
)

// JobContext describes the CI environment of the current process.
type JobContext struct {
	OnCI  bool
	JobID string
}

// Detect reads the AppVeyor environment indicators.
func Detect() JobContext {
	_, onCI := os.LookupEnv(EnvIndicator)
	return JobContext{
		OnCI:  onCI,
		JobID: os.Getenv(EnvJobID),
	}
}

// UploadPolicy decides how a failed result upload affects the phase outcome.
type UploadPolicy string

const (
	// UploadPolicyWarn logs upload failures and leaves the phase outcome
	// untouched. This is the default.
	UploadPolicyWarn UploadPolicy = "warn"
	// UploadPolicyFail marks the phase failed when the upload fails.
	UploadPolicyFail UploadPolicy = "fail"
)

// ParseUploadPolicy validates a policy string, defaulting to warn when empty.
func ParseUploadPolicy(s string) (UploadPolicy, error) {
	switch UploadPolicy(s) {
	case "":
		return UploadPolicyWarn, nil
	case UploadPolicyWarn, UploadPolicyFail:
		return UploadPolicy(s), nil
	default:
		return "", fmt.Errorf("unknown upload policy %q (expected %s or %s)", s, UploadPolicyWarn, UploadPolicyFail)
	}
}

// Uploader posts result files to the CI results endpoint with bounded
// retries on transient failures.
type Uploader struct {
	Endpoint   string
	Client     *http.Client
	MaxRetries uint64

	// backoffInterval shortens retry delays in tests.
	backoffInterval time.Duration
}

// NewUploader returns an Uploader targeting the default AppVeyor endpoint.
func NewUploader() *Uploader {
	return &Uploader{
		Endpoint:        DefaultEndpoint,
		Client:          &http.Client{Timeout: defaultUploadTimeout},
		MaxRetries:      3,
		backoffInterval: time.Second,
	}
}

// UploadResults uploads the file at path as a multipart form to
// <endpoint>/<jobID>. Server errors and network failures are retried with
// exponential backoff; client errors are terminal.
func (u *Uploader) UploadResults(ctx context.Context, jobID, path string) error {
	if jobID == "" {
		return fmt.Errorf("job ID cannot be empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read results file: %w", err)
	}

	url := fmt.Sprintf("%s/%s", u.Endpoint, jobID)
	attempt := func() error {
		return u.post(ctx, url, filepath.Base(path), data)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = u.backoffInterval
	return backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(bo, u.MaxRetries), ctx))
}

func (u *Uploader) post(ctx context.Context, url, filename string, data []byte) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to build multipart body: %w", err))
	}
	if _, err := part.Write(data); err != nil {
		return backoff.Permanent(fmt.Errorf("failed to build multipart body: %w", err))
	}
	if err := writer.Close(); err != nil {
		return backoff.Permanent(fmt.Errorf("failed to build multipart body: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := u.Client.Do(req)
	if err != nil {
		return fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	err = fmt.Errorf("upload rejected with status %d: %s", resp.StatusCode, string(msg))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return backoff.Permanent(err)
	}
	return err
}
