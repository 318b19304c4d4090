// Package gcs stores avatar images in a Cloud Storage bucket through the
// JSON API.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/medok/medok-backend/pkg/config"
	"github.com/medok/medok-backend/pkg/logger"
)

const (
	apiBaseURL     = "https://storage.googleapis.com"
	requestTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second
)

type Client struct {
	http       *http.Client
	bucket     string
	apiBase    string
	publicBase string
}

func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("gcs bucket name is required")
	}
	base := &http.Client{Timeout: requestTimeout}
	ts, err := tokenSource(ctx, gcp, base)
	if err != nil {
		return nil, err
	}

	c := &Client{
		http: &http.Client{
			Timeout:   requestTimeout,
			Transport: &oauth2.Transport{Source: ts, Base: http.DefaultTransport},
		},
		bucket:     cfg.BucketName,
		apiBase:    apiBaseURL,
		publicBase: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}
	if err := c.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs bucket %s: %w", cfg.BucketName, err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", cfg.BucketName), "gcs connected")
	}
	return c, nil
}

func (c *Client) Close() error { return nil }

// Ping lists at most one object, which needs the same permission set the
// avatar flow relies on.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.http == nil {
		return errors.New("gcs client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	resp, err := c.do(ctx, http.MethodGet, c.bucketURL("storage", "/o")+"?maxResults=1", nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError("list objects", resp)
	}
	return nil
}

// Upload writes body to object with a single media upload.
func (c *Client) Upload(ctx context.Context, object, contentType string, body io.Reader) error {
	if object == "" {
		return errors.New("object name is required")
	}
	target := c.bucketURL("upload/storage", "/o") + "?uploadType=media&name=" + url.QueryEscape(object)
	resp, err := c.do(ctx, http.MethodPost, target, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError("upload "+object, resp)
	}
	return nil
}

// Delete removes object. An object that is already gone counts as deleted.
func (c *Client) Delete(ctx context.Context, object string) error {
	resp, err := c.do(ctx, http.MethodDelete, c.bucketURL("storage", "/o/"+url.PathEscape(object)), nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	}
	return statusError("delete "+object, resp)
}

// PublicURL is the anonymous-read address of object.
func (c *Client) PublicURL(object string) string {
	return c.publicPrefix() + object
}

// ObjectFromURL reverses PublicURL. Addresses outside this bucket, such as
// generated placeholder avatars, report false.
func (c *Client) ObjectFromURL(raw string) (string, bool) {
	object, ok := strings.CutPrefix(raw, c.publicPrefix())
	return object, ok && object != ""
}

func (c *Client) publicPrefix() string {
	base := c.publicBase
	if base == "" {
		base = apiBaseURL
	}
	return base + "/" + c.bucket + "/"
}

func (c *Client) bucketURL(api, suffix string) string {
	base := c.apiBase
	if base == "" {
		base = apiBaseURL
	}
	return base + "/" + api + "/v1/b/" + url.PathEscape(c.bucket) + suffix
}

func (c *Client) do(ctx context.Context, method, target string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.http.Do(req)
}

func statusError(op string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if msg := strings.TrimSpace(string(b)); msg != "" {
		return fmt.Errorf("gcs %s: %s: %s", op, resp.Status, msg)
	}
	return fmt.Errorf("gcs %s: %s", op, resp.Status)
}
