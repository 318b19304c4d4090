package gcs

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/medok/medok-backend/pkg/config"
)

const scopeReadWrite = "https://www.googleapis.com/auth/devstorage.read_write"

// tokenSource picks inline service-account JSON, then a key file, then
// application default credentials (the metadata server on Cloud Run).
// Token requests go through hc and outlive the ctx passed in.
func tokenSource(ctx context.Context, gcp config.GCPConfig, hc *http.Client) (oauth2.TokenSource, error) {
	ctx = context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, hc)

	key := []byte(strings.TrimSpace(gcp.CredentialsJSON))
	if len(key) == 0 && gcp.ApplicationCredentials != "" {
		raw, err := os.ReadFile(gcp.ApplicationCredentials)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		key = raw
	}
	if len(key) == 0 {
		ts, err := google.DefaultTokenSource(ctx, scopeReadWrite)
		if err != nil {
			return nil, fmt.Errorf("default credentials: %w", err)
		}
		return ts, nil
	}

	conf, err := google.JWTConfigFromJSON(key, scopeReadWrite)
	if err != nil {
		return nil, fmt.Errorf("service account credentials: %w", err)
	}
	return conf.TokenSource(ctx), nil
}
