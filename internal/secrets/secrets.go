// Package secrets resolves credential references for storage backends.
// A reference is either "env:NAME" or a Secret Manager secret path.
package secrets

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

// Fetcher retrieves a secret value by reference.
type Fetcher interface {
	FetchSecret(ctx context.Context, secretPath string) (string, error)
	Close() error
}

const envPrefix = "env:"

// SecretManager reads secrets from GCP Secret Manager.
type SecretManager struct {
	client    *secretmanager.Client
	projectID string
}

// NewSecretManager creates a Secret Manager client. projectID is used for
// bare secret names; when empty it is taken from the environment.
func NewSecretManager(ctx context.Context, projectID string, opts ...option.ClientOption) (*SecretManager, error) {
	if projectID == "" {
		projectID = projectFromEnv()
	}
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}
	return &SecretManager{client: client, projectID: projectID}, nil
}

func projectFromEnv() string {
	for _, key := range []string{"GOOGLE_CLOUD_PROJECT", "GCP_PROJECT", "GCLOUD_PROJECT"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

// FetchSecret accesses a secret version. secretPath may be:
//   - projects/PROJECT_ID/secrets/NAME/versions/VERSION
//   - projects/PROJECT_ID/secrets/NAME (latest)
//   - NAME (latest, in the configured project)
func (s *SecretManager) FetchSecret(ctx context.Context, secretPath string) (string, error) {
	name, err := normalizeSecretPath(secretPath, s.projectID)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", fmt.Errorf("failed to access secret version %s: %w", name, err)
	}
	return string(result.Payload.Data), nil
}

// Close closes the client.
func (s *SecretManager) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func normalizeSecretPath(secretPath, projectID string) (string, error) {
	if strings.HasPrefix(secretPath, "projects/") && strings.Contains(secretPath, "/versions/") {
		return secretPath, nil
	}
	if strings.HasPrefix(secretPath, "projects/") && strings.Contains(secretPath, "/secrets/") {
		return secretPath + "/versions/latest", nil
	}
	if projectID == "" {
		return "", fmt.Errorf("secret %q needs a project: set logging.gcp_project or GOOGLE_CLOUD_PROJECT", secretPath)
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", projectID, path.Base(secretPath)), nil
}

// Resolve returns the value behind ref. "env:NAME" reads the environment;
// anything else goes to fetcher. An empty ref resolves to "".
func Resolve(ctx context.Context, fetcher Fetcher, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return "", nil
	case strings.HasPrefix(ref, envPrefix):
		name := strings.TrimPrefix(ref, envPrefix)
		v, ok := os.LookupEnv(name)
		if !ok {
			return "", fmt.Errorf("environment variable %s is not set", name)
		}
		return v, nil
	case fetcher == nil:
		return "", fmt.Errorf("secret %q requires a secret manager client", ref)
	}
	v, err := fetcher.FetchSecret(ctx, ref)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(v), nil
}

// IsEnvRef reports whether ref is resolved from the environment.
func IsEnvRef(ref string) bool {
	return strings.HasPrefix(strings.TrimSpace(ref), envPrefix)
}
