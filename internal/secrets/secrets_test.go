package secrets

import (
	"context"
	"errors"
	"testing"
)

type mockFetcher struct {
	fetchFunc func(ctx context.Context, secretPath string) (string, error)
	calls     []string
}

func (m *mockFetcher) FetchSecret(ctx context.Context, secretPath string) (string, error) {
	m.calls = append(m.calls, secretPath)
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, secretPath)
	}
	return "", errors.New("mock fetch not implemented")
}

func (m *mockFetcher) Close() error { return nil }

func TestNormalizeSecretPath(t *testing.T) {
	tests := []struct {
		name       string
		secretPath string
		projectID  string
		want       string
		wantErr    bool
	}{
		{
			name:       "full path with version",
			secretPath: "projects/bank/secrets/redis/versions/3",
			want:       "projects/bank/secrets/redis/versions/3",
		},
		{
			name:       "full path without version",
			secretPath: "projects/bank/secrets/redis",
			want:       "projects/bank/secrets/redis/versions/latest",
		},
		{
			name:       "bare name uses project",
			secretPath: "redis-password",
			projectID:  "bank",
			want:       "projects/bank/secrets/redis-password/versions/latest",
		},
		{
			name:       "path prefix is dropped",
			secretPath: "team/redis-password",
			projectID:  "bank",
			want:       "projects/bank/secrets/redis-password/versions/latest",
		},
		{
			name:       "bare name without project",
			secretPath: "redis-password",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeSecretPath(tt.secretPath, tt.projectID)
			if (err != nil) != tt.wantErr {
				t.Fatalf("normalizeSecretPath() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("normalizeSecretPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	t.Setenv("P2P_TEST_REDIS_PASSWORD", "from-env")
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		got, err := Resolve(ctx, nil, "  ")
		if err != nil || got != "" {
			t.Errorf("Resolve(empty) = %q, %v", got, err)
		}
	})

	t.Run("env", func(t *testing.T) {
		got, err := Resolve(ctx, nil, "env:P2P_TEST_REDIS_PASSWORD")
		if err != nil || got != "from-env" {
			t.Errorf("Resolve(env) = %q, %v", got, err)
		}
	})

	t.Run("env unset", func(t *testing.T) {
		if _, err := Resolve(ctx, nil, "env:P2P_TEST_NOT_SET_ANYWHERE"); err == nil {
			t.Error("Resolve(unset env) error = nil")
		}
	})

	t.Run("secret manager", func(t *testing.T) {
		m := &mockFetcher{fetchFunc: func(context.Context, string) (string, error) {
			return "s3cret\n", nil
		}}
		got, err := Resolve(ctx, m, "redis-password")
		if err != nil || got != "s3cret" {
			t.Errorf("Resolve() = %q, %v", got, err)
		}
		if len(m.calls) != 1 || m.calls[0] != "redis-password" {
			t.Errorf("calls = %v", m.calls)
		}
	})

	t.Run("fetch error", func(t *testing.T) {
		m := &mockFetcher{}
		if _, err := Resolve(ctx, m, "redis-password"); err == nil {
			t.Error("Resolve() error = nil")
		}
	})

	t.Run("no fetcher", func(t *testing.T) {
		if _, err := Resolve(ctx, nil, "redis-password"); err == nil {
			t.Error("Resolve() error = nil")
		}
	})
}

func TestIsEnvRef(t *testing.T) {
	if !IsEnvRef(" env:X") {
		t.Error("IsEnvRef(env:X) = false")
	}
	if IsEnvRef("projects/p/secrets/x") {
		t.Error("IsEnvRef(secret path) = true")
	}
}
