package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/bitrise-io/go-mediaupload/publish/network"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeEnvRepo struct {
	envVars map[string]string
}

func (repo fakeEnvRepo) Get(key string) string {
	value, ok := repo.envVars[key]
	if ok {
		return value
	} else {
		return ""
	}
}

func (repo fakeEnvRepo) Set(key, value string) error {
	repo.envVars[key] = value
	return nil
}

func (repo fakeEnvRepo) Unset(key string) error {
	repo.envVars[key] = ""
	return nil
}

func (repo fakeEnvRepo) List() []string {
	envs := []string{}
	for k, v := range repo.envVars {
		envs = append(envs, fmt.Sprintf("%s=%s", k, v))
	}
	return envs
}

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) UploadPart(ctx context.Context, part *network.FilePart, creds network.Credentials, sink network.ProgressSink) (string, error) {
	args := m.Called(ctx, part, creds, sink)
	return args.String(0), args.Error(1)
}

type mockSubmitter struct {
	mock.Mock
}

func (m *mockSubmitter) Submit(ctx context.Context, creds network.Credentials, parts []*network.FilePart, metadata network.Metadata) (network.SubmitResult, error) {
	args := m.Called(ctx, creds, parts, metadata)
	return args.Get(0).(network.SubmitResult), args.Error(1)
}

// finalizeAs makes a mocked upload behave like a finished session.
func finalizeAs(serverFilename string) func(args mock.Arguments) {
	return func(args mock.Arguments) {
		args.Get(1).(*network.FilePart).ServerFilename = serverFilename
	}
}

func partTitled(title string) interface{} {
	return mock.MatchedBy(func(part *network.FilePart) bool {
		return part.Title == title
	})
}

func credentialEnv() map[string]string {
	return map[string]string{
		EnvAccessToken: "token",
		EnvSessionID:   "sid",
		EnvMemberID:    "42",
	}
}

func writeMediaFiles(t *testing.T, dir string, names ...string) []string {
	t.Helper()

	var paths []string
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
		require.NoError(t, os.WriteFile(path, []byte("media "+name), 0600))
		paths = append(paths, path)
	}
	return paths
}
