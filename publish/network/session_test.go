package network

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/bitrise-io/go-mediaupload/publish/network/chunkuploader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mib = 1024 * 1024

func TestSession_Run(t *testing.T) {
	platform := newFakePlatform(t)
	client := platform.client(t, ClientConfig{})

	path, data := writeTestFile(t, "P1.mp4", 5*mib)
	part, err := NewFilePart(path, "", "first", 2*mib)
	require.NoError(t, err)
	require.Equal(t, 3, part.ChunkCount)

	sink := newRecordingSink()
	session := client.NewSession(part, testCredentials(), sink)

	filename, err := session.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "n1", filename)
	assert.Equal(t, "n1", part.ServerFilename)
	assert.Equal(t, StateDone, session.State())
	assert.Equal(t, []int{0, 1, 2}, platform.chunksOf("n1"))
	assert.Equal(t, []int{1, 2, 3}, sink.get(part.Key()))

	require.Equal(t, []finalizeCall{{
		Filename: "n1",
		Chunks:   3,
		FileSize: 5 * mib,
		MD5:      md5Hex(data),
		Name:     "P1.mp4",
	}}, platform.finalizeCalls())
}

func TestSession_Run_ChunkSizes(t *testing.T) {
	tests := []struct {
		name       string
		size       int
		wantChunks []int
	}{
		{name: "exact multiple", size: 4 * mib, wantChunks: []int{0, 1}},
		{name: "smaller than a chunk", size: 100, wantChunks: []int{0}},
		{name: "1 MiB", size: 1 * mib, wantChunks: []int{0}},
		{name: "empty file", size: 0, wantChunks: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			platform := newFakePlatform(t)
			client := platform.client(t, ClientConfig{})

			path, data := writeTestFile(t, "part.mp4", tt.size)
			part, err := NewFilePart(path, "", "", 2*mib)
			require.NoError(t, err)

			_, err = client.UploadPart(context.Background(), part, testCredentials(), nil)
			require.NoError(t, err)

			assert.Equal(t, tt.wantChunks, platform.chunksOf("n1"))
			finalizes := platform.finalizeCalls()
			require.Len(t, finalizes, 1)
			assert.Equal(t, len(tt.wantChunks), finalizes[0].Chunks)
			assert.Equal(t, md5Hex(data), finalizes[0].MD5)
		})
	}
}

func TestSession_Run_TransientChunkFailures(t *testing.T) {
	platform := newFakePlatform(t)
	platform.failChunk = func(_ string, chunk, attempt int) (int, string) {
		if chunk == 1 && attempt < 2 {
			return http.StatusBadGateway, "bad gateway"
		}
		return 0, ""
	}
	client := platform.client(t, ClientConfig{MaxRetryPerChunk: 5})

	path, _ := writeTestFile(t, "P1.mp4", 5*mib)
	part, err := NewFilePart(path, "", "", 2*mib)
	require.NoError(t, err)

	sink := newRecordingSink()
	_, err = client.UploadPart(context.Background(), part, testCredentials(), sink)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2}, platform.chunksOf("n1"))
	assert.Equal(t, 3, platform.attempts("n1", 1))
	assert.Len(t, platform.finalizeCalls(), 1)
	assert.Equal(t, []int{1, 2, 2, 2, 3}, sink.get(part.Key()))
}

func TestSession_Run_ChunkExhausted(t *testing.T) {
	platform := newFakePlatform(t)
	platform.failChunk = func(_ string, chunk, _ int) (int, string) {
		if chunk == 1 {
			return http.StatusOK, `{"OK":0,"info":"chunk rejected"}`
		}
		return 0, ""
	}
	client := platform.client(t, ClientConfig{MaxRetryPerChunk: 3})

	path, _ := writeTestFile(t, "P1.mp4", 5*mib)
	part, err := NewFilePart(path, "", "", 2*mib)
	require.NoError(t, err)

	session := client.NewSession(part, testCredentials(), nil)
	_, err = session.Run(context.Background())
	require.Error(t, err)

	var fileErr *FatalFileError
	require.True(t, errors.As(err, &fileErr))
	assert.Equal(t, StateUploadingChunks, fileErr.State)
	assert.Equal(t, part, fileErr.Part)
	assert.Contains(t, err.Error(), "chunk rejected")

	var exhaustedErr *chunkuploader.ExhaustedError
	require.True(t, errors.As(err, &exhaustedErr))
	assert.Equal(t, 1, exhaustedErr.Index)
	assert.Equal(t, 3, exhaustedErr.Attempts)

	assert.Equal(t, StateFailed, session.State())
	assert.Equal(t, []int{0}, platform.chunksOf("n1"))
	assert.Equal(t, 3, platform.attempts("n1", 1))
	assert.Zero(t, platform.attempts("n1", 2))
	assert.Empty(t, platform.finalizeCalls())
	assert.False(t, part.Finalized())
}

func TestSession_Run_NegotiationRetry(t *testing.T) {
	platform := newFakePlatform(t)
	platform.failPreupload = func(attempt int) int {
		if attempt < 2 {
			return http.StatusServiceUnavailable
		}
		return 0
	}
	client := platform.client(t, ClientConfig{NegotiateAttempts: 3})

	path, _ := writeTestFile(t, "P1.mp4", 100)
	part, err := NewFilePart(path, "", "", 0)
	require.NoError(t, err)

	_, err = client.UploadPart(context.Background(), part, testCredentials(), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, platform.preuploadCount())
}

func TestSession_Run_NegotiationRejected(t *testing.T) {
	platform := newFakePlatform(t)
	platform.failPreupload = func(int) int {
		return http.StatusUnauthorized
	}
	client := platform.client(t, ClientConfig{NegotiateAttempts: 3})

	path, _ := writeTestFile(t, "P1.mp4", 100)
	part, err := NewFilePart(path, "", "", 0)
	require.NoError(t, err)

	_, err = client.UploadPart(context.Background(), part, testCredentials(), nil)
	require.Error(t, err)

	var fileErr *FatalFileError
	require.True(t, errors.As(err, &fileErr))
	assert.Equal(t, StateNegotiating, fileErr.State)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)

	assert.Equal(t, 1, platform.preuploadCount())
	assert.Empty(t, platform.chunksOf("n1"))
}

func TestSession_Run_FinalizeRejected(t *testing.T) {
	platform := newFakePlatform(t)
	platform.finalizeBody = `{"OK":0,"info":"md5 mismatch"}`
	client := platform.client(t, ClientConfig{})

	path, _ := writeTestFile(t, "P1.mp4", 3*mib)
	part, err := NewFilePart(path, "", "", 2*mib)
	require.NoError(t, err)

	_, err = client.UploadPart(context.Background(), part, testCredentials(), nil)
	require.Error(t, err)

	var fileErr *FatalFileError
	require.True(t, errors.As(err, &fileErr))
	assert.Equal(t, StateFinalizing, fileErr.State)
	assert.Contains(t, err.Error(), "md5 mismatch")
	assert.False(t, part.Finalized())
	assert.Len(t, platform.finalizeCalls(), 1)
}

func TestSession_Run_AlreadyFinalized(t *testing.T) {
	platform := newFakePlatform(t)
	client := platform.client(t, ClientConfig{})

	path, _ := writeTestFile(t, "P1.mp4", 100)
	part, err := NewFilePart(path, "", "", 0)
	require.NoError(t, err)
	part.ServerFilename = "n99"

	_, err = client.UploadPart(context.Background(), part, testCredentials(), nil)
	require.Error(t, err)
	assert.Zero(t, platform.preuploadCount())
	assert.Equal(t, "n99", part.ServerFilename)
}

func TestSession_Run_Cancelled(t *testing.T) {
	platform := newFakePlatform(t)
	client := platform.client(t, ClientConfig{NegotiateAttempts: 3})

	path, _ := writeTestFile(t, "P1.mp4", 100)
	part, err := NewFilePart(path, "", "", 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.UploadPart(ctx, part, testCredentials(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, platform.finalizeCalls())
}

func TestNewFilePart(t *testing.T) {
	path, _ := writeTestFile(t, "episode.mp4", 2*mib+1)

	part, err := NewFilePart(path, "", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "episode.mp4", part.Title)
	assert.Equal(t, chunkuploader.DefaultChunkSize, part.ChunkSize)
	assert.Equal(t, 2, part.ChunkCount)
	assert.Equal(t, int64(2*mib+1), part.Size)
	assert.False(t, part.Finalized())

	_, err = NewFilePart(t.TempDir(), "", "", 0)
	assert.Error(t, err)

	_, err = NewFilePart(path+".missing", "", "", 0)
	assert.Error(t, err)
}
