package job

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bitrise-io/go-mediaupload/publish"
	"github.com/bitrise-io/go-mediaupload/publish/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJob(t *testing.T, content string) (string, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "job.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	absDir, err := filepath.Abs(dir)
	require.NoError(t, err)
	return path, absDir
}

func TestLoad(t *testing.T) {
	path, dir := writeJob(t, `
title = "Travel diary"
description = "Two weeks on the road"
category = 122
tags = ["travel", "vlog"]
cover = "cover.jpg"
workers = 2
chunk_size = "4MB"

[[parts]]
path = "videos/*.mp4"
description = "day"

[[parts]]
path = "s3://media/extra.mp4"
title = "Extra"
`)

	job, err := Load(path)
	require.NoError(t, err)

	input, err := job.Input()
	require.NoError(t, err)

	assert.Equal(t, publish.PublishInput{
		Parts: []publish.PartInput{
			{Path: filepath.Join(dir, "videos", "*.mp4"), Description: "day"},
			{Path: "s3://media/extra.mp4", Title: "Extra"},
		},
		Metadata: network.Metadata{
			Title:       "Travel diary",
			Description: "Two weeks on the road",
			CategoryID:  122,
			Tags:        []string{"travel", "vlog"},
			Copyright:   1,
			CoverPath:   filepath.Join(dir, "cover.jpg"),
			OpenElec:    true,
		},
		MaxWorkers: 2,
		ChunkSize:  4 * 1024 * 1024,
	}, input)
}

func TestLoad_OpenElecDisabled(t *testing.T) {
	path, _ := writeJob(t, `
title = "Repost"
copyright = 2
source = "https://example.com/original"
open_elec = false

[[parts]]
path = "/abs/P1.mp4"
`)

	job, err := Load(path)
	require.NoError(t, err)

	metadata := job.Metadata()
	assert.False(t, metadata.OpenElec)
	assert.Equal(t, 2, metadata.Copyright)
	assert.Equal(t, "", metadata.CoverPath)

	input, err := job.Input()
	require.NoError(t, err)
	assert.Equal(t, "/abs/P1.mp4", input.Parts[0].Path)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not toml", content: `title = `},
		{name: "missing title", content: "[[parts]]\npath = \"P1.mp4\"\n"},
		{name: "no parts", content: `title = "Title"`},
		{name: "part without path", content: "title = \"Title\"\n[[parts]]\ntitle = \"P1\"\n"},
		{name: "unknown key", content: "title = \"Title\"\nworker = 2\n[[parts]]\npath = \"P1.mp4\"\n"},
		{name: "invalid chunk size", content: "title = \"Title\"\nchunk_size = \"big\"\n[[parts]]\npath = \"P1.mp4\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, _ := writeJob(t, tt.content)

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
