// Package job reads publish jobs from TOML files.
//
//	title = "Travel diary"
//	copyright = 1
//	category = 122
//	tags = ["travel", "vlog"]
//	cover = "cover.jpg"
//
//	[[parts]]
//	path = "videos/*.mp4"
//
//	[[parts]]
//	path = "s3://media/extra.mp4"
//	title = "Extra"
package job

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bitrise-io/go-mediaupload/publish"
	"github.com/bitrise-io/go-mediaupload/publish/network"
	"github.com/bitrise-io/go-mediaupload/publish/source"
	"github.com/docker/go-units"
)

// Part ...
type Part struct {
	Path        string `toml:"path"`
	Title       string `toml:"title"`
	Description string `toml:"description"`
}

// Job is a publish job file.
type Job struct {
	Title       string   `toml:"title"`
	Description string   `toml:"description"`
	Category    int      `toml:"category"`
	Tags        []string `toml:"tags"`
	Copyright   int      `toml:"copyright"`
	Source      string   `toml:"source"`
	Cover       string   `toml:"cover"`
	NoReprint   bool     `toml:"no_reprint"`
	// OpenElec defaults to true.
	OpenElec *bool `toml:"open_elec"`

	Workers   int    `toml:"workers"`
	MaxRetry  int    `toml:"max_retry"`
	ChunkSize string `toml:"chunk_size"`

	Parts []Part `toml:"parts"`

	dir string
}

// Load parses the job file at path. Relative part and cover paths are relative to the job file.
func Load(path string) (Job, error) {
	var job Job
	meta, err := toml.DecodeFile(path, &job)
	if err != nil {
		return Job{}, fmt.Errorf("parse job file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return Job{}, fmt.Errorf("unknown keys in job file %s: %s", path, strings.Join(keys, ", "))
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return Job{}, err
	}
	job.dir = filepath.Dir(absPath)

	if err := job.Validate(); err != nil {
		return Job{}, fmt.Errorf("invalid job file %s: %w", path, err)
	}

	return job, nil
}

// Validate ...
func (j Job) Validate() error {
	if strings.TrimSpace(j.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if len(j.Parts) == 0 {
		return fmt.Errorf("at least one part is required")
	}
	for i, part := range j.Parts {
		if strings.TrimSpace(part.Path) == "" {
			return fmt.Errorf("part %d: path is required", i+1)
		}
	}
	if j.ChunkSize != "" {
		if _, err := units.RAMInBytes(j.ChunkSize); err != nil {
			return fmt.Errorf("chunk_size: %w", err)
		}
	}
	return nil
}

// Metadata ...
func (j Job) Metadata() network.Metadata {
	openElec := true
	if j.OpenElec != nil {
		openElec = *j.OpenElec
	}

	copyright := j.Copyright
	if copyright == 0 {
		copyright = 1
	}

	return network.Metadata{
		Title:       j.Title,
		Description: j.Description,
		CategoryID:  j.Category,
		Tags:        j.Tags,
		Copyright:   copyright,
		Source:      j.Source,
		CoverPath:   j.resolve(j.Cover),
		NoReprint:   j.NoReprint,
		OpenElec:    openElec,
	}
}

// Input converts the job into a publish run.
func (j Job) Input() (publish.PublishInput, error) {
	var chunkSize int64
	if j.ChunkSize != "" {
		size, err := units.RAMInBytes(j.ChunkSize)
		if err != nil {
			return publish.PublishInput{}, fmt.Errorf("chunk_size: %w", err)
		}
		chunkSize = size
	}

	parts := make([]publish.PartInput, 0, len(j.Parts))
	for _, part := range j.Parts {
		parts = append(parts, publish.PartInput{
			Path:        j.resolve(part.Path),
			Title:       part.Title,
			Description: part.Description,
		})
	}

	return publish.PublishInput{
		Parts:            parts,
		Metadata:         j.Metadata(),
		MaxWorkers:       j.Workers,
		MaxRetryPerChunk: j.MaxRetry,
		ChunkSize:        chunkSize,
	}, nil
}

func (j Job) resolve(path string) string {
	if path == "" || j.dir == "" || source.IsRemote(path) || filepath.IsAbs(path) || strings.HasPrefix(path, "~") {
		return path
	}
	return filepath.Join(j.dir, path)
}
