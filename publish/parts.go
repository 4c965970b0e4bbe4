package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bitrise-io/go-mediaupload/publish/network"
	"github.com/bitrise-io/go-mediaupload/publish/source"
	"github.com/bmatcuk/doublestar/v4"
)

// PartInput is one media file of the work, or a glob pattern matching several.
// Path can also be a file://, http(s):// or s3:// location.
type PartInput struct {
	Path        string
	Title       string
	Description string
}

// SourceResolver maps a media location to a local file.
type SourceResolver interface {
	Resolve(ctx context.Context, location string) (string, error)
}

// evaluateParts expands the part inputs into ordered parts.
// Untitled parts are named after their position: P1, P2, ...
func (p *publisher) evaluateParts(ctx context.Context, inputs []PartInput, chunkSize int64, resolver SourceResolver) ([]*network.FilePart, error) {
	var expanded []PartInput
	for _, input := range inputs {
		if source.IsRemote(input.Path) || !strings.Contains(input.Path, "*") {
			expanded = append(expanded, input)
			continue
		}

		matches, err := p.expandPattern(input.Path)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			p.logger.Warnf("No match for part pattern: %s", input.Path)
			continue
		}
		for _, match := range matches {
			expanded = append(expanded, PartInput{Path: match, Description: input.Description})
		}
	}
	if len(expanded) == 0 {
		return nil, fmt.Errorf("no media file matches the parts")
	}

	parts := make([]*network.FilePart, 0, len(expanded))
	for i, input := range expanded {
		localPath, err := resolver.Resolve(ctx, input.Path)
		if err != nil {
			return nil, err
		}

		absPath, err := p.pathModifier.AbsPath(localPath)
		if err != nil {
			return nil, fmt.Errorf("failed to parse path %s: %w", localPath, err)
		}
		exists, err := p.pathChecker.IsPathExists(absPath)
		if err != nil {
			return nil, fmt.Errorf("failed to check path %s: %w", absPath, err)
		}
		if !exists {
			return nil, fmt.Errorf("part doesn't exist: %s", input.Path)
		}

		title := input.Title
		if title == "" {
			title = fmt.Sprintf("P%d", i+1)
		}

		part, err := network.NewFilePart(absPath, title, input.Description, chunkSize)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}

	return parts, nil
}

func (p *publisher) expandPattern(path string) ([]string, error) {
	base, pattern := doublestar.SplitPattern(path)
	absBase, err := p.pathModifier.AbsPath(base) // resolves ~/ and expands any envs
	if err != nil {
		return nil, err
	}

	matches, err := doublestar.Glob(os.DirFS(absBase), pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid part pattern %s: %w", path, err)
	}
	sort.Strings(matches)

	var files []string
	for _, match := range matches {
		matchPath := filepath.Join(absBase, match)
		info, err := os.Stat(matchPath)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, matchPath)
	}

	return files, nil
}
