package main

import (
	"fmt"

	"github.com/bitrise-io/go-mediaupload/publish"
	"github.com/bitrise-io/go-mediaupload/publish/job"
	"github.com/bitrise-io/go-mediaupload/publish/network"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/docker/go-units"
	"github.com/spf13/cobra"
)

func newPublishCmd() *cobra.Command {
	var (
		jobFile   string
		tokenFile string
		workers   int
		maxRetry  int
		chunkSize string
		metadata  network.Metadata
	)

	cmd := &cobra.Command{
		Use:   "publish [--job job.toml | --title TITLE file...]",
		Short: "Upload parts and submit them as one work",
		Example: `  mediaupload publish --job travel.toml
  mediaupload publish --title "Travel diary" --tid 122 --tag travel --cover cover.jpg videos/*.mp4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var input publish.PublishInput
			switch {
			case jobFile != "":
				if len(args) > 0 {
					return fmt.Errorf("parts are read from the job file, got extra arguments: %v", args)
				}
				j, err := job.Load(jobFile)
				if err != nil {
					return err
				}
				if input, err = j.Input(); err != nil {
					return err
				}
			case len(args) > 0:
				for _, arg := range args {
					input.Parts = append(input.Parts, publish.PartInput{Path: arg})
				}
				input.Metadata = metadata
			default:
				return fmt.Errorf("either --job or at least one media file is required")
			}

			input.Verbose = verbose
			input.TokenFile = tokenFile
			if cmd.Flags().Changed("workers") {
				input.MaxWorkers = workers
			}
			if cmd.Flags().Changed("max-retry") {
				input.MaxRetryPerChunk = maxRetry
			}
			if chunkSize != "" {
				size, err := units.RAMInBytes(chunkSize)
				if err != nil {
					return fmt.Errorf("invalid --chunk-size: %w", err)
				}
				input.ChunkSize = size
			}

			logger := newLogger()
			publisher := publish.NewPublisher(
				env.NewRepository(),
				logger,
				pathutil.NewPathModifier(),
				pathutil.NewPathChecker(),
				nil,
				nil,
				nil,
			)

			result, err := publisher.Publish(cmd.Context(), input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", result.PublicID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&jobFile, "job", "j", "", "Job file (TOML) describing the parts and the metadata")
	cmd.Flags().StringVar(&tokenFile, "token-file", "", "Persisted credentials (defaults to $MEDIAUPLOAD_TOKEN_FILE)")
	cmd.Flags().IntVarP(&workers, "workers", "w", publish.DefaultMaxWorkers, "Number of parts uploaded at the same time")
	cmd.Flags().IntVar(&maxRetry, "max-retry", 5, "Attempts per chunk")
	cmd.Flags().StringVar(&chunkSize, "chunk-size", "", "Chunk size, like 2MB")

	cmd.Flags().StringVar(&metadata.Title, "title", "", "Title of the work")
	cmd.Flags().StringVar(&metadata.Description, "desc", "", "Description of the work")
	cmd.Flags().IntVar(&metadata.CategoryID, "tid", 0, "Category of the work")
	cmd.Flags().StringSliceVar(&metadata.Tags, "tag", nil, "Tags of the work")
	cmd.Flags().IntVar(&metadata.Copyright, "copyright", 1, "1 for original works, 2 for reposts")
	cmd.Flags().StringVar(&metadata.Source, "source", "", "Original location of a reposted work")
	cmd.Flags().StringVar(&metadata.CoverPath, "cover", "", "Cover image")
	cmd.Flags().BoolVar(&metadata.NoReprint, "no-reprint", false, "Forbid reprints")
	cmd.Flags().BoolVar(&metadata.OpenElec, "open-elec", true, "Enable the charging panel")

	return cmd
}
