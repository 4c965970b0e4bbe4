package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/bitrise-io/go-mediaupload/publish/network/chunkuploader"
	"github.com/docker/go-units"
	"github.com/spf13/cobra"
)

func newPlanCmd() *cobra.Command {
	var (
		chunkSize string
		segments  bool
	)

	cmd := &cobra.Command{
		Use:   "plan file...",
		Short: "Print the chunk plan of media files without uploading",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			size, err := units.RAMInBytes(chunkSize)
			if err != nil {
				return fmt.Errorf("invalid --chunk-size: %w", err)
			}
			if size <= 0 {
				return fmt.Errorf("invalid --chunk-size: %s", chunkSize)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FILE\tSIZE\tCHUNKS")
			for _, path := range args {
				info, err := os.Stat(path)
				if err != nil {
					return err
				}
				if !info.Mode().IsRegular() {
					return fmt.Errorf("%s is not a regular file", path)
				}

				plan := chunkuploader.Split(info.Size(), size)
				fmt.Fprintf(w, "%s\t%s\t%d\n", path, units.HumanSizeWithPrecision(float64(info.Size()), 3), len(plan))
				if segments {
					for _, segment := range plan {
						fmt.Fprintf(w, "  #%d\t%d+%d\t\n", segment.Index, segment.Offset, segment.Length)
					}
				}
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&chunkSize, "chunk-size", "2MB", "Chunk size")
	cmd.Flags().BoolVar(&segments, "segments", false, "Print every segment")

	return cmd
}
