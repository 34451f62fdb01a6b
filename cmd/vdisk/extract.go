package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ostafen/vdisk/pkg/partition"
	"github.com/ostafen/vdisk/pkg/vdisk"
	"github.com/spf13/cobra"
)

func newExtractCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <image> <partition-index> <output-file>",
		Short: "Extract the raw contents of one partition to a file",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid partition index %q: %w", args[1], err)
			}

			img, err := vdisk.Open(args[0])
			if err != nil {
				return err
			}
			defer img.Close()

			pd, err := partition.Open(img, vdisk.AsStore(img), log)
			if err != nil {
				return err
			}

			parts := pd.Partitions()
			if idx < 0 || idx >= len(parts) {
				return fmt.Errorf("partition index %d out of range (disk has %d)", idx, len(parts))
			}

			out, err := os.Create(args[2])
			if err != nil {
				return err
			}
			defer out.Close()

			n, err := io.Copy(out, parts[idx].Reader())
			if err != nil {
				return err
			}

			fmt.Printf("Wrote %d bytes to %s\n", n, args[2])
			return nil
		},
	}
}
