package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/ostafen/vdisk/pkg/partition"
	"github.com/ostafen/vdisk/pkg/vdisk"
	"github.com/spf13/cobra"
)

func newPartitionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "partitions <image>",
		Short: "List the partitions found on a disk image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := vdisk.Open(args[0])
			if err != nil {
				return err
			}
			defer img.Close()

			pd, err := partition.Open(img, vdisk.AsStore(img), log)
			if err != nil {
				return err
			}

			fmt.Printf("Scheme: %s\n", pd.Scheme())

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "#\tOFFSET\tSIZE\tKIND")
			for i, p := range pd.Partitions() {
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", i, p.Offset(), humanize.Bytes(p.Length()), p.Kind())
			}
			return w.Flush()
		},
	}
}
