package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/ostafen/vdisk/pkg/vdisk"
	"github.com/spf13/cobra"
)

func newInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <image>",
		Short: "Print a disk image's container format, geometry and capacity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := vdisk.Open(args[0])
			if err != nil {
				return err
			}
			defer img.Close()

			fmt.Printf("Format:    %s\n", img.Name())
			fmt.Printf("Capacity:  %s (%d bytes)\n", humanize.Bytes(img.Capacity()), img.Capacity())
			fmt.Printf("Geometry:  %s\n", img.Geometry())
			fmt.Printf("Sector:    %d bytes\n", img.PhysicalSectorSize())

			if size, err := img.StorageSize(); err == nil {
				fmt.Printf("On disk:   %s (%d bytes)\n", humanize.Bytes(uint64(size)), size)
			}

			files := img.BackingFiles()
			if len(files) > 0 {
				fmt.Println("Backing files:")
				for _, f := range files {
					fmt.Printf("  %s\n", f)
				}
			}
			return nil
		},
	}
}
