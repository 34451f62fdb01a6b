package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/ostafen/vdisk/pkg/vhd"
	"github.com/spf13/cobra"
)

func newCreateCommand() *cobra.Command {
	var dynamic bool
	var sizeStr string

	cc := &cobra.Command{
		Use:   "create <image>",
		Short: "Create a new fixed or dynamic VHD image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			size, err := humanize.ParseBytes(sizeStr)
			if err != nil {
				return fmt.Errorf("invalid --size %q: %w", sizeStr, err)
			}

			var img *vhd.Image
			if dynamic {
				img, err = vhd.CreateDynamic(args[0], size, vhd.WithLogger(log))
			} else {
				img, err = vhd.CreateFixed(args[0], size, vhd.WithLogger(log))
			}
			if err != nil {
				return err
			}
			defer img.Close()

			fmt.Printf("Created %s (%s)\n", args[0], humanize.Bytes(size))
			return nil
		},
	}

	cc.Flags().BoolVar(&dynamic, "dynamic", false, "create a dynamic (sparse) VHD instead of a fixed one")
	cc.Flags().StringVar(&sizeStr, "size", "", "disk capacity, e.g. 10GB, 512MB")
	cc.MarkFlagRequired("size")

	return cc
}
