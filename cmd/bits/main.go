// Command bits prints the superblock field values and the inode and data
// bitmaps of a ufs image as space-separated decimal byte values.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dargueta/ufs/cmd/internal/imageio"
	"github.com/dargueta/ufs/engine"
)

func printBitmapBytes(raw []byte) {
	for i, b := range raw {
		if i > 0 {
			fmt.Print(" ")
		}
		fmt.Print(int(b))
	}
	fmt.Println()
}

func run(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit(fmt.Sprintf("usage: %s <image>", c.App.Name), 1)
	}

	device, f, err := imageio.OpenReadOnly(c.Args().Get(0))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer f.Close()

	eng := engine.New(device)

	super, err := eng.SuperBlock()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	fmt.Println("Super")
	fmt.Println("inode_region_addr", super.InodeRegionAddr)
	fmt.Println("inode_region_len", super.InodeRegionLen)
	fmt.Println("num_inodes", super.NumInodes)
	fmt.Println("data_region_addr", super.DataRegionAddr)
	fmt.Println("data_region_len", super.DataRegionLen)
	fmt.Println("num_data", super.NumData)
	fmt.Println()

	inodeBitmap, dataBitmap, err := eng.ReadRawBitmaps()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	fmt.Println("Inode bitmap")
	printBitmapBytes(inodeBitmap)

	fmt.Println()
	fmt.Println("Data bitmap")
	printBitmapBytes(dataBitmap)

	return nil
}

func main() {
	app := &cli.App{
		Name:      "bits",
		Usage:     "print a ufs image's superblock and bitmaps",
		ArgsUsage: "<image>",
		Action:    run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
