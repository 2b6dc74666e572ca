// Command mkfs builds a fresh, empty ufs image file.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/dargueta/ufs/mkfs"
)

func run(c *cli.Context) error {
	if c.NArg() != 3 {
		return cli.Exit(fmt.Sprintf("usage: %s <image> <total_blocks> <num_inodes>", c.App.Name), 1)
	}

	totalBlocks, err := strconv.Atoi(c.Args().Get(1))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	numInodes, err := strconv.Atoi(c.Args().Get(2))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	f, err := os.Create(c.Args().Get(0))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer f.Close()

	opts := mkfs.Options{
		TotalBlocks: uint32(totalBlocks),
		NumInodes:   uint32(numInodes),
	}
	if err := mkfs.WriteImage(f, opts); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	return nil
}

func main() {
	app := &cli.App{
		Name:      "mkfs",
		Usage:     "build a fresh ufs image",
		ArgsUsage: "<image> <total_blocks> <num_inodes>",
		Action:    run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
