// Command cp reads a file from the host filesystem and writes its entire
// contents to a ufs inode inside a single transaction.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/dargueta/ufs/cmd/internal/imageio"
	"github.com/dargueta/ufs/engine"
)

func run(c *cli.Context) error {
	if c.NArg() != 3 {
		return cli.Exit(fmt.Sprintf("usage: %s <image> <src_file> <dst_inode>", c.App.Name), 1)
	}

	dstInode, err := strconv.Atoi(c.Args().Get(2))
	if err != nil {
		return cli.Exit("Could not write to dst_file", 1)
	}

	data, err := os.ReadFile(c.Args().Get(1))
	if err != nil {
		return cli.Exit("Failed to open file", 1)
	}

	device, f, err := imageio.OpenReadWrite(c.Args().Get(0))
	if err != nil {
		return cli.Exit("Could not write to dst_file", 1)
	}
	defer f.Close()

	eng := engine.New(device)

	if err := device.BeginTransaction(); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if _, err := eng.Write(dstInode, data, len(data)); err != nil {
		device.Rollback()
		return cli.Exit("Could not write to dst_file", 1)
	}

	if err := device.Commit(); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	return nil
}

func main() {
	app := &cli.App{
		Name:      "cp",
		Usage:     "copy a host file into a ufs inode",
		ArgsUsage: "<image> <src_file> <dst_inode>",
		Action:    run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
