// Command touch creates a regular file in a ufs directory inside a single
// transaction.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/dargueta/ufs/cmd/internal/imageio"
	"github.com/dargueta/ufs/engine"
	"github.com/dargueta/ufs/layout"
)

func run(c *cli.Context) error {
	if c.NArg() != 3 {
		return cli.Exit(fmt.Sprintf("usage: %s <image> <parent_inode> <name>", c.App.Name), 1)
	}

	parentInode, err := strconv.Atoi(c.Args().Get(1))
	if err != nil {
		return cli.Exit("Error creating file", 1)
	}
	name := c.Args().Get(2)

	device, f, err := imageio.OpenReadWrite(c.Args().Get(0))
	if err != nil {
		return cli.Exit("Error creating file", 1)
	}
	defer f.Close()

	eng := engine.New(device)

	if err := device.BeginTransaction(); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if _, err := eng.Create(parentInode, layout.TypeRegularFile, name); err != nil {
		device.Rollback()
		return cli.Exit("Error creating file", 1)
	}

	if err := device.Commit(); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	return nil
}

func main() {
	app := &cli.App{
		Name:      "touch",
		Usage:     "create a regular file in a ufs directory",
		ArgsUsage: "<image> <parent_inode> <name>",
		Action:    run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
