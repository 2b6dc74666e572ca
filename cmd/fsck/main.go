// Command fsck checks a ufs image's invariants and, optionally, writes a
// CSV inventory of its allocated inodes.
package main

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/urfave/cli/v2"

	"github.com/dargueta/ufs/cmd/internal/imageio"
	"github.com/dargueta/ufs/engine"
)

func run(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit(fmt.Sprintf("usage: %s <image> [--csv out.csv]", c.App.Name), 1)
	}

	device, f, err := imageio.OpenReadOnly(c.Args().Get(0))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer f.Close()

	eng := engine.New(device)

	violations, summaries, err := eng.Validate()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if csvPath := c.String("csv"); csvPath != "" {
		out, err := os.Create(csvPath)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		defer out.Close()
		if err := gocsv.MarshalFile(&summaries, out); err != nil {
			return cli.Exit(err.Error(), 1)
		}
	}

	if violations != nil {
		for _, e := range violations.Errors {
			fmt.Fprintln(os.Stderr, e)
		}
		return cli.Exit("", 1)
	}

	fmt.Println("ok")
	return nil
}

func main() {
	app := &cli.App{
		Name:      "fsck",
		Usage:     "check a ufs image's invariants",
		ArgsUsage: "<image>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "csv", Usage: "write a CSV inode inventory to this path"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
