// Command cat prints an inode's direct block indices, a blank line, then
// its raw file payload.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dargueta/ufs/cmd/internal/imageio"
	"github.com/dargueta/ufs/engine"
	"github.com/dargueta/ufs/layout"
)

func run(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit(fmt.Sprintf("usage: %s <image> <inode>", c.App.Name), 1)
	}

	inodeNo, err := parseInodeArg(c.Args().Get(1))
	if err != nil {
		return cli.Exit("Error reading file", 1)
	}

	device, f, err := imageio.OpenReadOnly(c.Args().Get(0))
	if err != nil {
		return cli.Exit("Error reading file", 1)
	}
	defer f.Close()

	eng := engine.New(device)

	inode, err := eng.Stat(inodeNo)
	if err != nil {
		return cli.Exit("Error reading file", 1)
	}
	if inode.Type != layout.TypeRegularFile {
		return cli.Exit("Error reading file", 1)
	}

	payload := make([]byte, inode.Size)
	n, err := eng.Read(inodeNo, payload)
	if err != nil || int32(n) != inode.Size {
		return cli.Exit("Error reading file", 1)
	}

	for i := 0; i < layout.DirectPtrs; i++ {
		if inode.Direct[i] == 0 {
			break
		}
		fmt.Println(inode.Direct[i])
	}
	fmt.Println()
	os.Stdout.Write(payload[:n])

	return nil
}

func parseInodeArg(raw string) (int, error) {
	var n int
	_, err := fmt.Sscanf(raw, "%d", &n)
	return n, err
}

func main() {
	app := &cli.App{
		Name:      "cat",
		Usage:     "print a ufs file's direct blocks and contents",
		ArgsUsage: "<image> <inode>",
		Action:    run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
