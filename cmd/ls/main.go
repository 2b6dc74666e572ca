// Command ls resolves a /-separated path from the root inode and lists a
// directory's entries, or prints a single file's inode number and name.
package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/dargueta/ufs/cmd/internal/imageio"
	"github.com/dargueta/ufs/engine"
	"github.com/dargueta/ufs/layout"
)

func splitPath(path string) []string {
	var parts []string
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

// resolvePath walks path from the root inode, returning the target inode
// number and the inode number of its immediate parent.
func resolvePath(eng *engine.Engine, path string) (target int, parent int, err error) {
	current := layout.RootInodeNumber
	parent = current

	for _, component := range splitPath(path) {
		parent = current
		current, err = eng.Lookup(current, component)
		if err != nil {
			return 0, 0, err
		}
	}

	return current, parent, nil
}

type entry struct {
	inum int
	name string
}

func listDirectory(eng *engine.Engine, dirInode int) error {
	inode, err := eng.Stat(dirInode)
	if err != nil {
		return err
	}

	payload := make([]byte, inode.Size)
	n, err := eng.Read(dirInode, payload)
	if err != nil {
		return err
	}
	payload = payload[:n]

	var entries []entry
	for off := 0; off+layout.DirEntrySize <= len(payload); off += layout.DirEntrySize {
		de, err := layout.DecodeDirEntry(payload[off : off+layout.DirEntrySize])
		if err != nil {
			return err
		}
		if de.IsTombstone() {
			continue
		}
		entries = append(entries, entry{inum: int(de.InodeNumber), name: de.NameString()})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })
	for _, e := range entries {
		fmt.Printf("%d\t%s\n", e.inum, e.name)
	}
	return nil
}

func displayFileInfo(eng *engine.Engine, fileInode, parentInode int) error {
	parent, err := eng.Stat(parentInode)
	if err != nil {
		return err
	}
	payload := make([]byte, parent.Size)
	n, err := eng.Read(parentInode, payload)
	if err != nil {
		return err
	}
	payload = payload[:n]

	for off := 0; off+layout.DirEntrySize <= len(payload); off += layout.DirEntrySize {
		de, err := layout.DecodeDirEntry(payload[off : off+layout.DirEntrySize])
		if err != nil {
			return err
		}
		if de.IsTombstone() {
			continue
		}
		if int(de.InodeNumber) == fileInode {
			fmt.Printf("%d\t%s\n", fileInode, de.NameString())
			return nil
		}
	}
	return fmt.Errorf("entry for inode %d not found in parent", fileInode)
}

func run(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit(fmt.Sprintf("usage: %s <image> <path>", c.App.Name), 1)
	}
	path := c.Args().Get(1)
	if !strings.HasPrefix(path, "/") {
		return cli.Exit("Directory not found", 1)
	}

	device, f, err := imageio.OpenReadOnly(c.Args().Get(0))
	if err != nil {
		return cli.Exit("Directory not found", 1)
	}
	defer f.Close()

	eng := engine.New(device)

	target, parent, err := resolvePath(eng, path)
	if err != nil {
		return cli.Exit("Directory not found", 1)
	}

	inode, err := eng.Stat(target)
	if err != nil {
		return cli.Exit("Directory not found", 1)
	}

	switch inode.Type {
	case layout.TypeDirectory:
		if err := listDirectory(eng, target); err != nil {
			return cli.Exit("Directory not found", 1)
		}
	case layout.TypeRegularFile:
		if err := displayFileInfo(eng, target, parent); err != nil {
			return cli.Exit("Directory not found", 1)
		}
	default:
		return cli.Exit("Directory not found", 1)
	}

	return nil
}

func main() {
	app := &cli.App{
		Name:      "ls",
		Usage:     "list a ufs directory or show one file's entry",
		ArgsUsage: "<image> <path>",
		Action:    run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
