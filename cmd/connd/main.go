// Command connd runs the bounded-queue connection dispatcher standalone,
// accepting TCP connections and handing them to a fixed-size worker pool.
// Full HTTP parsing, path routing, and static file serving are out of
// scope; the handler here only demonstrates that the dispatcher protocol
// itself moves connections from the accept loop to workers correctly.
package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/dargueta/ufs/dispatcher"
)

func handle(conn net.Conn) {
	defer conn.Close()
	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		return
	}
	conn.Write(buf[:n])
}

func run(c *cli.Context) error {
	port := c.Int("p")
	poolSize := c.Int("t")
	bufferSize := c.Int("b")

	signal.Ignore(syscall.SIGPIPE)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer listener.Close()

	d := dispatcher.New(poolSize, bufferSize, handle)
	defer d.Stop()

	for {
		conn, err := listener.Accept()
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		d.Enqueue(conn)
	}
}

func main() {
	app := &cli.App{
		Name:  "connd",
		Usage: "run the bounded-queue connection dispatcher",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "p", Value: 8080, Usage: "port"},
			&cli.IntFlag{Name: "t", Value: 1, Usage: "worker pool size"},
			&cli.IntFlag{Name: "b", Value: 1, Usage: "queue buffer size"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
