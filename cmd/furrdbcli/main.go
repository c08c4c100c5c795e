// Command furrdbcli is an interactive client for a FurrDB server.
//
// Without -script it starts a REPL. With -script it runs the commands of a
// file, one per line; blank lines and lines starting with # are skipped.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/furrdb/furr"
)

func main() {
	host := flag.String("host", furr.DefaultHost, "Server host")
	port := flag.Int("port", furr.DefaultPort, "Server port")
	timeout := flag.Duration("timeout", 5*time.Second, "Per-command timeout")
	script := flag.String("script", "", "Run the commands of this file instead of the REPL")
	debug := flag.Bool("debug", false, "Log session events to stderr")
	flag.Parse()

	logger := zap.NewNop()
	if *debug {
		logger, _ = zap.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	session, err := furr.Dial(ctx, furr.Config{
		Host:    *host,
		Port:    *port,
		Timeout: *timeout,
		Logger:  logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer session.Close()

	sh := &shell{session: session, out: os.Stdout}

	if *script != "" {
		f, err := os.Open(*script)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open script: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()

		if err := sh.runScript(ctx, f); err != nil {
			fmt.Fprintf(os.Stderr, "Script failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	editor := newLineEditor(os.Stdin, os.Stdout)
	defer editor.Close()

	if editor.Interactive() {
		fmt.Printf("FurrDB %s (type HELP for commands, EXIT to quit)\n", session.Addr())
	}
	if err := sh.run(ctx, editor); err != nil {
		fmt.Fprintf(os.Stderr, "Input error: %v\n", err)
		os.Exit(1)
	}
}
