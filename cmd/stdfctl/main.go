package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lsm/cloudwatch-stdf/internal/cli"
)

const usage = `stdfctl - CloudWatch Logs to STDF toolkit

Usage:
  stdfctl <command> [arguments]

Commands:
  encode     Build a subscription payload from plain log lines
  decode     Print the batch inside a subscription payload
  format     Print the STDF envelopes for a payload (dry run)
  publish    Publish a payload through the configured transport
  doctor     Check the runtime configuration

Run 'stdfctl <command> -h' for help on a specific command.`

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		return nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	args := os.Args[2:]
	switch os.Args[1] {
	case "encode":
		return cli.RunEncode(args, os.Stdout)
	case "decode":
		return cli.RunDecode(args, os.Stdout)
	case "format":
		return cli.RunFormat(args, os.Stdout)
	case "publish":
		return cli.RunPublish(ctx, args, os.Stdout)
	case "doctor":
		return cli.RunDoctor(ctx, args, os.Stdout)
	case "-h", "--help", "help":
		fmt.Println(usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q\nRun 'stdfctl help' for usage", os.Args[1])
	}
}
