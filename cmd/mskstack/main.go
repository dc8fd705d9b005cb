// Package main is the entry point for the mskstack CLI.
//
// mskstack synthesizes Amazon MSK clusters, together with the topics, ACLs,
// grants and cluster policies that live on them, into one CloudFormation
// stack and deploys it. Kafka resources are created by admin handler
// Lambdas behind custom resources, so the whole cluster is declared in a
// single mskstack.yaml.
//
// Commands: init, synth, diff, deploy, destroy, brokers, doctor, cost.
//
// For detailed usage information, run:
//
//	mskstack --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imamik/mskstack/cmd/mskstack/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
