package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/2beens/blogposts/internal/contract"
)

func main() {
	var serviceURL string
	var filters contract.RegexFilters
	var verbose bool
	var timeout time.Duration

	fs := flag.NewFlagSet("", flag.ExitOnError)
	fs.StringVar(&serviceURL, "url", "", "blog posts API base URL, e.g. http://localhost:9000")
	fs.Var(&filters.MustMatch, "run", "regex pattern(s) to select checks to run")
	fs.Var(&filters.MustNotMatch, "skip", "regex pattern(s) to select checks not to run")
	fs.BoolVar(&verbose, "v", false, "print passed and skipped checks too")
	fs.DurationVar(&timeout, "timeout", 10*time.Second, "timeout of a single check")

	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid parameters: %s\n", err)
		os.Exit(1)
	}
	if serviceURL == "" {
		fmt.Fprintln(os.Stderr, "-url is required")
		fs.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if filters.MustMatch.IsDefined() {
		fmt.Printf("Running checks matching %s\n", filters.MustMatch)
	}
	if filters.MustNotMatch.IsDefined() {
		fmt.Printf("Skipping checks matching %s\n", filters.MustNotMatch)
	}
	fmt.Printf("Running contract checks against %s\n\n", serviceURL)

	client := contract.NewClient(serviceURL, timeout)
	runner := &contract.Runner{
		Client:       client,
		Filters:      filters,
		Out:          os.Stdout,
		Verbose:      verbose,
		CheckTimeout: timeout,
	}

	results := runner.Run(ctx, contract.AllChecks())

	fmt.Println()
	contract.PrintSummary(os.Stdout, results)
	if !results.OK() {
		stop()
		os.Exit(1)
	}
}
