package contract

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
)

type Result struct {
	Name     string
	Err      error
	Skipped  bool
	Duration time.Duration
}

type Results struct {
	Results  []Result
	Failures []Result
}

func (r Results) OK() bool {
	return len(r.Failures) == 0
}

type Runner struct {
	Client  *Client
	Filters RegexFilters
	Out     io.Writer
	// Verbose prints passed and skipped checks too, not only failures.
	Verbose bool
	// CheckTimeout bounds a single check, zero means no limit.
	CheckTimeout time.Duration
}

var (
	passLabel = color.New(color.FgGreen, color.Bold).SprintFunc()
	failLabel = color.New(color.FgRed, color.Bold).SprintFunc()
	skipLabel = color.New(color.FgYellow).SprintFunc()
)

func (r *Runner) Run(ctx context.Context, checks []Check) Results {
	var results Results
	for _, check := range checks {
		if !r.Filters.Match(check.Name) {
			res := Result{Name: check.Name, Skipped: true}
			results.Results = append(results.Results, res)
			if r.Verbose {
				fmt.Fprintf(r.Out, "%s %s\n", skipLabel("SKIP"), check.Name)
			}
			continue
		}

		res := r.runCheck(ctx, check)
		results.Results = append(results.Results, res)
		if res.Err != nil {
			results.Failures = append(results.Failures, res)
			fmt.Fprintf(r.Out, "%s %s (%s)\n", failLabel("FAIL"), check.Name, res.Duration.Round(time.Millisecond))
			fmt.Fprintf(r.Out, "     %s\n", res.Err)
			continue
		}
		if r.Verbose {
			fmt.Fprintf(r.Out, "%s %s (%s)\n", passLabel("PASS"), check.Name, res.Duration.Round(time.Millisecond))
		}
	}
	return results
}

func (r *Runner) runCheck(ctx context.Context, check Check) (res Result) {
	res.Name = check.Name
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		if p := recover(); p != nil {
			res.Err = fmt.Errorf("check panicked: %v", p)
		}
	}()

	if r.CheckTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.CheckTimeout)
		defer cancel()
	}

	res.Err = check.Run(ctx, r.Client)
	return res
}

// PrintSummary writes the totals line.
func PrintSummary(out io.Writer, results Results) {
	passed, skipped := 0, 0
	for _, res := range results.Results {
		switch {
		case res.Skipped:
			skipped++
		case res.Err == nil:
			passed++
		}
	}

	summary := fmt.Sprintf("%d passed, %d failed, %d skipped", passed, len(results.Failures), skipped)
	if results.OK() {
		fmt.Fprintln(out, passLabel(summary))
		return
	}
	fmt.Fprintln(out, failLabel(summary))
	for _, failure := range results.Failures {
		fmt.Fprintf(out, "  - %s\n", failure.Name)
	}
}
