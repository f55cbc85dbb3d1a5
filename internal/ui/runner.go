package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// RunnerConfig holds configuration for a multi-step robot operation
type RunnerConfig struct {
	Title     string   // Command title (e.g., "Connect to network")
	Command   string   // Full command (e.g., "robowifi connect lab-wpa")
	Params    []Detail // Parameters to display in header
	StepNames []string // Names for each step, in order
	Output    io.Writer

	// Troubleshoot turns a failure into tips for the result box
	Troubleshoot func(error) []string
}

// Runner orchestrates the UI for a multi-step operation.
// It manages the header, step and result flow.
type Runner struct {
	config   RunnerConfig
	header   *Header
	progress *Progress
	output   io.Writer
	width    int
}

// NewRunner creates a new runner
func NewRunner(config RunnerConfig) *Runner {
	if config.Output == nil {
		config.Output = os.Stdout
	}

	width := GetTerminalWidth()

	return &Runner{
		config:   config,
		header:   NewHeader(config.Title, config.Command, config.Params...).SetWidth(width),
		progress: NewProgress(config.StepNames...).SetWidth(width),
		output:   config.Output,
		width:    width,
	}
}

// Operation is the work behind a Runner. It reports progress through
// onStep and returns the details shown in the success box.
type Operation func(ctx context.Context, onStep StepCallback) (title string, details []Detail, err error)

// Run prints the header, executes op and prints the result box.
// The error from op is returned unchanged.
func (r *Runner) Run(ctx context.Context, failTitle string, op Operation) error {
	start := time.Now()

	_, _ = fmt.Fprintln(r.output, r.header.Render())
	_, _ = fmt.Fprintln(r.output)

	title, details, err := op(ctx, r.onStep)
	elapsed := time.Since(start).Round(time.Millisecond).String()

	_, _ = fmt.Fprintln(r.output)
	if err != nil {
		var tips []string
		if r.config.Troubleshoot != nil {
			tips = r.config.Troubleshoot(err)
		}
		result := NewFailureResult(failTitle, err, tips).SetWidth(r.width)
		result.AddDetail("Duration", elapsed)
		_, _ = fmt.Fprintln(r.output, result.Render())
		return err
	}

	result := NewSuccessResult(title, details...).SetWidth(r.width)
	result.AddDetail("Duration", elapsed)
	_, _ = fmt.Fprintln(r.output, result.Render())
	return nil
}

// onStep prints a step line whenever a step finishes
func (r *Runner) onStep(stepNumber int, status StepStatus, message string) {
	r.progress.UpdateStep(stepNumber, status, message)
	if stepNumber < 1 || stepNumber > r.progress.Total() {
		return
	}
	if status == StepRunning {
		return
	}
	_, _ = fmt.Fprintln(r.output, r.progress.renderStepLine(r.progress.Steps[stepNumber-1]))
}

// Progress exposes the step tracker, mainly for tests
func (r *Runner) Progress() *Progress {
	return r.progress
}
