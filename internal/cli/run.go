package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/viant/afs"
	"github.com/viant/sagaflow"
	"github.com/viant/sagaflow/model/types"
	"github.com/viant/sagaflow/progress"
	"github.com/viant/sagaflow/runtime/execution"
	"github.com/viant/sagaflow/service/meta"
	"github.com/viant/sagaflow/service/mock"
)

// Error codes of the run and diagram commands
const (
	ErrCodeConfig = "config"
	ErrCodeFlow   = "flow"
	ErrCodeMocks  = "mocks"
	ErrCodeInput  = "input"
)

// RunOptions holds run command flags.
type RunOptions struct {
	Config   string
	Mocks    string
	Input    string
	Metadata map[string]string
	Timeout  time.Duration
	Retries  int
	Seed     int64
}

// RunReport is the outcome of a flow run.
type RunReport struct {
	Flow          string            `json:"flow"`
	ExecutionID   string            `json:"executionId,omitempty"`
	Status        string            `json:"status"`
	Output        interface{}       `json:"output,omitempty"`
	Progress      progress.Counters `json:"progress"`
	TransactionID string            `json:"transactionId,omitempty"`
	Error         string            `json:"error,omitempty"`
	Compensated   []string          `json:"compensated,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}
	cmd := &cobra.Command{
		Use:   "run <flow.yaml>",
		Short: "Run a flow with mocked steps",
		Long: `Run a YAML flow definition. Every step is resolved by the mock harness:
steps listed in the --mocks document follow their behavior, other steps
pass their input through.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlow(cmd.Context(), rootOpts, opts, args[0], cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Config, "config", "", "engine configuration (YAML or JSON)")
	cmd.Flags().StringVar(&opts.Mocks, "mocks", "", "mock behaviors (YAML)")
	cmd.Flags().StringVar(&opts.Input, "input", "", "flow input, decoded as JSON when valid")
	cmd.Flags().StringToStringVar(&opts.Metadata, "meta", nil, "execution metadata (key=value)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "execution timeout")
	cmd.Flags().IntVar(&opts.Retries, "retries", 0, "retries of failing steps")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "mock harness seed (0 picks one)")
	return cmd
}

func runFlow(ctx context.Context, rootOpts *RootOptions, opts *RunOptions, location string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
	config := sagaflow.DefaultConfig()
	if opts.Config != "" {
		loaded, err := sagaflow.LoadConfig(ctx, resolve(opts.Config))
		if err != nil {
			return formatter.Error(ErrCodeConfig, err)
		}
		config = loaded
	}
	if opts.Timeout > 0 {
		config.Workflow.Timeout = opts.Timeout
	}
	if opts.Retries > 0 {
		config.Workflow.Retries = opts.Retries
	}
	metaService := meta.New(afs.New(), "")
	behaviors := mock.Config{}
	if opts.Mocks != "" {
		data, err := metaService.Download(ctx, resolve(opts.Mocks))
		if err == nil {
			behaviors, err = mock.Parse(data)
		}
		if err != nil {
			return formatter.Error(ErrCodeMocks, err)
		}
	}
	var harnessOptions []mock.Option
	if opts.Seed != 0 {
		harnessOptions = append(harnessOptions, mock.WithSeed(opts.Seed))
	}
	input, err := decodeInput(opts.Input)
	if err != nil {
		return formatter.Error(ErrCodeInput, err)
	}

	srv, err := sagaflow.New(
		sagaflow.WithConfig(config),
		sagaflow.WithLogger(newLogger(rootOpts, cmd)),
		sagaflow.WithMetaService(metaService),
		sagaflow.WithHarness(mock.New(behaviors, harnessOptions...)))
	if err != nil {
		return formatter.Error(ErrCodeConfig, err)
	}
	defer srv.Close()
	definition, err := srv.LoadFlow(ctx, resolve(location))
	if err != nil {
		return formatter.Error(ErrCodeFlow, err)
	}
	metadata := make(map[string]interface{}, len(opts.Metadata))
	for k, v := range opts.Metadata {
		metadata[k] = v
	}
	result, runErr := srv.Execute(ctx, definition, input, execution.WithMetadata(metadata))
	report := &RunReport{Flow: definition.Name, Status: "completed"}
	if result != nil {
		report.Output = result.Output
		report.Progress = result.Progress
		report.ExecutionID = result.Progress.ExecutionID
		report.TransactionID = result.TransactionID
	}
	code := ""
	if runErr != nil {
		report.Status = "failed"
		report.Error = runErr.Error()
		code = ErrCodeFlow
		if flowErr, ok := types.AsFlowError(runErr); ok {
			code = string(flowErr.Kind)
			if flowErr.Compensation != nil {
				report.Compensated = flowErr.Compensation.Compensated
			}
		}
	}
	if err = writeReport(formatter, report, code); err != nil {
		return err
	}
	if runErr != nil {
		return WrapExitError(ExitFailure, "flow "+definition.Name+" failed", runErr)
	}
	return nil
}

func writeReport(formatter *OutputFormatter, report *RunReport, code string) error {
	if formatter.JSON() {
		response := &CLIResponse{Status: "ok", Data: report}
		if report.Error != "" {
			response.Status = "error"
			response.Error = &CLIError{Code: code, Message: report.Error}
		}
		return formatter.Encode(response)
	}
	w := formatter.Writer
	counters := report.Progress
	fmt.Fprintf(w, "flow: %v\n", report.Flow)
	fmt.Fprintf(w, "status: %v\n", report.Status)
	fmt.Fprintf(w, "output: %v\n", textOf(report.Output))
	fmt.Fprintf(w, "steps: started=%d completed=%d failed=%d retried=%d recovered=%d compensated=%d\n",
		counters.Started, counters.Completed, counters.Failed, counters.Retried, counters.Recovered, counters.Compensated)
	if len(report.Compensated) > 0 {
		fmt.Fprintf(w, "compensated: %v\n", strings.Join(report.Compensated, ", "))
	}
	if report.Error != "" {
		fmt.Fprintf(w, "error: %v\n", report.Error)
	}
	return nil
}

func textOf(value interface{}) string {
	switch actual := value.(type) {
	case nil:
		return "<nil>"
	case string:
		return actual
	}
	if data, err := json.Marshal(value); err == nil {
		return string(data)
	}
	return fmt.Sprint(value)
}

func decodeInput(input string) (interface{}, error) {
	if input == "" {
		return nil, nil
	}
	var ret interface{}
	if json.Valid([]byte(input)) {
		if err := json.Unmarshal([]byte(input), &ret); err != nil {
			return nil, err
		}
		return ret, nil
	}
	return input, nil
}

// resolve turns relative local paths into absolute ones; URLs are kept
func resolve(location string) string {
	if strings.Contains(location, "://") {
		return location
	}
	if abs, err := filepath.Abs(location); err == nil {
		return abs
	}
	return location
}
