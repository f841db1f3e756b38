package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/viant/sagaflow"
)

// NewDiagramCommand creates the diagram command.
func NewDiagramCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "diagram <flow.yaml>",
		Short:         "Describe flow steps and their dependencies",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagram(cmd.Context(), rootOpts, args[0], cmd)
		},
	}
}

func runDiagram(ctx context.Context, rootOpts *RootOptions, location string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
	srv, err := sagaflow.New(sagaflow.WithLogger(newLogger(rootOpts, cmd)))
	if err != nil {
		return formatter.Error(ErrCodeConfig, err)
	}
	defer srv.Close()
	definition, err := srv.LoadFlow(ctx, resolve(location))
	if err != nil {
		return formatter.Error(ErrCodeFlow, err)
	}
	described := srv.Diagram(definition)
	if formatter.JSON() {
		data, err := described.JSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(formatter.Writer, string(data))
		return err
	}
	_, err = fmt.Fprintln(formatter.Writer, described.Text())
	return err
}
