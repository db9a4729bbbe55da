package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/kvrecord/internal/substrate"
)

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear <collection>",
		Short: "Remove a collection and all of its records",
		Long: `Remove the collection index and every record entry of the collection.
Keys of other collections are left alone.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClear(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runClear(opts *RootOptions, collection string, cmd *cobra.Command) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	typ, err := s.attach(collection)
	if err != nil {
		return err
	}
	if err := typ.Storage.Clear(); err != nil {
		_ = s.out.Error(CodeSync, err.Error(), nil)
		return WrapExitError(ExitFailure, "clear", err)
	}
	return s.out.Success(map[string]any{"cleared": collection})
}

// NewSizeCommand creates the size command.
func NewSizeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "size",
		Short:         "Print the number of keys in the substrate",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSize(rootOpts, cmd)
		},
	}
	return cmd
}

func runSize(opts *RootOptions, cmd *cobra.Command) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	n, err := s.sub.Len()
	if err != nil {
		_ = s.out.Error(CodeSync, err.Error(), nil)
		return WrapExitError(ExitFailure, "size", err)
	}
	return s.out.Success(map[string]any{"keys": n})
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump [collection]",
		Short: "Print raw substrate entries",
		Long: `Print raw key/value entries in key order. With a collection, only the
collection index and its "<collection>-" entries are printed.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			collection := ""
			if len(args) == 1 {
				collection = args[0]
			}
			return runDump(rootOpts, collection, cmd)
		},
	}
	return cmd
}

func runDump(opts *RootOptions, collection string, cmd *cobra.Command) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	var keep func(string) bool
	if collection != "" {
		keep = func(key string) bool {
			return key == collection || strings.HasPrefix(key, collection+"-")
		}
	}

	entries, err := substrate.Dump(s.sub, keep)
	if err != nil {
		_ = s.out.Error(CodeSync, err.Error(), nil)
		return WrapExitError(ExitFailure, "dump", err)
	}

	if s.out.Format == "json" {
		return s.out.Success(entries)
	}
	w := cmd.OutOrStdout()
	for _, e := range entries {
		if _, err := w.Write([]byte(e.Key + "\t" + e.Value + "\n")); err != nil {
			return err
		}
	}
	return nil
}
