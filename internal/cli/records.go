package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/kvrecord/internal/codec"
	"github.com/roach88/kvrecord/internal/model"
)

// PutOptions holds flags for the put command.
type PutOptions struct {
	*RootOptions
	Data string // record attributes as a JSON object
	ID   string // record id; empty creates a new record
}

// NewPutCommand creates the put command.
func NewPutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PutOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "put <collection>",
		Short: "Create or update a record",
		Long: `Store a record in a collection.

Without --id (and without an id attribute in --data) a new record is created
with a generated id. Otherwise the record with that id is overwritten.

Examples:
  kvrecord put Todo --data '{"title":"write tests"}'
  kvrecord put Todo --id 42 --data '{"title":"done","done":true}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPut(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Data, "data", "{}", "record attributes as a JSON object")
	cmd.Flags().StringVar(&opts.ID, "id", "", "record id")

	return cmd
}

func runPut(opts *PutOptions, collection string, cmd *cobra.Command) error {
	out := opts.Formatter(cmd)
	attrs, err := parseAttrs(opts.Data)
	if err != nil {
		_ = out.Error(CodeInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid --data", err)
	}

	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	typ, err := s.attach(collection)
	if err != nil {
		return err
	}

	s.checkNormalized("id", opts.ID)
	m := model.New(typ, attrs)
	if opts.ID != "" {
		m.SetID(opts.ID)
	}

	o := &outcome{}
	if err := m.Save(o.options()); err != nil {
		return WrapExitError(ExitCommandError, "put", err)
	}
	return s.report(o, identity)
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <collection> [id]",
		Short: "Read one record or the whole collection",
		Long: `Read a record by id, or every record of the collection in index order
when no id is given. Entries that are missing or unparsable are skipped.

Examples:
  kvrecord get Todo 42
  kvrecord get Todo --format json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 2 {
				id = args[1]
			}
			return runGet(rootOpts, args[0], id, cmd)
		},
	}
	return cmd
}

func runGet(opts *RootOptions, collection, id string, cmd *cobra.Command) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	typ, err := s.attach(collection)
	if err != nil {
		return err
	}

	o := &outcome{}
	if id == "" {
		err = model.NewCollection(typ).Fetch(o.options())
	} else {
		s.checkNormalized("id", id)
		m := model.New(typ, nil)
		m.SetID(id)
		err = m.Fetch(o.options())
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "get", err)
	}
	return s.report(o, identity)
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <collection> <id>",
		Short: "Delete a record",
		Long: `Remove a record's entry and every occurrence of its id from the
collection index. Deleting a record that does not exist is not an error.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(rootOpts, args[0], args[1], cmd)
		},
	}
	return cmd
}

func runDelete(opts *RootOptions, collection, id string, cmd *cobra.Command) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	typ, err := s.attach(collection)
	if err != nil {
		return err
	}

	s.checkNormalized("id", id)
	m := model.New(typ, nil)
	m.SetID(id)

	o := &outcome{}
	if err := m.Destroy(o.options()); err != nil {
		return WrapExitError(ExitCommandError, "delete", err)
	}
	return s.report(o, func(any) any { return map[string]any{"deleted": id} })
}

// parseAttrs decodes a JSON object.
func parseAttrs(data string) (map[string]any, error) {
	v, err := codec.Deserialize(data)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return map[string]any{}, nil
	}
	attrs, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %T", v)
	}
	return attrs, nil
}

func identity(v any) any { return v }
