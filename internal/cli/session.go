package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/kvrecord/internal/config"
	"github.com/roach88/kvrecord/internal/dispatch"
	"github.com/roach88/kvrecord/internal/engine"
	"github.com/roach88/kvrecord/internal/levelstore"
	"github.com/roach88/kvrecord/internal/model"
	"github.com/roach88/kvrecord/internal/store"
	"github.com/roach88/kvrecord/internal/substrate"
)

// Error codes reported by record commands.
const (
	CodeConfig = "E_CONFIG"
	CodeOpen   = "E_OPEN"
	CodeSync   = "E_SYNC"
	CodeInput  = "E_INPUT"
)

// session is an open substrate plus the settings it was opened with.
type session struct {
	cfg   *config.Config
	sub   substrate.Substrate
	log   *slog.Logger
	out   *OutputFormatter
	close func() error
}

// openSession loads configuration and opens the configured substrate.
// The caller must call close.
func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	out := opts.Formatter(cmd)

	cfg, err := opts.LoadConfig()
	if err != nil {
		_ = out.Error(CodeConfig, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "loading config", err)
	}
	log := opts.Logger(cmd, cfg.Level())

	sub, closeFn, err := openSubstrate(cfg)
	if err != nil {
		_ = out.Error(CodeOpen, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "opening substrate", err)
	}
	log.Debug("substrate opened", "backend", cfg.Backend, "path", cfg.Path)

	return &session{cfg: cfg, sub: sub, log: log, out: out, close: closeFn}, nil
}

// openSubstrate opens the backend selected by cfg.
func openSubstrate(cfg *config.Config) (substrate.Substrate, func() error, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		st, err := store.Open(cfg.Path, store.WithQuota(cfg.QuotaBytes))
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	case config.BackendLevelDB:
		st, err := levelstore.Open(cfg.Path, levelstore.WithQuota(cfg.QuotaBytes))
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	case config.BackendMemory:
		return substrate.NewMemory(substrate.WithQuota(cfg.QuotaBytes)), func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// attach returns a model type bound to collection name.
func (s *session) attach(name string) (*model.Type, error) {
	s.checkNormalized("collection", name)
	typ := &model.Type{Name: name}
	err := model.Attach(typ, s.sub, name,
		engine.WithIDGenerator(s.cfg.IDGenerator()),
		engine.WithLogger(s.log),
	)
	if err != nil {
		_ = s.out.Error(CodeOpen, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "opening collection", err)
	}
	return typ, nil
}

// checkNormalized warns when an argument that becomes part of a substrate key
// is not in Unicode NFC. Keys are stored byte for byte, so a name typed in
// decomposed form addresses different entries than its composed spelling.
func (s *session) checkNormalized(field, value string) {
	if value == "" || norm.NFC.IsNormalString(value) {
		return
	}
	s.log.Warn("argument is not NFC normalized; keys are matched byte for byte",
		"field", field,
		"value", value,
		"nfc", norm.NFC.String(value),
	)
}

// outcome captures the callbacks of one sync call.
type outcome struct {
	resp    any
	message string
	failed  bool
}

func (o *outcome) options() *dispatch.Options {
	return &dispatch.Options{
		Success: func(resp any) { o.resp = resp },
		Error: func(msg string) {
			o.failed = true
			o.message = msg
		},
	}
}

// report writes the outcome and converts a failure into an exit error.
func (s *session) report(o *outcome, result func(any) any) error {
	if o.failed {
		_ = s.out.Error(CodeSync, o.message, nil)
		return NewExitError(ExitFailure, o.message)
	}
	return s.out.Success(result(o.resp))
}
