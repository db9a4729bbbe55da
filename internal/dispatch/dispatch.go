package dispatch

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/kvrecord/internal/engine"
)

// Verb is a persistence operation requested by a model or collection.
type Verb string

const (
	VerbRead   Verb = "read"
	VerbCreate Verb = "create"
	VerbUpdate Verb = "update"
	VerbDelete Verb = "delete"
)

// Messages delivered to the Error callback.
const (
	// MsgPrivateBrowsing is reported when a write hits the quota while the
	// substrate holds no keys at all, the signature of a zero-quota
	// private-mode store.
	MsgPrivateBrowsing = "Private browsing is unsupported"

	// MsgRecordNotFound is reported when an operation produced no result and
	// no other error message applies.
	MsgRecordNotFound = "Record Not Found"
)

// ErrNotRecord is reported when a verb that needs a single record is issued
// against a target that is not one.
var ErrNotRecord = errors.New("target is not a record")

// Resolver is implemented by targets that can locate their storage engine.
// Records resolve their own engine first and fall back to their collection's.
type Resolver interface {
	ResolveStorage() (*engine.Engine, error)
}

// Options carries the optional callbacks of a Sync call. Nil callbacks are
// skipped.
type Options struct {
	Success  func(resp any)
	Error    func(msg string)
	Complete func(resp any)
}

// Dispatcher executes verbs against storage engines.
//
// Thread-safety: a Dispatcher holds no mutable state. Engines it reaches are
// not safe for concurrent use.
type Dispatcher struct {
	log *slog.Logger
}

// New creates a Dispatcher. A nil logger uses slog.Default().
func New(log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{log: log}
}

// Sync runs verb against target using the default Dispatcher.
func Sync(verb Verb, target Resolver, opts *Options) error {
	return New(nil).Sync(verb, target, opts)
}

// Sync runs verb against target and fires the callbacks in opts.
//
// Success receives the result when it is truthy and a Success callback is
// set; otherwise Error receives the classified message. Complete always runs
// last with the (possibly nil) result.
//
// Returns an error only when target fails to resolve its engine; no
// callback fires in that case.
func (d *Dispatcher) Sync(verb Verb, target Resolver, opts *Options) error {
	store, err := target.ResolveStorage()
	if err != nil {
		return fmt.Errorf("sync %s: %w", verb, err)
	}
	if store == nil {
		return fmt.Errorf("sync %s: %w", verb, engine.ErrNoStorage)
	}

	resp, opErr := d.run(verb, store, target)
	if opErr != nil {
		d.log.Warn("sync failed",
			"verb", string(verb),
			"collection", store.Name(),
			"error", opErr)
	}

	if opts == nil {
		return nil
	}

	if truthy(resp) && opts.Success != nil {
		opts.Success(resp)
	} else if opts.Error != nil {
		opts.Error(Classify(opErr, store.Size))
	}

	if opts.Complete != nil {
		opts.Complete(resp)
	}
	return nil
}

// run executes the engine operation for verb. Unknown verbs produce no
// result and no error.
func (d *Dispatcher) run(verb Verb, store *engine.Engine, target Resolver) (any, error) {
	rec, isRecord := target.(engine.Record)

	switch verb {
	case VerbRead:
		if isRecord && rec.ID() != "" {
			return store.Find(rec)
		}
		all, err := store.FindAll()
		if err != nil {
			return nil, err
		}
		return all, nil
	case VerbCreate, VerbUpdate, VerbDelete:
		if !isRecord {
			return nil, ErrNotRecord
		}
	default:
		d.log.Debug("ignoring unknown verb", "verb", string(verb))
		return nil, nil
	}

	switch verb {
	case VerbCreate:
		return store.Create(rec)
	case VerbUpdate:
		return store.Update(rec)
	default:
		destroyed, err := store.Destroy(rec)
		if err != nil {
			return nil, err
		}
		return destroyed, nil
	}
}

// Classify maps an operation failure to the message delivered to the Error
// callback. size reports the substrate's key count and is only consulted for
// quota failures.
func Classify(err error, size func() (int, error)) string {
	if err == nil || engine.IsNotFound(err) {
		return MsgRecordNotFound
	}
	if engine.IsQuotaExceeded(err) && size != nil {
		if n, sizeErr := size(); sizeErr == nil && n == 0 {
			return MsgPrivateBrowsing
		}
	}

	var ee *engine.Error
	if errors.As(err, &ee) {
		if msg := ee.Message(); msg != "" {
			return msg
		}
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return MsgRecordNotFound
}
