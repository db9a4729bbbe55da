package harness

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/kvrecord/internal/codec"
	"github.com/roach88/kvrecord/internal/dispatch"
	"github.com/roach88/kvrecord/internal/engine"
	"github.com/roach88/kvrecord/internal/model"
	"github.com/roach88/kvrecord/internal/substrate"
	"github.com/roach88/kvrecord/internal/testutil"
)

// Harness executes one scenario.
type Harness struct {
	scenario *Scenario
	sub      *substrate.Memory
	typ      *model.Type
	clock    *testutil.DeterministicClock
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory substrate for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Create the substrate and write the seed entries
// 2. Attach a model type to the scenario's collection
// 3. Execute steps with expect validation
// 4. Evaluate assertions and capture the final layout
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with an explicit logger for the engine and
// dispatcher.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	sub := substrate.NewMemory(substrate.WithQuota(scenario.QuotaBytes))

	for _, key := range slices.Sorted(maps.Keys(scenario.Seed)) {
		if err := sub.Set(key, scenario.Seed[key]); err != nil {
			return nil, fmt.Errorf("failed to seed %q: %w", key, err)
		}
	}

	typ := &model.Type{Name: scenario.Collection, IDAttribute: scenario.IDAttribute}
	ids := &scenarioIDs{fixed: scenario.IDs, fallback: testutil.NewSequentialIDGenerator("")}
	if err := model.Attach(typ, sub, scenario.Collection,
		engine.WithIDGenerator(ids),
		engine.WithLogger(logger),
	); err != nil {
		return nil, fmt.Errorf("failed to attach collection: %w", err)
	}

	h := &Harness{
		scenario: scenario,
		sub:      sub,
		typ:      typ,
		clock:    testutil.NewDeterministicClock(),
		logger:   logger,
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(i, step, result); err != nil {
			return nil, err
		}
	}

	for i, a := range scenario.Assertions {
		if err := h.checkAssertion(a); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d] (%s): %v", i, a.Type, err))
		}
	}

	layout, err := substrate.Dump(sub, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to capture layout: %w", err)
	}
	result.Layout = layout
	return result, nil
}

// executeStep dispatches one verb and validates its outcome.
func (h *Harness) executeStep(i int, step Step, result *Result) error {
	event := TraceEvent{Seq: h.clock.Next(), Verb: step.Verb}

	attrs := maps.Clone(step.Attrs)
	if attrs == nil {
		attrs = map[string]any{}
	}
	if step.ID != "" {
		attrs[h.idAttribute()] = step.ID
	}

	var target dispatch.Resolver
	var rec *model.Model
	if step.Verb == string(dispatch.VerbRead) && step.ID == "" {
		target = model.NewCollection(h.typ)
	} else {
		rec = model.New(h.typ, attrs)
		target = rec
	}

	err := h.typ.Sync(dispatch.Verb(step.Verb), target, &dispatch.Options{
		Success: func(resp any) {
			event.Outcome = OutcomeSuccess
			event.Result = plain(resp)
		},
		Error: func(msg string) {
			event.Outcome = OutcomeError
			event.Message = msg
		},
	})
	if err != nil {
		return fmt.Errorf("steps[%d]: %w", i, err)
	}
	if rec != nil {
		event.ID = rec.ID()
	}

	h.logger.Debug("step executed",
		"seq", event.Seq,
		"verb", event.Verb,
		"id", event.ID,
		"outcome", event.Outcome)

	result.Trace = append(result.Trace, event)

	if step.Expect != nil {
		for _, msg := range checkExpect(step.Expect, event) {
			result.AddError(fmt.Sprintf("steps[%d] (%s): %s", i, step.Verb, msg))
		}
	}
	return nil
}

func (h *Harness) idAttribute() string {
	if h.scenario.IDAttribute == "" {
		return model.DefaultIDAttribute
	}
	return h.scenario.IDAttribute
}

// checkExpect returns one message per mismatch.
func checkExpect(want *Expect, got TraceEvent) []string {
	var errs []string
	if got.Outcome != want.Outcome {
		errs = append(errs, fmt.Sprintf("expected outcome %s, got %s", want.Outcome, got.Outcome))
		if got.Message != "" {
			errs = append(errs, fmt.Sprintf("error message: %s", got.Message))
		}
		return errs
	}

	if want.Message != "" && got.Message != want.Message {
		errs = append(errs, fmt.Sprintf("expected message %q, got %q", want.Message, got.Message))
	}
	if want.Result != nil {
		errs = append(errs, matchSubset(want.Result, got.Result)...)
	}
	if want.Count != nil {
		items, ok := got.Result.([]any)
		switch {
		case !ok:
			errs = append(errs, fmt.Sprintf("expected a collection result, got %T", got.Result))
		case len(items) != *want.Count:
			errs = append(errs, fmt.Sprintf("expected %d records, got %d", *want.Count, len(items)))
		}
	}
	return errs
}

// checkAssertion validates final substrate state.
func (h *Harness) checkAssertion(a Assertion) error {
	name := h.scenario.Collection

	switch a.Type {
	case AssertIndex:
		raw, _, err := h.sub.Get(name)
		if err != nil {
			return err
		}
		var got []string
		if raw != "" {
			got = strings.Split(raw, ",")
		}
		if !slices.Equal(got, a.Records) {
			return fmt.Errorf("expected index %v, got %v", a.Records, got)
		}
	case AssertEntry:
		raw, ok, err := h.sub.Get(name + "-" + a.ID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("record %q not stored", a.ID)
		}
		payload, err := codec.Deserialize(raw)
		if err != nil {
			return fmt.Errorf("record %q: %w", a.ID, err)
		}
		if errs := matchSubset(a.Expect, payload); len(errs) > 0 {
			return fmt.Errorf("record %q: %s", a.ID, strings.Join(errs, "; "))
		}
	case AssertAbsent:
		_, ok, err := h.sub.Get(name + "-" + a.ID)
		if err != nil {
			return err
		}
		if ok {
			return fmt.Errorf("record %q still stored", a.ID)
		}
	case AssertSize:
		n, err := h.sub.Len()
		if err != nil {
			return err
		}
		if n != a.Count {
			return fmt.Errorf("expected %d keys, got %d", a.Count, n)
		}
	}
	return nil
}

// matchSubset compares each expected field with the actual field by
// canonical form, so YAML integers match decoded JSON numbers.
func matchSubset(want map[string]any, got any) []string {
	actual, ok := got.(map[string]any)
	if !ok {
		return []string{fmt.Sprintf("expected a record result, got %T", got)}
	}

	var errs []string
	for _, key := range slices.Sorted(maps.Keys(want)) {
		value, present := actual[key]
		if !present {
			errs = append(errs, fmt.Sprintf("field %q missing", key))
			continue
		}
		wantJSON, err := codec.MarshalCanonical(want[key])
		if err != nil {
			errs = append(errs, fmt.Sprintf("field %q: %v", key, err))
			continue
		}
		gotJSON, err := codec.MarshalCanonical(value)
		if err != nil {
			errs = append(errs, fmt.Sprintf("field %q: %v", key, err))
			continue
		}
		if string(wantJSON) != string(gotJSON) {
			errs = append(errs, fmt.Sprintf("field %q: expected %s, got %s", key, wantJSON, gotJSON))
		}
	}
	return errs
}

// plain converts a callback result to its plain value form.
func plain(resp any) any {
	if rec, ok := resp.(engine.Record); ok {
		v, err := rec.Serialize()
		if err != nil {
			return nil
		}
		return v
	}
	return resp
}

// scenarioIDs hands out fixed ids first, then sequential ones.
type scenarioIDs struct {
	fixed    []string
	fallback *testutil.SequentialIDGenerator
}

func (g *scenarioIDs) Generate() string {
	if len(g.fixed) > 0 {
		id := g.fixed[0]
		g.fixed = g.fixed[1:]
		return id
	}
	return g.fallback.Generate()
}
