// Package harness generates and sequences the authorization test matrix:
// the cross product {group} x {identity} x {Write, Read}. Groups run
// concurrently on a bounded worker pool; within one group the order is
// fixed: sentinel write, commit barrier, concurrent reads, then write
// probes. The ordering is enforced by the commit barrier rather than ad
// hoc delays.
package harness

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sealcheck.io/sealcheck/internal/domain"
	"sealcheck.io/sealcheck/internal/group"
	"sealcheck.io/sealcheck/internal/identity"
	"sealcheck.io/sealcheck/internal/oracle"
	"sealcheck.io/sealcheck/internal/pkg/logger"
	"sealcheck.io/sealcheck/internal/pkg/worker"
	"sealcheck.io/sealcheck/internal/probe"
	"sealcheck.io/sealcheck/internal/report"
)

// GroupSpec declares one privacy group to verify.
type GroupSpec struct {
	Name    string
	Members []string
}

// Options tunes one orchestrator run.
type Options struct {
	RunID string

	// Workers bounds concurrent group evaluation; size to node-connection
	// capacity, not group count.
	Workers int

	// CheckDeterminism issues a duplicate read per (group, identity) and
	// reports divergence as Inconclusive. Repeated identical calls against
	// unchanged state must agree; disagreement is a defect to surface,
	// never to retry away.
	CheckDeterminism bool

	Metrics *report.Metrics
}

// Orchestrator drives the oracle for expectations and the proxy for
// observations, and feeds both into the report.
type Orchestrator struct {
	registry *identity.Registry
	manager  *group.Manager
	oracle   *oracle.Oracle
	proxy    *probe.Proxy
	opts     Options
}

// New creates an Orchestrator.
func New(reg *identity.Registry, mgr *group.Manager, orc *oracle.Oracle, prx *probe.Proxy, opts Options) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Orchestrator{
		registry: reg,
		manager:  mgr,
		oracle:   orc,
		proxy:    prx,
		opts:     opts,
	}
}

// collector serializes report appends from concurrent group workers.
// Results are partitioned by group, so contention is negligible.
type collector struct {
	mu      sync.Mutex
	builder *report.Builder
}

func (c *collector) add(tc domain.TestCase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.builder.Add(tc)
}

func (c *collector) exclude(group, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.builder.Exclude(group, reason)
}

// Run evaluates every group spec and returns the finalized report.
// A group that fails to reach Ready is excluded from the matrix and its
// worker exits; sibling workers are unaffected.
func (o *Orchestrator) Run(ctx context.Context, specs []GroupSpec) (*report.Report, error) {
	started := time.Now()
	col := &collector{builder: report.NewBuilder(o.opts.RunID, started)}

	// Sentinel table: derived up front, deterministically from run id and
	// group name, one slot per group. Read-only once workers start, so
	// cross-worker access needs no lock, and re-runs stay comparable.
	sentinels := make(map[string]string, len(specs))
	for _, spec := range specs {
		sentinels[spec.Name] = o.sentinel(spec.Name)
	}

	pool, err := worker.New("groups", o.opts.Workers)
	if err != nil {
		return nil, err
	}
	defer func() {
		drain := 30 * time.Second
		if ctx.Err() != nil {
			// A cancelled run must exit promptly, not drain workers.
			drain = 100 * time.Millisecond
		}
		pool.Release(drain)
	}()

	var wg sync.WaitGroup
	for _, spec := range specs {
		spec := spec
		wg.Add(1)
		// Submitted detached from ctx so the WaitGroup always resolves;
		// runGroup itself observes ctx and fails fast once cancelled.
		err := pool.Submit(context.Background(), func(context.Context) {
			defer wg.Done()
			o.runGroup(ctx, spec, sentinels, col)
		})
		if err != nil {
			wg.Done()
			col.exclude(spec.Name, "worker submission failed: "+err.Error())
			o.opts.Metrics.ObserveExcluded()
		}
	}

	// A cancelled context can skip queued tasks without running them, so
	// waiting on the WaitGroup alone could hang; race it against ctx.
	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return col.builder.Finalize(time.Now()), nil
}

// sentinel derives the group-unique value written by the authorized
// member, so cross-group leakage is independently detectable.
func (o *Orchestrator) sentinel(groupName string) string {
	sum := sha256.Sum256([]byte(o.opts.RunID + "/" + groupName))
	return "s-" + hex.EncodeToString(sum[:4])
}

// throwaway derives a per-identity probe value. Never the sentinel: a
// successful unauthorized write must not corrupt the read phase.
func (o *Orchestrator) throwaway(groupName, identityName string) string {
	sum := sha256.Sum256([]byte(o.opts.RunID + "/" + groupName + "/" + identityName))
	return "p-" + hex.EncodeToString(sum[:4])
}

// runGroup executes the full per-group sequence. Lifecycle failures
// exclude the group (they are not breaches); only Ready groups with a
// probe contract produce matrix cells.
func (o *Orchestrator) runGroup(ctx context.Context, spec GroupSpec, sentinels map[string]string, col *collector) {
	log := logger.With(zap.String("group", spec.Name))

	members := make([]domain.Identity, 0, len(spec.Members))
	for _, name := range spec.Members {
		id, err := o.registry.Identity(name)
		if err != nil {
			col.exclude(spec.Name, err.Error())
			o.opts.Metrics.ObserveExcluded()
			return
		}
		members = append(members, id)
	}

	g, err := o.manager.Create(ctx, spec.Name, members)
	if err != nil {
		log.Warn("group excluded from matrix", zap.Error(err))
		col.exclude(spec.Name, err.Error())
		o.opts.Metrics.ObserveExcluded()
		return
	}
	if err := o.manager.AwaitReady(ctx, g); err != nil {
		log.Warn("group excluded from matrix", zap.Error(err))
		col.exclude(spec.Name, err.Error())
		o.opts.Metrics.ObserveExcluded()
		return
	}

	writer := members[0]
	sentinel := sentinels[spec.Name]

	// Phase 1: one authorized write establishes the sentinel. The commit
	// barrier inside Write makes it observable before any read runs.
	established := o.runCase(ctx, g, writer, domain.OpWrite, sentinel, col)

	// Phase 2: reads from the whole identity universe, concurrently; pure
	// observations with no ordering dependency on one another.
	eg, egCtx := errgroup.WithContext(ctx)
	for _, id := range o.registry.Universe() {
		id := id
		eg.Go(func() error {
			o.runReadCase(egCtx, g, id, sentinel, established, sentinels, col)
			return nil
		})
	}
	_ = eg.Wait()

	// Phase 3: write probes from every identity except the sentinel
	// writer, sequentially; they mutate contract state and run only after
	// the read phase is complete.
	for _, id := range o.registry.Universe() {
		if id.Name == writer.Name {
			continue
		}
		o.runCase(ctx, g, id, domain.OpWrite, o.throwaway(spec.Name, id.Name), col)
	}

	log.Info("group matrix complete")
}

// runCase executes one write cell and records it. Returns true when the
// platform confirmed the write.
func (o *Orchestrator) runCase(ctx context.Context, g *domain.PrivacyGroup, id domain.Identity, op domain.Operation, value string, col *collector) bool {
	expected := o.oracle.Expect(g, id, op)

	caseStart := time.Now()
	actual := o.proxy.Write(ctx, g, id, value)

	tc := domain.TestCase{
		GroupID:        g.ID,
		GroupName:      g.Name,
		Identity:       id.Name,
		Operation:      op,
		Expected:       expected,
		Actual:         actual,
		Classification: report.Classify(expected, actual),
	}
	col.add(tc)
	o.opts.Metrics.ObserveCase(g.Name, op, tc.Classification, time.Since(caseStart))
	return actual.Kind == domain.ActualSuccess
}

// runReadCase executes one read cell, including the value-level checks a
// bare "no error" comparison would miss.
func (o *Orchestrator) runReadCase(ctx context.Context, g *domain.PrivacyGroup, id domain.Identity, sentinel string, established bool, sentinels map[string]string, col *collector) {
	expected := o.oracle.Expect(g, id, domain.OpRead)

	caseStart := time.Now()
	actual := o.proxy.Read(ctx, g, id)

	tc := domain.TestCase{
		GroupID:   g.ID,
		GroupName: g.Name,
		Identity:  id.Name,
		Operation: domain.OpRead,
		Expected:  expected,
		Actual:    actual,
	}
	tc.Classification = report.Classify(expected, actual)

	if actual.Kind == domain.ActualSuccess {
		// Cross-group leakage: a read must never surface another group's
		// sentinel, whoever the caller is.
		for other, otherSentinel := range sentinels {
			if other != g.Name && actual.Value == otherSentinel {
				tc.Detail = "leaked sentinel of group " + other
				if tc.Classification == domain.Pass {
					tc.Classification = domain.Inconclusive
				}
			}
		}

		// An authorized read that does not observe the commit-confirmed
		// sentinel is not "correct isolation"; no-error is not enough.
		if expected == domain.Allow && established && actual.Value != sentinel && tc.Detail == "" {
			tc.Detail = "expected sentinel " + sentinel + ", read " + actual.Value
			tc.Classification = domain.Inconclusive
		}
	}

	if o.opts.CheckDeterminism && tc.Detail == "" {
		// Same call, unchanged state: the outcome must agree. Divergence
		// is reported, not retried away.
		second := o.proxy.Read(ctx, g, id)
		if second.Kind != actual.Kind || second.Value != actual.Value {
			tc.Detail = "non-deterministic outcome across identical reads"
			// Never mask a Breach with Inconclusive.
			if tc.Classification == domain.Pass {
				tc.Classification = domain.Inconclusive
			}
		}
	}

	col.add(tc)
	o.opts.Metrics.ObserveCase(g.Name, domain.OpRead, tc.Classification, time.Since(caseStart))
}
