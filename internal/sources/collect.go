package sources

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"briefcast/internal/config"
	"briefcast/internal/logging"
	"briefcast/internal/services"
)

// Collector gathers content items for one source kind.
type Collector interface {
	Kind() Kind
	// Collect returns the gathered items plus the number of configured
	// sources that produced at least one item. Individual source failures
	// are handled inside the collector; a returned error means the whole
	// kind failed.
	Collect(ctx context.Context, snap Snapshot) ([]Item, int, error)
}

// DefaultCollectors returns the production collector set in merge order.
func DefaultCollectors(cfg *config.Config, logger *slog.Logger) []Collector {
	return []Collector{
		NewNewsletterCollector(cfg.Collectors, logger),
		NewRSSCollector(cfg.Collectors, logger),
		NewTopicsCollector(cfg.Topics, logger),
	}
}

// Result is the merged output of a collection pass.
type Result struct {
	Items []Item
	// SourcesOK counts, per kind, the sources that yielded content.
	SourcesOK map[Kind]int
	// Failures lists kinds whose collector failed outright.
	Failures map[Kind]error
}

// TotalItems returns the number of collected items across all kinds.
func (r *Result) TotalItems() int {
	return len(r.Items)
}

// CollectAll runs every collector concurrently against the snapshot and
// merges the results in MergeOrder so output is deterministic regardless of
// completion order. A failed kind is recorded, not fatal; collecting nothing
// at all is.
func CollectAll(ctx context.Context, logger *slog.Logger, snap Snapshot, collectors []Collector) (*Result, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if snap.Empty() {
		return nil, services.Wrap(services.ErrSourceCollection, "sources", "collect",
			"no enabled sources configured", nil)
	}

	outcomes := make(map[Kind]*outcome, len(collectors))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, collector := range collectors {
		wg.Add(1)
		go func(c Collector) {
			defer wg.Done()
			items, ok, err := c.Collect(ctx, snap)
			mu.Lock()
			outcomes[c.Kind()] = &outcome{items: items, sourcesOK: ok, err: err}
			mu.Unlock()
		}(collector)
	}
	wg.Wait()

	result := &Result{
		SourcesOK: make(map[Kind]int, len(collectors)),
		Failures:  make(map[Kind]error),
	}
	for _, kind := range mergeKinds(outcomes) {
		out := outcomes[kind]
		if out.err != nil {
			logger.Warn("source collection failed for kind",
				logging.String("kind", string(kind)),
				logging.Error(out.err))
			result.Failures[kind] = out.err
			continue
		}
		result.Items = append(result.Items, out.items...)
		result.SourcesOK[kind] = out.sourcesOK
		logger.Info("collected source kind",
			logging.String("kind", string(kind)),
			logging.Int("items", len(out.items)),
			logging.Int("sources_ok", out.sourcesOK))
	}

	if len(result.Items) == 0 {
		details := make([]string, 0, len(result.Failures))
		for kind, err := range result.Failures {
			details = append(details, fmt.Sprintf("%s: %v", kind, err))
		}
		sort.Strings(details)
		msg := "no content collected from any source"
		if len(details) > 0 {
			msg += " (" + strings.Join(details, "; ") + ")"
		}
		return nil, services.Wrap(services.ErrSourceCollection, "sources", "collect", msg, nil)
	}
	return result, nil
}

type outcome struct {
	items     []Item
	sourcesOK int
	err       error
}

// mergeKinds returns the outcome keys in MergeOrder, with any kind outside
// the known order appended alphabetically.
func mergeKinds(outcomes map[Kind]*outcome) []Kind {
	seen := make(map[Kind]bool, len(outcomes))
	ordered := make([]Kind, 0, len(outcomes))
	for _, kind := range MergeOrder {
		if _, ok := outcomes[kind]; ok {
			ordered = append(ordered, kind)
			seen[kind] = true
		}
	}
	var rest []Kind
	for kind := range outcomes {
		if !seen[kind] {
			rest = append(rest, kind)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	return append(ordered, rest...)
}
