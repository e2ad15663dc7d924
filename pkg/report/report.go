package report

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/redbco/redb-archive/pkg/logger"
)

// Category classifies a diagnostic.
type Category string

const (
	CategoryUnsupportedType   Category = "unsupported_type"
	CategoryCellSubstituted   Category = "cell_substituted"
	CategoryStructuralFeature Category = "structural_feature"
	CategoryValueChanged      Category = "value_changed"
)

// Location addresses a column or a cell. Row is 0 for column-level findings.
type Location struct {
	Schema string
	Table  string
	Column string
	Row    int64
}

func (l Location) String() string {
	s := l.Schema + "." + l.Table + "." + l.Column
	if l.Row > 0 {
		s += "[" + strconv.FormatInt(l.Row, 10) + "]"
	}
	return s
}

// Reporter receives recoverable findings. Implementations must be safe for
// concurrent use across tables.
type Reporter interface {
	UnsupportedType(loc Location, typeName string, code int)
	CellSubstituted(loc Location, cause error)
	StructuralFeature(loc Location, feature string)
	ValueChanged(loc Location, original, changed, reason string)
}

// Finding is one recorded diagnostic.
type Finding struct {
	Category Category
	Location Location
	Message  string
	Time     time.Time
}

// Status summarises a Collector.
type Status string

const (
	StatusClean    Status = "clean"
	StatusDegraded Status = "degraded"
)

// Collector counts findings per category, keeps the first samples of each
// and logs them.
type Collector struct {
	mu         sync.RWMutex
	counts     map[Category]int
	findings   []Finding
	maxSamples int
	log        *logger.Logger
}

// NewCollector keeps up to maxSamples findings per category.
func NewCollector(log *logger.Logger, maxSamples int) *Collector {
	return &Collector{
		counts:     make(map[Category]int),
		maxSamples: maxSamples,
		log:        logger.OrNop(log),
	}
}

func (c *Collector) record(cat Category, loc Location, msg string) {
	c.mu.Lock()
	c.counts[cat]++
	keep := c.counts[cat] <= c.maxSamples
	if keep {
		c.findings = append(c.findings, Finding{Category: cat, Location: loc, Message: msg, Time: time.Now()})
	}
	c.mu.Unlock()

	fields := map[string]string{"category": string(cat), "at": loc.String()}
	if cat == CategoryStructuralFeature {
		c.log.WithFields(fields).Warn(msg)
		return
	}
	c.log.WithFields(fields).Debug(msg)
}

func (c *Collector) UnsupportedType(loc Location, typeName string, code int) {
	c.record(CategoryUnsupportedType, loc, fmt.Sprintf("unsupported type %s (code %d)", typeName, code))
}

func (c *Collector) CellSubstituted(loc Location, cause error) {
	c.record(CategoryCellSubstituted, loc, fmt.Sprintf("cell replaced by NULL: %v", cause))
}

func (c *Collector) StructuralFeature(loc Location, feature string) {
	c.record(CategoryStructuralFeature, loc, feature+" not supported, written as absent")
}

func (c *Collector) ValueChanged(loc Location, original, changed, reason string) {
	c.record(CategoryValueChanged, loc, fmt.Sprintf("%s: %q -> %q", reason, original, changed))
}

// Count returns how many findings of cat were recorded.
func (c *Collector) Count(cat Category) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counts[cat]
}

// Findings returns a copy of the retained samples in recording order.
func (c *Collector) Findings() []Finding {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Finding, len(c.findings))
	copy(out, c.findings)
	return out
}

// Status is clean when nothing was recorded.
func (c *Collector) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, n := range c.counts {
		if n > 0 {
			return StatusDegraded
		}
	}
	return StatusClean
}

// Summary renders counts as "category=n" pairs in stable order.
func (c *Collector) Summary() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cats := make([]string, 0, len(c.counts))
	for cat := range c.counts {
		cats = append(cats, string(cat))
	}
	sort.Strings(cats)
	s := ""
	for i, cat := range cats {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s=%d", cat, c.counts[Category(cat)])
	}
	return s
}

type nop struct{}

func (nop) UnsupportedType(Location, string, int)         {}
func (nop) CellSubstituted(Location, error)               {}
func (nop) StructuralFeature(Location, string)            {}
func (nop) ValueChanged(Location, string, string, string) {}

// Nop discards everything.
var Nop Reporter = nop{}

// OrNop returns r, or Nop when r is nil.
func OrNop(r Reporter) Reporter {
	if r == nil {
		return Nop
	}
	return r
}
