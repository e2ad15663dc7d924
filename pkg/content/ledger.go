package content

import (
	"context"
	"fmt"
	"sort"

	"github.com/redbco/redb-archive/pkg/container"
	"github.com/redbco/redb-archive/pkg/logger"
)

// position tracks the external container currently receiving objects of
// one column.
type position struct {
	column  int
	next    int
	segment int
	current string
	size    int64
	count   int
}

// ledger decides which external container receives each large object of a
// table. Every column rotates its containers independently; finished
// containers are never reopened.
type ledger struct {
	store      container.Store
	schema     int
	table      int
	budget     int64
	maxObjects int
	log        *logger.Logger
	positions  map[int]*position
	finished   []string
}

func newLedger(store container.Store, schema, table int, opts Options, log *logger.Logger) *ledger {
	return &ledger{
		store:      store,
		schema:     schema,
		table:      table,
		budget:     opts.ContainerBudget,
		maxObjects: opts.maxObjects(),
		log:        logger.OrNop(log),
		positions:  make(map[int]*position),
	}
}

// acquire returns the position of column with a container able to take an
// object of size bytes.
func (l *ledger) acquire(ctx context.Context, column int, size int64) (*position, error) {
	p, ok := l.positions[column]
	if !ok {
		p = &position{column: column}
		l.positions[column] = p
	}
	switch {
	case p.current == "":
		l.open(p)
	case l.mustRotate(p, size):
		if err := l.rotate(ctx, p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (l *ledger) mustRotate(p *position, size int64) bool {
	if l.budget > 0 && p.size+size >= l.budget && (size <= l.budget || p.size >= l.budget) {
		return true
	}
	return p.count >= l.maxObjects
}

func (l *ledger) open(p *position) {
	p.segment = p.next
	p.next++
	p.current = ExternalContainer(l.schema, l.table, p.column, p.segment)
	p.size = 0
	p.count = 0
	l.log.Debugf("opened external container %s", p.current)
}

func (l *ledger) finish(ctx context.Context, p *position) error {
	if p.current == "" {
		return nil
	}
	if err := l.store.Finish(ctx, p.current); err != nil {
		return fmt.Errorf("failed to finish container %s: %w", p.current, err)
	}
	l.finished = append(l.finished, p.current)
	p.current = ""
	return nil
}

// rotate finishes the current container of p and opens the next one.
func (l *ledger) rotate(ctx context.Context, p *position) error {
	if err := l.finish(ctx, p); err != nil {
		return err
	}
	l.open(p)
	return nil
}

// record accounts for one file of n bytes written to p's container.
func (l *ledger) record(p *position, n int64) {
	p.size += n
	p.count++
}

func (p *position) remaining(budget int64) int64 {
	return budget - p.size
}

// close finishes every open container in column order.
func (l *ledger) close(ctx context.Context) error {
	columns := make([]int, 0, len(l.positions))
	for c := range l.positions {
		columns = append(columns, c)
	}
	sort.Ints(columns)
	for _, c := range columns {
		if err := l.finish(ctx, l.positions[c]); err != nil {
			return err
		}
	}
	return nil
}
