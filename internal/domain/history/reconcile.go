package history

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type SortField string

const (
	SortDate       SortField = "date"
	SortType       SortField = "type"
	SortName       SortField = "name"
	SortDepartment SortField = "department"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Query selects and orders events. The zero value sorts by date, newest
// first, with no filters. From and To are inclusive.
type Query struct {
	Sort  SortField
	Dir   Direction
	Types []Type
	From  *time.Time
	To    *time.Time
}

func (q *Query) normalize() error {
	if q.Sort == "" {
		q.Sort = SortDate
	}
	if q.Dir == "" {
		q.Dir = Desc
	}
	switch q.Sort {
	case SortDate, SortType, SortName, SortDepartment:
	default:
		return fmt.Errorf("invalid sort field: %s", q.Sort)
	}
	if q.Dir != Asc && q.Dir != Desc {
		return fmt.Errorf("invalid sort direction: %s", q.Dir)
	}
	for _, t := range q.Types {
		if !t.Valid() {
			return fmt.Errorf("invalid event type: %s", t)
		}
	}
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return fmt.Errorf("date range end is before its start")
	}
	return nil
}

// Reconcile normalizes records into events, applies the filters and sorts
// them. The sort is stable, so ties keep their input order.
func Reconcile(records []Record, q Query) ([]Event, error) {
	if err := q.normalize(); err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(records))
	for _, r := range records {
		ev, err := Normalize(r)
		if err != nil {
			return nil, err
		}
		if !q.matches(ev) {
			continue
		}
		events = append(events, ev)
	}

	less := comparator(q.Sort)
	sort.SliceStable(events, func(i, j int) bool {
		if q.Dir == Desc {
			return less(events[j], events[i])
		}
		return less(events[i], events[j])
	})
	return events, nil
}

func (q Query) matches(ev Event) bool {
	if len(q.Types) > 0 {
		found := false
		for _, t := range q.Types {
			if t == ev.Type {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.From != nil && ev.Date.Before(*q.From) {
		return false
	}
	if q.To != nil && ev.Date.After(*q.To) {
		return false
	}
	return true
}

func comparator(f SortField) func(a, b Event) bool {
	switch f {
	case SortType:
		return func(a, b Event) bool { return a.Type < b.Type }
	case SortName:
		return func(a, b Event) bool { return strings.Compare(a.Name, b.Name) < 0 }
	case SortDepartment:
		return func(a, b Event) bool { return strings.Compare(a.Department, b.Department) < 0 }
	default:
		return func(a, b Event) bool { return a.Date.Sub(b.Date) < 0 }
	}
}
