package history

import (
	"math"
	"time"
)

type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (p Period) contains(t time.Time) bool {
	return !t.Before(p.From) && t.Before(p.To)
}

type CompareRow struct {
	Type     Type `json:"type"`
	Current  int  `json:"current"`
	Previous int  `json:"previous"`
	Delta    int  `json:"delta"`
	// ChangePct is nil when the previous period had no events.
	ChangePct *int `json:"change_pct"`
}

type Comparison struct {
	Current  Period       `json:"current"`
	Previous Period       `json:"previous"`
	Rows     []CompareRow `json:"rows"`
	Total    CompareRow   `json:"total"`
}

// Compare counts events per type in the period of the given length ending at
// end, and in the equally long period before it. The current period includes
// end; the previous one stops short of the current period's start.
func Compare(events []Event, end time.Time, length time.Duration) Comparison {
	cur := Period{From: end.Add(-length), To: end}
	prev := Period{From: end.Add(-2 * length), To: cur.From}

	current := map[Type]int{}
	previous := map[Type]int{}
	for _, ev := range events {
		switch {
		case !ev.Date.Before(cur.From) && !ev.Date.After(cur.To):
			current[ev.Type]++
		case prev.contains(ev.Date):
			previous[ev.Type]++
		}
	}

	cmp := Comparison{Current: cur, Previous: prev}
	var sumCur, sumPrev int
	for _, t := range Types {
		cmp.Rows = append(cmp.Rows, newRow(t, current[t], previous[t]))
		sumCur += current[t]
		sumPrev += previous[t]
	}
	cmp.Total = newRow("total", sumCur, sumPrev)
	return cmp
}

func newRow(t Type, current, previous int) CompareRow {
	row := CompareRow{Type: t, Current: current, Previous: previous, Delta: current - previous}
	if previous > 0 {
		pct := int(math.Round(100 * float64(current-previous) / float64(previous)))
		row.ChangePct = &pct
	}
	return row
}
