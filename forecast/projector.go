/*
Package forecast projects a budget's balance month by month.

PURPOSE:
  Given a starting balance and a budget's lines, walks N calendar months
  from the current one and answers three questions:
  - What is the balance at the end of each month?
  - When is the balance lowest?
  - What is the biggest single expense coming up soon?

STATE MACHINE:
  month[0].StartBalance = StartingBalance
  month[i].StartBalance = month[i-1].EndBalance
  month[i].EndBalance   = StartBalance + IncomeTotal + ExpenseTotal

  Each month merges every line over [first day, last day]. Lines are
  independent, so they are merged concurrently; totals are summed in line
  order afterwards, so the result does not depend on scheduling.

INSIGHTS:
  LowestPoint:      minimum EndBalance, earliest month on ties
  NextLargeExpense: most negative single occurrence within the first
                    LargeExpenseLookaheadMonths months; earliest date,
                    then line order, on ties

EXAMPLE:
  p := forecast.NewProjector(merger)
  res, err := p.Project(ctx, forecast.Input{
      StartingBalance: 1_000_000,
      Lines:           lines,
      MonthCount:      12,
  })
*/
package forecast

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/warp/cashflow-engine/budget"
	"github.com/warp/cashflow-engine/calendar"
)

// LargeExpenseLookaheadMonths is how far ahead NextLargeExpense looks.
const LargeExpenseLookaheadMonths = 3

// =============================================================================
// TYPES
// =============================================================================

type Input struct {
	StartingBalance budget.Amount
	Lines           []budget.Line
	MonthCount      int

	// StartMonth is the first projected month. Zero means the clock's
	// current month.
	StartMonth calendar.Month
}

type MonthProjection struct {
	Month        calendar.Month
	StartBalance budget.Amount
	IncomeTotal  budget.Amount
	ExpenseTotal budget.Amount
	EndBalance   budget.Amount
}

type LowestPoint struct {
	Month   calendar.Month
	Balance budget.Amount
}

// Expense is one upcoming outflow. LineName comes from the caller's line
// metadata.
type Expense struct {
	Date     calendar.Date
	Amount   budget.Amount
	LineID   string
	LineName string
}

type Result struct {
	Projections      []MonthProjection
	LowestPoint      *LowestPoint
	NextLargeExpense *Expense
}

// =============================================================================
// PROJECTOR
// =============================================================================

type Projector struct {
	Merger *budget.Merger

	// Clock supplies "today". Defaults to time.Now.
	Clock func() time.Time

	// Workers bounds concurrent line merges per month. Zero uses
	// GOMAXPROCS.
	Workers int
}

func NewProjector(m *budget.Merger) *Projector {
	return &Projector{Merger: m, Clock: time.Now}
}

// Project runs the month-by-month projection.
func (p *Projector) Project(ctx context.Context, in Input) (*Result, error) {
	res := &Result{Projections: []MonthProjection{}}
	if in.MonthCount <= 0 {
		return res, nil
	}

	month := in.StartMonth
	if month.IsZero() {
		month = calendar.FromTime(p.now()).PeriodMonth()
	}

	balance := in.StartingBalance
	for i := 0; i < in.MonthCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		perLine, err := p.mergeMonth(ctx, in.Lines, month)
		if err != nil {
			return nil, err
		}

		mp := MonthProjection{Month: month, StartBalance: balance}
		for li, occs := range perLine {
			income, expense := budget.Totals(occs)
			mp.IncomeTotal += income
			mp.ExpenseTotal += expense

			if i < LargeExpenseLookaheadMonths {
				res.NextLargeExpense = largerExpense(res.NextLargeExpense, in.Lines[li], occs)
			}
		}
		mp.EndBalance = mp.StartBalance + mp.IncomeTotal + mp.ExpenseTotal
		res.Projections = append(res.Projections, mp)

		if res.LowestPoint == nil || mp.EndBalance < res.LowestPoint.Balance {
			res.LowestPoint = &LowestPoint{Month: month, Balance: mp.EndBalance}
		}

		balance = mp.EndBalance
		month = month.Next()
	}
	return res, nil
}

// mergeMonth merges every line over one month. Slot i holds line i.
func (p *Projector) mergeMonth(ctx context.Context, lines []budget.Line, month calendar.Month) ([][]budget.Occurrence, error) {
	out := make([][]budget.Occurrence, len(lines))
	first, last := month.First(), month.Last()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())
	for i, line := range lines {
		i, line := i, line
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			occs, err := p.Merger.MergeLine(line, first, last)
			if err != nil {
				return err
			}
			out[i] = occs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Projector) workers() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (p *Projector) now() time.Time {
	if p.Clock == nil {
		return time.Now()
	}
	return p.Clock()
}

// largerExpense returns whichever of best and line's occurrences is the
// most negative. Occurrences are date-sorted, so strict comparison keeps
// the earliest on ties.
func largerExpense(best *Expense, line budget.Line, occs []budget.Occurrence) *Expense {
	for _, o := range occs {
		if !o.Amount.IsExpense() {
			continue
		}
		if best == nil || o.Amount < best.Amount || (o.Amount == best.Amount && o.Date.Before(best.Date)) {
			best = &Expense{Date: o.Date, Amount: o.Amount, LineID: line.ID, LineName: line.Name}
		}
	}
	return best
}
