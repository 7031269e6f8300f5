// Package engine evaluates a batch of option quotes: model price and Greeks
// where a volatility is known, implied volatility where a market price is.
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/contactkeval/option-greeks/internal/data"
	"github.com/contactkeval/option-greeks/internal/logger"
	"github.com/contactkeval/option-greeks/internal/pricing"
)

// Observer receives one call per implied volatility solve. The metrics
// package implements it.
type Observer interface {
	ObserveSolve(status string, iterations int)
}

// Config controls a batch run.
type Config struct {
	Solver      pricing.SolverOptions
	DefaultKind pricing.Kind // used when a quote leaves its kind empty
	Workers     int          // concurrent evaluations, at least one
}

type Engine struct {
	cfg      Config
	prov     data.Provider
	observer Observer
}

// Row is the evaluation of one quote. Fields that could not be computed
// are nil; Status is the error kind of the first failure or "ok".
type Row struct {
	Quote      data.Quote                `json:"quote"`
	Price      *float64                  `json:"price,omitempty"`
	Greeks     *pricing.GreekSet         `json:"greeks,omitempty"`
	ImpliedVol *pricing.ImpliedVolResult `json:"implied_vol,omitempty"`
	Status     string                    `json:"status"`
	Error      string                    `json:"error,omitempty"`
}

// Summary counts outcomes over a batch.
type Summary struct {
	Total    int            `json:"total"`
	Priced   int            `json:"priced"`
	Solved   int            `json:"solved"`
	Failed   int            `json:"failed"`
	ByStatus map[string]int `json:"by_status"`
	Elapsed  string         `json:"elapsed"`
}

// Result holds the rows in input order.
type Result struct {
	Rows    []Row   `json:"rows"`
	Summary Summary `json:"summary"`
}

func NewEngine(cfg Config, prov data.Provider) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Engine{cfg: cfg, prov: prov}
}

// WithObserver attaches o to every subsequent solve.
func (e *Engine) WithObserver(o Observer) *Engine {
	e.observer = o
	return e
}

// Run fetches quotes from the provider and evaluates them concurrently.
// Per-quote failures are recorded in their rows; only provider errors and
// cancellation abort the run.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	quotes, err := e.prov.Quotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch quotes: %w", err)
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("no quotes to evaluate")
	}
	logger.Infof("evaluating %d quotes with %d workers", len(quotes), e.cfg.Workers)

	rows := make([]Row, len(quotes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i, q := range quotes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows[i] = e.Evaluate(q)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Rows: rows, Summary: summarize(rows)}
	res.Summary.Elapsed = time.Since(start).String()
	logger.Infof("batch done: %d priced, %d solved, %d failed in %s",
		res.Summary.Priced, res.Summary.Solved, res.Summary.Failed, res.Summary.Elapsed)
	return res, nil
}

// Evaluate computes everything the quote allows:
//   - a volatility gives the model price and Greeks;
//   - a market price gives the implied volatility, and when the quote has
//     no volatility of its own, price and Greeks at the implied one.
//
// A quote with neither is an invalid parameter.
func (e *Engine) Evaluate(q data.Quote) Row {
	row := Row{Quote: q, Status: pricing.ErrorKind(nil)}

	p, err := q.Params(e.cfg.DefaultKind)
	if err != nil {
		return row.fail(err)
	}
	if q.Volatility <= 0 && q.MarketPrice <= 0 {
		return row.fail(&pricing.ParameterError{
			Name: "volatility", Value: q.Volatility,
			Reason: "quote needs a volatility or a market price",
		})
	}

	if q.MarketPrice > 0 {
		res, err := e.solve(p, q.MarketPrice)
		// A guess already within tolerance converges with zero iterations.
		if err == nil || res.Iterations > 0 {
			row.ImpliedVol = &res
		}
		if err != nil {
			row = row.fail(err)
		} else if q.Volatility <= 0 {
			p = p.WithVolatility(res.Sigma)
		}
	}

	if p.Volatility > 0 {
		if err := row.price(p); err != nil {
			row = row.fail(err)
		}
	}
	return row
}

func (e *Engine) solve(p pricing.OptionParameters, marketPrice float64) (pricing.ImpliedVolResult, error) {
	res, err := pricing.ImpliedVolatility(p, marketPrice, e.cfg.Solver)
	if e.observer != nil {
		e.observer.ObserveSolve(pricing.ErrorKind(err), res.Iterations)
	}
	if err != nil {
		logger.Debugf("implied vol K=%g T=%g price=%g: %v", p.Strike, p.Expiry, marketPrice, err)
	}
	return res, err
}

func (r *Row) price(p pricing.OptionParameters) error {
	v, err := pricing.Price(p)
	if err != nil {
		return err
	}
	g, err := pricing.Greeks(p)
	if err != nil {
		return err
	}
	r.Price, r.Greeks = &v, &g
	return nil
}

// fail records err unless an earlier failure already set the status.
func (r Row) fail(err error) Row {
	if r.Error == "" {
		r.Status = pricing.ErrorKind(err)
		r.Error = err.Error()
	}
	return r
}

func summarize(rows []Row) Summary {
	s := Summary{Total: len(rows), ByStatus: map[string]int{}}
	for _, r := range rows {
		s.ByStatus[r.Status]++
		if r.Price != nil {
			s.Priced++
		}
		if r.ImpliedVol != nil && r.ImpliedVol.Converged {
			s.Solved++
		}
		if r.Error != "" {
			s.Failed++
		}
	}
	return s
}

// Statuses returns the distinct statuses of a summary in sorted order.
func (s Summary) Statuses() []string {
	out := make([]string, 0, len(s.ByStatus))
	for k := range s.ByStatus {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
