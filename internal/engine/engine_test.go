package engine

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/contactkeval/option-greeks/internal/data"
	"github.com/contactkeval/option-greeks/internal/pricing"
	"github.com/contactkeval/option-greeks/internal/testutil"
)

type staticProvider struct {
	quotes []data.Quote
	err    error
}

func (p staticProvider) Secondary() data.Provider { return nil }

func (p staticProvider) Quotes(ctx context.Context) ([]data.Quote, error) {
	return p.quotes, p.err
}

type recordingObserver struct {
	mu       sync.Mutex
	statuses map[string]int
}

func (o *recordingObserver) ObserveSolve(status string, iterations int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.statuses == nil {
		o.statuses = map[string]int{}
	}
	o.statuses[status]++
}

func testConfig() Config {
	return Config{Solver: pricing.DefaultSolverOptions(), Workers: 3}
}

func fixtureEngine(t *testing.T) *Engine {
	t.Helper()
	path := testutil.WriteFile(t, t.TempDir(), "quotes.csv", testutil.QuotesCSV)
	return NewEngine(testConfig(), data.NewLocalCSVProvider(path, nil))
}

func TestRunEvaluatesFixture(t *testing.T) {
	obs := &recordingObserver{}
	res, err := fixtureEngine(t).WithObserver(obs).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Rows) != 5 {
		t.Fatalf("got %d rows", len(res.Rows))
	}

	byName := map[string]Row{}
	for _, r := range res.Rows {
		byName[r.Quote.Symbol] = r
	}
	// rows keep input order
	if res.Rows[0].Quote.Symbol != "REF-VOL" || res.Rows[4].Quote.Symbol != "BAD-PX" {
		t.Fatalf("rows out of order")
	}

	ref := byName["REF-VOL"]
	if ref.Status != "ok" || ref.Price == nil || math.Abs(*ref.Price-4.8327814092208) > 1e-9 {
		t.Fatalf("REF-VOL: %+v", ref)
	}
	if ref.Greeks == nil || math.Abs(ref.Greeks.Delta-0.41303270291037814) > 1e-9 {
		t.Fatalf("REF-VOL greeks: %+v", ref.Greeks)
	}
	if ref.ImpliedVol != nil {
		t.Fatalf("REF-VOL has no market price, got implied vol %+v", ref.ImpliedVol)
	}

	mkt := byName["REF-MKT"]
	if mkt.Status != "ok" || mkt.ImpliedVol == nil || !mkt.ImpliedVol.Converged {
		t.Fatalf("REF-MKT: %+v", mkt)
	}
	if math.Abs(mkt.ImpliedVol.Sigma-0.19992014473798742) > 1e-6 {
		t.Fatalf("REF-MKT sigma=%v", mkt.ImpliedVol.Sigma)
	}
	if mkt.Price == nil || math.Abs(*mkt.Price-4.83) > 1e-6 {
		t.Fatalf("REF-MKT not repriced at implied vol: %v", mkt.Price)
	}

	put := byName["REF-PUT"]
	if put.Price == nil || math.Abs(*put.Price-10.519619715976347) > 1e-9 {
		t.Fatalf("REF-PUT: %+v", put)
	}

	if got := byName["BAD-KIND"]; got.Status != "unsupported_option_kind" || got.Price != nil {
		t.Fatalf("BAD-KIND: %+v", got)
	}
	if got := byName["BAD-PX"]; got.Status != "out_of_domain" || got.Price != nil || got.ImpliedVol != nil {
		t.Fatalf("BAD-PX: %+v", got)
	}

	s := res.Summary
	if s.Total != 5 || s.Priced != 3 || s.Solved != 1 || s.Failed != 2 {
		t.Fatalf("summary %+v", s)
	}
	if s.ByStatus["ok"] != 3 {
		t.Fatalf("by status %+v", s.ByStatus)
	}
	want := []string{"ok", "out_of_domain", "unsupported_option_kind"}
	got := s.Statuses()
	if len(got) != len(want) {
		t.Fatalf("statuses %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("statuses %v, want %v", got, want)
		}
	}

	if obs.statuses["ok"] != 1 || obs.statuses["out_of_domain"] != 1 {
		t.Fatalf("observer saw %+v", obs.statuses)
	}
}

func TestEvaluate(t *testing.T) {
	e := NewEngine(testConfig(), staticProvider{})
	base := data.Quote{Symbol: "X", Spot: 100, Strike: 110, Expiry: 0.8, Rate: 0.05}

	tests := []struct {
		name   string
		mutate func(q *data.Quote)
		status string
		priced bool
	}{
		{"neither vol nor price", func(q *data.Quote) {}, "invalid_parameter", false},
		{"negative spot", func(q *data.Quote) { q.Spot = -1; q.Volatility = 0.2 }, "invalid_parameter", false},
		{"default kind", func(q *data.Quote) { q.Volatility = 0.2 }, "ok", true},
		{"both given", func(q *data.Quote) { q.Volatility = 0.3; q.MarketPrice = 4.83 }, "ok", true},
		{"unreachable with vol", func(q *data.Quote) { q.Volatility = 0.2; q.MarketPrice = 200 }, "out_of_domain", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := base
			tt.mutate(&q)
			row := e.Evaluate(q)
			if row.Status != tt.status {
				t.Fatalf("status=%s (%s), want %s", row.Status, row.Error, tt.status)
			}
			if (row.Price != nil) != tt.priced {
				t.Fatalf("priced=%v, want %v", row.Price != nil, tt.priced)
			}
			if tt.status == "ok" && row.Error != "" {
				t.Fatalf("unexpected error %s", row.Error)
			}
		})
	}
}

func TestEvaluateKeepsOwnVolatility(t *testing.T) {
	e := NewEngine(testConfig(), staticProvider{})
	row := e.Evaluate(data.Quote{Spot: 100, Strike: 110, Expiry: 0.8, Rate: 0.05, Volatility: 0.3, MarketPrice: 4.83})
	want, _ := pricing.Price(pricing.OptionParameters{Spot: 100, Strike: 110, Expiry: 0.8, Rate: 0.05, Volatility: 0.3})
	if row.Price == nil || *row.Price != want {
		t.Fatalf("price %v, want model price at the quoted volatility %v", row.Price, want)
	}
}

func TestEvaluateDefaultKind(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultKind = pricing.Put
	row := NewEngine(cfg, staticProvider{}).Evaluate(data.Quote{Spot: 100, Strike: 110, Expiry: 0.8, Rate: 0.05, Volatility: 0.2})
	if row.Price == nil || math.Abs(*row.Price-10.519619715976347) > 1e-9 {
		t.Fatalf("default put kind not applied: %+v", row)
	}
}

func TestRunErrors(t *testing.T) {
	boom := errors.New("boom")
	if _, err := NewEngine(testConfig(), staticProvider{err: boom}).Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("provider error not propagated: %v", err)
	}
	if _, err := NewEngine(testConfig(), staticProvider{}).Run(context.Background()); err == nil {
		t.Fatalf("expected error for empty quote set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	quotes := []data.Quote{{Spot: 100, Strike: 100, Expiry: 1, Volatility: 0.2}}
	if _, err := NewEngine(testConfig(), staticProvider{quotes: quotes}).Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled run returned %v", err)
	}
}

func TestRunSyntheticRoundTrip(t *testing.T) {
	prov := data.NewSyntheticProvider(data.SyntheticSpec{
		Underlying: "SYN", Spot: 100, Rate: 0.02, BaseVol: 0.25, Skew: -0.1,
		Deltas: []float64{0.25, 0.5, 0.75}, Expiries: []float64{0.25, 1}, Seed: 3,
	})
	res, err := NewEngine(testConfig(), prov).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, r := range res.Rows {
		if r.Status != "ok" {
			t.Fatalf("%s: %s", r.Quote.Symbol, r.Error)
		}
		if math.Abs(r.ImpliedVol.Sigma-r.Quote.Volatility) > 1e-5 {
			t.Fatalf("%s: implied %v, generated with %v", r.Quote.Symbol, r.ImpliedVol.Sigma, r.Quote.Volatility)
		}
	}
}

func TestSolveConvergedAtInitialGuessIsKept(t *testing.T) {
	cfg := testConfig()
	p := pricing.OptionParameters{Spot: 100, Strike: 110, Expiry: 0.8, Rate: 0.05, Volatility: cfg.Solver.InitialGuess}
	market, err := pricing.Price(p)
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	quotes := []data.Quote{{Symbol: "AT-GUESS", Spot: 100, Strike: 110, Expiry: 0.8, Rate: 0.05, MarketPrice: market}}

	res, err := NewEngine(cfg, staticProvider{quotes: quotes}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	row := res.Rows[0]
	if row.Status != "ok" || row.ImpliedVol == nil {
		t.Fatalf("converged solve missing from row: %+v", row)
	}
	if row.ImpliedVol.Iterations != 0 || !row.ImpliedVol.Converged || row.ImpliedVol.Sigma != cfg.Solver.InitialGuess {
		t.Fatalf("implied vol %+v", row.ImpliedVol)
	}
	if res.Summary.Solved != 1 || res.Summary.Priced != 1 {
		t.Fatalf("summary %+v", res.Summary)
	}
}
