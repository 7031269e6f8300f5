package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/contactkeval/option-greeks/internal/engine"
)

const (
	JSONFile = "results.json"
	CSVFile  = "results.csv"

	priceDecimals = 4
	greekDecimals = 6
	volDecimals   = 6
)

// csvRow is the flat form of engine.Row. Values not computed for a quote
// are written as empty cells.
type csvRow struct {
	Symbol      string `csv:"symbol"`
	Kind        string `csv:"kind"`
	Spot        string `csv:"spot"`
	Strike      string `csv:"strike"`
	Expiry      string `csv:"expiry_years"`
	Volatility  string `csv:"volatility"`
	MarketPrice string `csv:"market_price"`
	Price       string `csv:"price"`
	Delta       string `csv:"delta"`
	Gamma       string `csv:"gamma"`
	Vega        string `csv:"vega"`
	Rho         string `csv:"rho"`
	Theta       string `csv:"theta"`
	ImpliedVol  string `csv:"implied_vol"`
	Iterations  string `csv:"iterations"`
	Status      string `csv:"status"`
	Error       string `csv:"error"`
}

func WriteJSON(res *engine.Result, outdir string) error {
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outdir, JSONFile), b, 0644)
}

func WriteCSV(rows []engine.Row, outdir string) error {
	f, err := os.Create(filepath.Join(outdir, CSVFile))
	if err != nil {
		return err
	}
	defer f.Close()

	out := make([]csvRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, flatten(r))
	}
	if err := gocsv.MarshalFile(&out, f); err != nil {
		return fmt.Errorf("write %s: %w", CSVFile, err)
	}
	return nil
}

func flatten(r engine.Row) csvRow {
	q := r.Quote
	c := csvRow{
		Symbol:      q.Symbol,
		Kind:        q.Kind,
		Spot:        round(q.Spot, priceDecimals),
		Strike:      round(q.Strike, priceDecimals),
		Expiry:      round(q.Expiry, volDecimals),
		Volatility:  optional(q.Volatility, volDecimals),
		MarketPrice: optional(q.MarketPrice, priceDecimals),
		Status:      r.Status,
		Error:       r.Error,
	}
	if r.Price != nil {
		c.Price = round(*r.Price, priceDecimals)
	}
	if g := r.Greeks; g != nil {
		c.Delta = round(g.Delta, greekDecimals)
		c.Gamma = round(g.Gamma, greekDecimals)
		c.Vega = round(g.Vega, greekDecimals)
		c.Rho = round(g.Rho, greekDecimals)
		c.Theta = round(g.Theta, greekDecimals)
	}
	if iv := r.ImpliedVol; iv != nil {
		c.ImpliedVol = round(iv.Sigma, volDecimals)
		c.Iterations = fmt.Sprintf("%d", iv.Iterations)
	}
	return c
}

// round formats v half away from zero to n decimals without float noise.
func round(v float64, n int32) string {
	return decimal.NewFromFloat(v).Round(n).String()
}

func optional(v float64, n int32) string {
	if v == 0 {
		return ""
	}
	return round(v, n)
}
