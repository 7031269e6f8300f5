// Package testutil holds fixtures and file helpers shared by package tests.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// QuotesCSV is a small quote file: the reference call priced from a
// volatility, the same call inverted from its market price, a put with an
// upper-case kind, a quote with an unknown kind and one with an
// unreachable market price.
const QuotesCSV = `symbol,kind,spot,strike,expiry_years,rate,dividend,volatility,market_price,venue
REF-VOL,call,100,110,0.8,0.05,0,0.2,,XNYS
REF-MKT,call,100,110,0.8,0.05,0,,4.83,XNYS
REF-PUT,PUT,100,110,0.8,0.05,0,0.2,,XNYS
BAD-KIND,straddle,100,110,0.8,0.05,0,0.2,,XNYS
BAD-PX,call,120,100,1,0.05,0,,15,XNYS
`

// WriteFile writes body to dir/name and returns the full path.
func WriteFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// ReadJSON decodes the JSON file at path into v.
func ReadJSON(t *testing.T, path string, v any) {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		t.Fatalf("failed to unmarshal %s: %v", path, err)
	}
}
