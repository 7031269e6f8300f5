package data

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/contactkeval/option-greeks/internal/logger"
)

// localCSVProvider reads quotes from a CSV file with a header row matching
// the csv tags of Quote. Unknown columns are ignored.
type localCSVProvider struct {
	path      string
	secondary Provider
}

// NewLocalCSVProvider reads quotes from path; when the file does not exist
// and secondary is set, secondary serves the quotes instead.
func NewLocalCSVProvider(path string, secondary Provider) Provider {
	return &localCSVProvider{path: path, secondary: secondary}
}

func (p *localCSVProvider) Secondary() Provider {
	return p.secondary
}

func (p *localCSVProvider) Quotes(ctx context.Context) ([]Quote, error) {
	f, err := os.Open(p.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && p.secondary != nil {
			logger.Infof("quotes file %s not found, using secondary provider", p.path)
			return p.secondary.Quotes(ctx)
		}
		return nil, fmt.Errorf("open quotes: %w", err)
	}
	defer f.Close()

	var quotes []Quote
	if err := gocsv.UnmarshalFile(f, &quotes); err != nil {
		return nil, fmt.Errorf("parse quotes %s: %w", p.path, err)
	}
	logger.Debugf("loaded %d quotes from %s", len(quotes), p.path)
	return quotes, ctx.Err()
}
