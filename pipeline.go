/*
Copyright © 2023 the gridharmony authors.
This file is part of gridharmony.

gridharmony is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

gridharmony is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with gridharmony.  If not, see <http://www.gnu.org/licenses/>.
*/

package gridharmony

import (
	"context"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Pipeline runs harmonization, interpolation and statistics over a batch
// of datasets.
type Pipeline struct {
	Harmonizer   *Harmonizer
	Interpolator *Interpolator

	// Workers is the maximum number of datasets harmonized at the same
	// time. Zero means the number of CPUs.
	Workers int

	// TrendMissing decides how missing values enter trend fits.
	TrendMissing MissingValuePolicy

	Log logrus.FieldLogger
}

// Result holds the output of a pipeline run. Series, Stats and Annual
// are in the order of the input datasets.
type Result struct {
	Quantity Quantity
	Domain   string
	Series   []*RasterSeries
	Stats    []*StatisticResult
	Annual   []*AnnualSeries
}

// Names returns the dataset names in result order.
func (r *Result) Names() []string {
	names := make([]string, len(r.Series))
	for i, s := range r.Series {
		names[i] = s.Name
	}
	return names
}

func (p *Pipeline) log() logrus.FieldLogger {
	if p.Log == nil {
		return logrus.StandardLogger()
	}
	return p.Log
}

// Run harmonizes quantity q of every dataset concurrently, then
// interpolates the batch onto the reference grid clipped to domain and
// computes statistics and annual summaries. The first error stops the
// run.
func (p *Pipeline) Run(ctx context.Context, datasets []DatasetDescriptor, q Quantity, domain string, annual bool) (*Result, error) {
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(-1)
	}
	harmonized := make([]*RasterSeries, len(datasets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, d := range datasets {
		i, d := i, d
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := p.Harmonizer.Harmonize(d, q, annual)
			if err != nil {
				return WithDataset(err, d.Name())
			}
			p.log().WithFields(logrus.Fields{
				"dataset": d.Name(),
				"steps":   r.Nt(),
			}).Info("harmonized dataset")
			harmonized[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	series, err := p.Interpolator.Interpolate(harmonized, domain, q)
	if err != nil {
		return nil, err
	}
	stats, err := Summarize(series, p.TrendMissing)
	if err != nil {
		return nil, err
	}
	res := &Result{Quantity: q, Domain: domain, Series: series, Stats: stats}
	for _, s := range series {
		a, err := AnnualSummary(s, p.Harmonizer.Config)
		if err != nil {
			return nil, err
		}
		res.Annual = append(res.Annual, a)
	}
	return res, nil
}
