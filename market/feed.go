package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// CandleFeed yields candles one at a time in time order.
// Implementations return (ok=false, err=nil) at EOF.
type CandleFeed interface {
	Next() (c Candle, ok bool, err error)
	Close() error
}

// CSVCandleFeed reads canonical bar CSV rows:
//
//	time,open,high,low,close[,volume]
//
// where time is RFC3339 or RFC3339Nano.
//
// It optionally filters bars to [From, To) if provided.
// Header row ("time,...") is allowed.
// Empty/short rows are skipped.
type CSVCandleFeed struct {
	rc   io.Closer
	r    *csv.Reader
	from time.Time
	to   time.Time

	sawFirst bool
	last     time.Time
}

// NewCSVCandleFeed opens a candle file. Files ending in .xz, .lzma or .gz are
// decompressed on the fly.
func NewCSVCandleFeed(path string, from, to time.Time) (*CSVCandleFeed, error) {
	r, c, err := openData(path)
	if err != nil {
		return nil, err
	}
	feed := NewCSVCandleReader(r, from, to)
	feed.rc = c
	return feed, nil
}

// NewCSVCandleReader reads bars from r. Closing the feed does not close r.
func NewCSVCandleReader(r io.Reader, from, to time.Time) *CSVCandleFeed {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return &CSVCandleFeed{r: cr, from: from, to: to}
}

func (f *CSVCandleFeed) Close() error {
	if f.rc != nil {
		return f.rc.Close()
	}
	return nil
}

func (f *CSVCandleFeed) Next() (Candle, bool, error) {
	for {
		row, err := f.r.Read()
		if err == io.EOF {
			return Candle{}, false, nil
		}
		if err != nil {
			return Candle{}, false, err
		}
		if len(row) == 0 {
			continue
		}

		// Allow a single header row
		if !f.sawFirst {
			f.sawFirst = true
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}

		c, ok, err := parseCandleRow(row)
		if err != nil {
			return Candle{}, false, err
		}
		if !ok {
			continue
		}
		if !inRange(c.Time, f.from, f.to) {
			continue
		}
		if !f.last.IsZero() && !c.Time.After(f.last) {
			return Candle{}, false, fmt.Errorf("candle %s out of order (previous %s)",
				c.Time.Format(time.RFC3339), f.last.Format(time.RFC3339))
		}
		f.last = c.Time
		return c, true, nil
	}
}

// ReadAll drains a feed into a slice and closes it.
func ReadAll(feed CandleFeed) ([]Candle, error) {
	defer feed.Close()

	var out []Candle
	for {
		c, ok, err := feed.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, c)
	}
}

// SliceFeed replays an in-memory candle slice.
type SliceFeed struct {
	Candles []Candle
	idx     int
}

func (s *SliceFeed) Next() (Candle, bool, error) {
	if s.idx >= len(s.Candles) {
		return Candle{}, false, nil
	}
	c := s.Candles[s.idx]
	s.idx++
	return c, true, nil
}

func (s *SliceFeed) Close() error { return nil }

func parseCandleRow(row []string) (Candle, bool, error) {
	// Need at least: time,open,high,low,close
	if len(row) < 5 {
		return Candle{}, false, nil
	}

	ts := strings.TrimSpace(row[0])
	if ts == "" {
		return Candle{}, false, nil
	}
	// Accept RFC3339 or RFC3339Nano.
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		t2, err2 := time.Parse(time.RFC3339Nano, ts)
		if err2 != nil {
			return Candle{}, false, fmt.Errorf("bad time %q: %w", ts, err)
		}
		t = t2
	}

	var px [4]float64
	names := [4]string{"open", "high", "low", "close"}
	for i := range px {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i+1]), 64)
		if err != nil {
			return Candle{}, false, fmt.Errorf("bad %s %q: %w", names[i], row[i+1], err)
		}
		px[i] = v
	}

	c := Candle{Time: t.UTC(), Open: px[0], High: px[1], Low: px[2], Close: px[3]}
	if len(row) > 5 && strings.TrimSpace(row[5]) != "" {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[5]), 64)
		if err != nil {
			return Candle{}, false, fmt.Errorf("bad volume %q: %w", row[5], err)
		}
		c.Volume = v
	}
	if err := c.Validate(); err != nil {
		return Candle{}, false, err
	}
	return c, true, nil
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}
