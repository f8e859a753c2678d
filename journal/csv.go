package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

type CSV struct {
	trades *csv.Writer
	equity *csv.Writer
	tf, ef *os.File
}

func NewCSV(tradesPath, equityPath string) (*CSV, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		tf.Close()
		return nil, err
	}

	j := &CSV{trades: csv.NewWriter(tf), equity: csv.NewWriter(ef), tf: tf, ef: ef}

	if err := j.write(j.trades, []string{"run_id", "trade_id", "instrument", "side", "size",
		"entry_price", "stop_price", "take_price", "exit_price", "open_time", "close_time",
		"realized_pl", "r_multiple", "partials", "reason"}); err != nil {
		j.Close()
		return nil, err
	}
	if err := j.write(j.equity, []string{"run_id", "time", "balance", "equity", "open_positions"}); err != nil {
		j.Close()
		return nil, err
	}

	return j, nil
}

func (j *CSV) RecordTrade(t TradeRecord) error {
	return j.write(j.trades, []string{
		t.RunID,
		t.TradeID,
		t.Instrument,
		t.Side,
		f(t.Size),
		f(t.EntryPrice),
		f(t.StopPrice),
		f(t.TakePrice),
		f(t.ExitPrice),
		t.OpenTime.UTC().Format(time.RFC3339),
		t.CloseTime.UTC().Format(time.RFC3339),
		f(t.RealizedPL),
		f(t.RMultiple),
		strconv.Itoa(t.Partials),
		t.Reason,
	})
}

func (j *CSV) RecordEquity(e EquitySnapshot) error {
	return j.write(j.equity, []string{
		e.RunID,
		e.Time.UTC().Format(time.RFC3339),
		f(e.Balance),
		f(e.Equity),
		strconv.Itoa(e.OpenPositions),
	})
}

func (j *CSV) write(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSV) Close() error {
	j.trades.Flush()
	j.equity.Flush()

	var first error
	for _, err := range []error{j.trades.Error(), j.equity.Error(), j.tf.Close(), j.ef.Close()} {
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
