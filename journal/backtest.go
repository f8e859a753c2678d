package journal

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"text/template"
	"time"
)

// BacktestRun mirrors the backtest_runs table.
type BacktestRun struct {
	RunID   string
	Created time.Time
	Dataset string

	Instrument string
	Strategy   string
	Config     []byte // yaml of the run configuration

	Start time.Time
	End   time.Time

	// Results
	Trades int
	Wins   int
	Losses int

	StartBalance float64
	EndBalance   float64

	// Derived
	NetPL        float64
	ReturnPct    float64
	WinRate      float64 // percent
	ProfitFactor float64
	MaxDDPct     float64

	OrgPath string
	Notes   []string
}

// RecordBacktest upserts the run summary.
func (j *SQLite) RecordBacktest(r BacktestRun) error {
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO backtest_runs
		(run_id, created, instrument, strategy, dataset, config, start_time, end_time,
		 trades, wins, losses, start_balance, end_balance, net_pl, return_pct, win_rate,
		 profit_factor, max_dd_pct, org_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created.UTC(), r.Instrument, r.Strategy, r.Dataset, r.Config,
		r.Start.UTC(), r.End.UTC(), r.Trades, r.Wins, r.Losses, r.StartBalance, r.EndBalance,
		r.NetPL, r.ReturnPct, r.WinRate, r.ProfitFactor, r.MaxDDPct, r.OrgPath,
	)
	return err
}

const runColumns = `run_id, created, instrument, strategy, dataset, config, start_time, end_time,
	trades, wins, losses, start_balance, end_balance, net_pl, return_pct, win_rate,
	profit_factor, max_dd_pct, org_path`

func scanRun(s scanner) (BacktestRun, error) {
	var r BacktestRun
	err := s.Scan(&r.RunID, &r.Created, &r.Instrument, &r.Strategy, &r.Dataset, &r.Config,
		&r.Start, &r.End, &r.Trades, &r.Wins, &r.Losses, &r.StartBalance, &r.EndBalance,
		&r.NetPL, &r.ReturnPct, &r.WinRate, &r.ProfitFactor, &r.MaxDDPct, &r.OrgPath)
	return r, err
}

func (j *SQLite) GetBacktestRun(runID string) (BacktestRun, error) {
	r, err := scanRun(j.db.QueryRow(`SELECT `+runColumns+` FROM backtest_runs WHERE run_id = ?`, runID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return BacktestRun{}, fmt.Errorf("backtest run %q not found", runID)
		}
		return BacktestRun{}, err
	}
	return r, nil
}

// ListBacktestRuns returns runs newest first.
func (j *SQLite) ListBacktestRuns() ([]BacktestRun, error) {
	rows, err := j.db.Query(`SELECT ` + runColumns + ` FROM backtest_runs ORDER BY created DESC, run_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BacktestRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

var backtestOrgFuncs = template.FuncMap{
	"pf": func(x float64) string {
		if math.IsInf(x, 1) {
			return "inf"
		}
		return fmt.Sprintf("%.2f", x)
	},
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var backtestOrg = template.Must(template.New("backtest").Funcs(backtestOrgFuncs).Parse(BacktestOrgTemplate))

// Org renders the run as an Org-mode document.
func (r *BacktestRun) Org() (string, error) {
	buf := new(bytes.Buffer)
	if err := backtestOrg.Execute(buf, r); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteOrg writes the Org-mode report to r.OrgPath.
func (r *BacktestRun) WriteOrg() error {
	if r.OrgPath == "" {
		return errors.New("backtest run: OrgPath is empty")
	}
	s, err := r.Org()
	if err != nil {
		return err
	}
	return os.WriteFile(r.OrgPath, []byte(s), 0644)
}

const BacktestOrgTemplate = `* BACKTEST: {{.Strategy}} {{.Instrument}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:STRATEGY:    {{.Strategy}}
:INSTRUMENT:  {{.Instrument}}
:DATASET:     {{if .Dataset}}{{.Dataset}}{{else}}(dataset?){{end}}
:START_DATE:  {{.Start.Format "2006-01-02"}}
:END_DATE:    {{.End.Format "2006-01-02"}}
:START_BAL:   {{printf "%.2f" .StartBalance}}
:END_BAL:     {{printf "%.2f" .EndBalance}}
:NET_PL:      {{printf "%.2f" .NetPL}}
:RETURN_PCT:  {{printf "%.2f" .ReturnPct}}
:MAX_DD_PCT:  {{printf "%.2f" .MaxDDPct}}
:TRADES:      {{.Trades}}
:WINS:        {{.Wins}}
:LOSSES:      {{.Losses}}
:WIN_RATE:    {{printf "%.2f" .WinRate}}
:PROFIT_FAC:  {{pf .ProfitFactor}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Configuration
#+begin_src yaml
{{printf "%s" .Config}}
#+end_src

** Performance Summary
- Net P/L:          *{{printf "%.2f" .NetPL}}*
- Return:           *{{printf "%.2f" .ReturnPct}}%*
- Max Drawdown:     *{{printf "%.2f" .MaxDDPct}}%*
- Win Rate:         *{{printf "%.2f" .WinRate}}%*
- Profit Factor:    *{{pf .ProfitFactor}}*

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Wins}} |
| Losses  | {{.Losses}} |
| Total   | {{.Trades}} |
{{- if .Notes }}

** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`
