package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"regexp"
	"time"

	"RegimeModel/internal/domain/errs"
	"RegimeModel/internal/domain/models"
	pkgch "RegimeModel/pkg/clickhouse"
	applogger "RegimeModel/pkg/logger"
)

var (
	ErrBarQuery = errs.DataSource("ERR_CLICKHOUSE_QUERY", "clickhouse bar query failed")
	ErrNoBars   = errs.DataSource("ERR_CLICKHOUSE_EMPTY", "no bars stored for range")
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// CHBarStore reads daily bars from a ClickHouse table.
type CHBarStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHBarStore(ch *pkgch.Client, table string, l *applogger.Logger) (*CHBarStore, error) {
	if !tableName.MatchString(table) {
		return nil, errs.Configurationf("ERR_CLICKHOUSE_TABLE", "invalid clickhouse table name %q", table)
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &CHBarStore{db: ch.DB(), table: table, l: l}, nil
}

func (s *CHBarStore) Name() string { return "clickhouse" }

// Schema returns the idempotent DDL for the bar table.
func (s *CHBarStore) Schema() []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            symbol    LowCardinality(String),
            date      Date,
            open      Nullable(Float64),
            high      Nullable(Float64),
            low       Nullable(Float64),
            close     Nullable(Float64),
            adj_close Nullable(Float64),
            volume    Nullable(Float64)
        ) ENGINE = ReplacingMergeTree
        ORDER BY (symbol, date)
    `, s.table)}
}

func (s *CHBarStore) GetBars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error) {
	start := time.Now()
	const qtpl = `
        SELECT date, open, high, low, close, adj_close, volume
        FROM %s
        WHERE symbol = ? AND date >= ? AND date <= ?
        ORDER BY date ASC
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.table), symbol, from, to)
	if err != nil {
		s.l.Error("clickhouse get_bars query error",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrBarQuery, err)
	}
	defer rows.Close()

	out := make([]models.Bar, 0, 512)
	for rows.Next() {
		var date time.Time
		var open, high, low, cls, adjClose, volume sql.NullFloat64
		if err := rows.Scan(&date, &open, &high, &low, &cls, &adjClose, &volume); err != nil {
			return nil, fmt.Errorf("%w: scan bar: %v", ErrBarQuery, err)
		}
		if !cls.Valid {
			continue
		}
		y, m, d := date.UTC().Date()
		out = append(out, models.Bar{
			Date:     time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
			Open:     nullable(open),
			High:     nullable(high),
			Low:      nullable(low),
			Close:    cls.Float64,
			AdjClose: nullable(adjClose),
			Volume:   nullable(volume),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", ErrBarQuery, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s in %s", ErrNoBars, symbol, s.table)
	}

	s.l.Info("clickhouse get_bars ok",
		applogger.String("table", s.table),
		applogger.String("symbol", symbol),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func nullable(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
