package repository

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RegimeModel/internal/domain/errs"
	"RegimeModel/internal/domain/models"
	pkgch "RegimeModel/pkg/clickhouse"
	pkgkafka "RegimeModel/pkg/kafka"
)

func date(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func sampleBars() []models.Bar {
	b1 := models.Bar{Date: date("2020-01-02"), Open: 323.54, High: 324.89, Low: 322.53, Close: 324.87, AdjClose: 303.99, Volume: 59151200}
	b2 := models.NewBar(date("2020-01-03"), 322.41)
	b2.Volume = 77709700
	b3 := models.Bar{Date: date("2020-01-06"), Open: 320.49, High: 323.73, Low: 320.36, Close: 323.64, AdjClose: 1.0 / 3, Volume: 55653900}
	return []models.Bar{b1, b2, b3}
}

func assertSameBars(t *testing.T, want, got []models.Bar) {
	t.Helper()
	require.Len(t, got, len(want))
	same := func(a, b float64) bool { return a == b || (math.IsNaN(a) && math.IsNaN(b)) }
	for i := range want {
		assert.True(t, want[i].Date.Equal(got[i].Date), "row %d date", i)
		for _, pair := range [][2]float64{
			{want[i].Open, got[i].Open}, {want[i].High, got[i].High}, {want[i].Low, got[i].Low},
			{want[i].Close, got[i].Close}, {want[i].AdjClose, got[i].AdjClose}, {want[i].Volume, got[i].Volume},
		} {
			assert.True(t, same(pair[0], pair[1]), "row %d: %v != %v", i, pair[0], pair[1])
		}
	}
}

func TestCSVSeriesCache_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw", "nested", "SPY.csv")
	c := NewCSVSeriesCache(path)
	assert.False(t, c.Exists())

	bars := sampleBars()
	require.NoError(t, c.Save(bars))
	assert.True(t, c.Exists())

	got, err := c.Load()
	require.NoError(t, err)
	assertSameBars(t, bars, got)

	first, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, c.Save(got))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Regexp(t, `^Date,Open,High,Low,Close,Adj Close,Volume\n2020-01-02,`, string(first))
	assert.Contains(t, string(first), "2020-01-03,,,,322.41,,77709700\n")
}

func TestCSVSeriesCache_DecodeSortsAndDropsMissingClose(t *testing.T) {
	c := NewCSVSeriesCache("unused")
	got, err := c.Decode([]byte("Date,Close,Volume\n2020-01-06,3,\n2020-01-02,1,10\n2020-01-03,,5\n"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, date("2020-01-02"), got[0].Date)
	assert.Equal(t, 3.0, got[1].Close)
	assert.True(t, math.IsNaN(got[1].Volume))
	assert.True(t, math.IsNaN(got[0].Open))
}

func TestCSVSeriesCache_DecodeErrors(t *testing.T) {
	c := NewCSVSeriesCache("unused")
	for name, body := range map[string]string{
		"empty":    "",
		"no date":  "Close\n1\n",
		"no close": "Date,Open\n2020-01-02,1\n",
		"bad date": "Date,Close\nnot-a-date,1\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := c.Decode([]byte(body))
			assert.True(t, errors.Is(err, ErrCorruptCache), "got %v", err)
			assert.Equal(t, errs.KindDataSource, errs.KindOf(err))
		})
	}
}

func TestCHBarStore_GetBars(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store, err := NewCHBarStore(pkgch.NewClientFromDB(db), "daily_bars", nil)
	require.NoError(t, err)
	assert.Equal(t, "clickhouse", store.Name())

	from, to := date("2020-01-01"), date("2020-01-31")
	rows := sqlmock.NewRows([]string{"date", "open", "high", "low", "close", "adj_close", "volume"}).
		AddRow(date("2020-01-02"), 323.54, 324.89, 322.53, 324.87, nil, 59151200.0).
		AddRow(date("2020-01-03"), nil, nil, nil, nil, nil, nil).
		AddRow(date("2020-01-06"), 320.49, 323.73, 320.36, 323.64, 302.1, 55653900.0)
	mock.ExpectQuery(regexp.QuoteMeta("FROM daily_bars")).
		WithArgs("SPY", from, to).
		WillReturnRows(rows)

	bars, err := store.GetBars(context.Background(), "SPY", from, to)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 324.87, bars[0].Close)
	assert.True(t, math.IsNaN(bars[0].AdjClose))
	assert.Equal(t, 302.1, bars[1].AdjClose)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHBarStore_Failures(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store, err := NewCHBarStore(pkgch.NewClientFromDB(db), "regime.daily_bars", nil)
	require.NoError(t, err)
	assert.Contains(t, store.Schema()[0], "CREATE TABLE IF NOT EXISTS regime.daily_bars")

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection refused"))
	_, err = store.GetBars(context.Background(), "SPY", date("2020-01-01"), date("2020-01-02"))
	assert.True(t, errors.Is(err, ErrBarQuery))

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"date", "open", "high", "low", "close", "adj_close", "volume"}))
	_, err = store.GetBars(context.Background(), "SPY", date("2020-01-01"), date("2020-01-02"))
	assert.True(t, errors.Is(err, ErrNoBars))

	_, err = NewCHBarStore(pkgch.NewClientFromDB(db), "bars; DROP TABLE x", nil)
	assert.Equal(t, errs.KindConfiguration, errs.KindOf(err))
}

type captureWriter struct {
	msgs []kafka.Message
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func TestKafkaReportPublisher_NaNBecomesNull(t *testing.T) {
	w := &captureWriter{}
	pub := NewKafkaReportPublisher(pkgkafka.NewProducerWithWriter(w), "regime.reports")

	report := &models.PerformanceReport{
		RunID:   "run-1",
		Symbol:  "SPY",
		Samples: 4,
		Regimes: 2,
		Metrics: []models.Metric{
			{Name: models.MetricBenchmarkSharpe, Value: math.NaN()},
			{Name: models.MetricStrategyTotalReturn, Value: 0.0123},
		},
	}
	require.NoError(t, pub.PublishReport(context.Background(), report))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "regime.reports", w.msgs[0].Topic)
	assert.Equal(t, []byte("SPY"), w.msgs[0].Key)

	var decoded struct {
		RunID   string `json:"run_id"`
		Metrics []struct {
			Name  string   `json:"name"`
			Value *float64 `json:"value"`
		} `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	require.Len(t, decoded.Metrics, 2)
	assert.Nil(t, decoded.Metrics[0].Value)
	require.NotNil(t, decoded.Metrics[1].Value)
	assert.Equal(t, 0.0123, *decoded.Metrics[1].Value)
}
