package repository

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"RegimeModel/internal/domain/errs"
	"RegimeModel/internal/domain/models"
	"RegimeModel/pkg/util"
)

var csvHeader = []string{"Date", "Open", "High", "Low", "Close", "Adj Close", "Volume"}

var ErrCorruptCache = errs.DataSource("ERR_CACHE_CORRUPT", "unreadable price cache")

// CSVSeriesCache stores bars as a date-indexed CSV file.
type CSVSeriesCache struct {
	path string
}

func NewCSVSeriesCache(path string) *CSVSeriesCache {
	return &CSVSeriesCache{path: path}
}

func (c *CSVSeriesCache) Path() string { return c.path }

func (c *CSVSeriesCache) Exists() bool {
	st, err := os.Stat(c.path)
	return err == nil && !st.IsDir()
}

func (c *CSVSeriesCache) Load() ([]models.Bar, error) {
	b, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("read cache %s: %w", c.path, err)
	}
	return c.Decode(b)
}

// Save writes bars to the cache path, creating parent directories.
func (c *CSVSeriesCache) Save(bars []models.Bar) error {
	b, err := c.Encode(bars)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(c.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return os.Rename(tmp, c.path)
}

// Encode renders bars as CSV. Missing values are written as empty fields.
func (c *CSVSeriesCache) Encode(bars []models.Bar) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, b := range bars {
		rec := []string{
			util.FormatDate(b.Date),
			formatFloat(b.Open),
			formatFloat(b.High),
			formatFloat(b.Low),
			formatFloat(b.Close),
			formatFloat(b.AdjClose),
			formatFloat(b.Volume),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode cache: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses CSV by header name, drops rows without a close and sorts
// ascending by date.
func (c *CSVSeriesCache) Decode(b []byte) ([]models.Bar, error) {
	r := csv.NewReader(bytes.NewReader(b))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrCorruptCache, err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	dateCol, ok := idx["Date"]
	if !ok {
		return nil, fmt.Errorf("%w: no Date column", ErrCorruptCache)
	}
	if _, ok := idx["Close"]; !ok {
		return nil, fmt.Errorf("%w: no Close column", ErrCorruptCache)
	}
	field := func(rec []string, name string) float64 {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return math.NaN()
		}
		return parseFloat(rec[i])
	}

	var bars []models.Bar
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrCorruptCache, line, err)
		}
		if dateCol >= len(rec) {
			return nil, fmt.Errorf("%w: line %d is short", ErrCorruptCache, line)
		}
		date, ok := util.ParseDate(rec[dateCol])
		if !ok {
			return nil, fmt.Errorf("%w: line %d has bad date %q", ErrCorruptCache, line, rec[dateCol])
		}
		bar := models.Bar{
			Date:     date,
			Open:     field(rec, "Open"),
			High:     field(rec, "High"),
			Low:      field(rec, "Low"),
			Close:    field(rec, "Close"),
			AdjClose: field(rec, "Adj Close"),
			Volume:   field(rec, "Volume"),
		}
		if math.IsNaN(bar.Close) {
			continue
		}
		bars = append(bars, bar)
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
