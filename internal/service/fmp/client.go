package fmp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"RegimeModel/internal/domain/errs"
	"RegimeModel/internal/domain/models"
	"RegimeModel/pkg/config"
	xhttp "RegimeModel/pkg/http"
	"RegimeModel/pkg/logger"
	"RegimeModel/pkg/util"
)

const eodPath = "/stable/historical-price-eod/full"

var (
	ErrTransport = errs.DataSource("ERR_FMP_TRANSPORT", "price request failed")
	ErrSchema    = errs.DataSource("ERR_FMP_SCHEMA", "unexpected price payload")
)

// Client fetches daily bars from the FinancialModelingPrep stable API.
type Client struct {
	baseURL string
	apiKey  string
	client  *xhttp.Client
	l       *logger.Logger
}

func NewClient(cfg *config.Config, l *logger.Logger, opts ...xhttp.ClientOption) *Client {
	if l == nil {
		l = logger.Nop()
	}
	base := []xhttp.ClientOption{
		xhttp.WithTimeout(cfg.FMP.Timeout),
		xhttp.WithRateLimit(cfg.FMP.RateLimit),
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.FMP.BaseURL, "/"),
		apiKey:  cfg.FMP.APIKey,
		client:  xhttp.NewClient(append(base, opts...)...),
		l:       l,
	}
}

func (c *Client) Name() string { return "fmp" }

// GetBars returns bars for symbol between from and to inclusive, sorted
// ascending. A failed request is not retried.
func (c *Client) GetBars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error) {
	url := c.baseURL + eodPath
	c.l.Debug("Requesting FMP history", logger.String("url", url), logger.String("symbol", symbol))

	var body []byte
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    url,
		QueryParams: map[string][]string{
			"symbol": {symbol},
			"from":   {util.FormatDate(from)},
			"to":     {util.FormatDate(to)},
			"apikey": {c.apiKey},
		},
	}, &body)
	if err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) {
			return nil, fmt.Errorf("%w: status %d: %s", ErrTransport, se.StatusCode, strings.TrimSpace(se.Body))
		}
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return ParseBars(body)
}

// ParseBars decodes an FMP history payload. The payload may be a bare
// list or an object carrying the list under "historical" or "data".
func ParseBars(payload []byte) ([]models.Bar, error) {
	records, err := extractRecords(payload)
	if err != nil {
		return nil, err
	}

	bars := make([]models.Bar, 0, len(records))
	sawDate := false
	for i, rec := range records {
		rawDate, ok := rec["date"]
		if !ok {
			continue
		}
		sawDate = true
		ds, _ := rawDate.(string)
		date, ok := util.ParseDate(ds)
		if !ok {
			return nil, fmt.Errorf("%w: record %d has unparseable date %v", ErrSchema, i, rawDate)
		}
		b := models.Bar{
			Date:     date,
			Open:     number(rec["open"]),
			High:     number(rec["high"]),
			Low:      number(rec["low"]),
			Close:    number(rec["close"]),
			AdjClose: number(rec["adjClose"]),
			Volume:   number(rec["volume"]),
		}
		if math.IsNaN(b.Close) {
			continue
		}
		bars = append(bars, b)
	}
	if !sawDate {
		return nil, fmt.Errorf("%w: no date field in %d records", ErrSchema, len(records))
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func extractRecords(payload []byte) ([]map[string]interface{}, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrSchema)
	}

	var records []map[string]interface{}
	switch payload[0] {
	case '[':
		if err := json.Unmarshal(payload, &records); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSchema, err)
		}
	case '{':
		var wrapped struct {
			Historical []map[string]interface{} `json:"historical"`
			Data       []map[string]interface{} `json:"data"`
		}
		if err := json.Unmarshal(payload, &wrapped); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSchema, err)
		}
		records = wrapped.Historical
		if len(records) == 0 {
			records = wrapped.Data
		}
	default:
		return nil, fmt.Errorf("%w: payload is neither a list nor an object", ErrSchema)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no price records", ErrSchema)
	}
	return records, nil
}

// number coerces a JSON value to float64; anything unparseable is NaN.
func number(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}
