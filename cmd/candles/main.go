package main

import (
	"bufio"
	"context"
	"flag"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/joripage/ftx-gateway/pkg/bus"
	"github.com/joripage/ftx-gateway/pkg/ftx"
	"github.com/joripage/ftx-gateway/pkg/gateway"
	"github.com/joripage/ftx-gateway/pkg/logging"
	"github.com/joripage/ftx-gateway/pkg/model"
)

// candles downloads public OHLCV bars and prints them as JSON lines.
func main() {
	var (
		symbol   string
		interval string
		start    string
		end      string
		restHost string
		timezone string
		logLevel string
	)
	flag.StringVar(&symbol, "symbol", "BTC-PERP", "market name")
	flag.StringVar(&interval, "interval", string(model.IntervalHour), "1m, 1h, d or w")
	flag.StringVar(&start, "start", "", "RFC3339 start time, defaults to one day ago")
	flag.StringVar(&end, "end", "", "RFC3339 end time, defaults to now")
	flag.StringVar(&restHost, "rest-host", ftx.DefaultRestHost, "REST host")
	flag.StringVar(&timezone, "timezone", ftx.DefaultTimezone, "timezone for bar timestamps")
	flag.StringVar(&logLevel, "log-level", "info", "log level")
	flag.Parse()

	logger := logging.NewLogger(logging.ParseLevel(logLevel))
	defer logger.Sync()
	ctx := context.Background()

	loc, err := ftx.LoadLocation(timezone)
	if err != nil {
		logger.Fatal(ctx, "load timezone failed", zap.Error(err))
	}

	req := &model.HistoryRequest{
		Symbol:   symbol,
		Exchange: model.ExchangeFTX,
		Interval: model.Interval(interval),
		End:      time.Now(),
	}
	req.Start = req.End.Add(-24 * time.Hour)
	if start != "" {
		if req.Start, err = time.Parse(time.RFC3339, start); err != nil {
			logger.Fatal(ctx, "bad start time", zap.Error(err))
		}
	}
	if end != "" {
		if req.End, err = time.Parse(time.RFC3339, end); err != nil {
			logger.Fatal(ctx, "bad end time", zap.Error(err))
		}
	}

	// candles are public, so no signer
	state := ftx.NewState(gateway.DefaultName, loc, logger.Zap())
	rest := ftx.NewRestConnector(&ftx.RestConfig{Host: restHost}, nil, state, &bus.Callbacks{}, logger)

	bars, err := rest.QueryHistory(ctx, req)
	if err != nil {
		logger.Fatal(ctx, "query history failed", zap.String("symbol", symbol), zap.Error(err))
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(out)
	for i := range bars {
		if err := enc.Encode(&bars[i]); err != nil {
			logger.Fatal(ctx, "write bar failed", zap.Error(err))
		}
	}
	logger.Info(ctx, "history downloaded", zap.String("symbol", symbol), zap.Int("bars", len(bars)))
}
