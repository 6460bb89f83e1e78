package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"ordermgr/internal/config"
	"ordermgr/internal/db"
	apperrors "ordermgr/internal/errors"
	"ordermgr/internal/handler"
	"ordermgr/internal/logger"
	"ordermgr/internal/repository"
	"ordermgr/internal/service"
	"ordermgr/internal/validation"
)

const fetchTimeout = 30 * time.Second

func main() {
	file := flag.String("file", "", "path to a JSON array of orders")
	url := flag.String("url", "", "URL serving a JSON array of orders")
	flag.Parse()

	cfg := config.Load()
	log := logger.New(logger.Config{Env: cfg.Env, Level: cfg.LogLevel})

	if (*file == "") == (*url == "") {
		fmt.Fprintln(os.Stderr, "usage: seed -file orders.json | -url https://example.com/orders.json")
		os.Exit(2)
	}

	var (
		rows []handler.OrderRequest
		err  error
	)
	if *file != "" {
		log.Info().Str("file", *file).Msg("reading orders")
		rows, err = readFile(*file)
	} else {
		log.Info().Str("url", *url).Msg("fetching orders")
		rows, err = fetch(*url)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load orders")
	}
	log.Info().Int("count", len(rows)).Msg("orders loaded")

	gormDB, err := db.Open(cfg.DB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("database init")
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	orders := service.NewOrderService(repository.NewOrderRepository(gormDB))
	created, skipped, err := seedOrders(context.Background(), orders, rows, log)
	if err != nil {
		log.Fatal().Err(err).Int("created", created).Msg("seed aborted")
	}

	log.Info().
		Int("created", created).
		Int("skipped", skipped).
		Msg("seed completed")
}

func readFile(path string) ([]handler.OrderRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decode(f)
}

// fetch downloads order data from url.
func fetch(url string) ([]handler.OrderRequest, error) {
	client := &http.Client{Timeout: fetchTimeout}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote returned status code: %d", resp.StatusCode)
	}
	return decode(resp.Body)
}

func decode(r io.Reader) ([]handler.OrderRequest, error) {
	var rows []handler.OrderRequest
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return rows, nil
}

// seedOrders validates each row and creates the valid ones. Invalid rows are skipped;
// a storage failure stops the import.
func seedOrders(ctx context.Context, orders service.OrderService, rows []handler.OrderRequest, log zerolog.Logger) (created, skipped int, err error) {
	v := validation.New()
	for i := range rows {
		row := &rows[i]
		if err := v.Validate(row); err != nil {
			var verr *apperrors.ValidationError
			if errors.As(err, &verr) {
				log.Warn().Int("row", i).Interface("errors", verr.Fields).Msg("skipping invalid order")
				skipped++
				continue
			}
			return created, skipped, err
		}

		in, err := row.ToInput()
		if err != nil {
			log.Warn().Int("row", i).Err(err).Msg("skipping invalid order")
			skipped++
			continue
		}
		if _, err := orders.CreateOrder(ctx, in); err != nil {
			return created, skipped, fmt.Errorf("row %d: %w", i, err)
		}
		created++
	}
	return created, skipped, nil
}
