package backend

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"kharcha/internal/amqp"
	"kharcha/internal/config"
	"kharcha/internal/ledger/memory"
	"kharcha/internal/storage"
)

func TestCreateMemoryBackend(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok := res.Store.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", res.Store)
	}
	if res.Events != nil {
		t.Fatal("events must be disabled without an AMQP URL")
	}
	if err := res.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kharcha.db")
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer res.Cleanup()
	if _, ok := res.Store.(*storage.SQLiteRepository); !ok {
		t.Fatalf("expected sqlite store, got %T", res.Store)
	}
}

func TestUnreachableBroker(t *testing.T) {
	f := &DefaultFactory{
		logger: slog.Default(),
		dial: func(string, string, string) (*amqp.Client, error) {
			return nil, errors.New("connection refused")
		},
	}

	cfg := Config{Type: MemoryBackend, AMQPURL: "amqp://localhost/", AMQPExchange: "x", AMQPQueue: "q"}
	res, err := f.CreateBackend(context.Background(), cfg)
	if err != nil || res.Events != nil {
		t.Fatalf("optional broker should degrade to no events: %v", err)
	}

	cfg.RequireEvents = true
	if _, err := f.CreateBackend(context.Background(), cfg); err == nil {
		t.Fatal("required broker failure must be an error")
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("nil config must fail")
	}
	app := &config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", AMQPURL: "amqp://h/", AMQPExchange: "e", AMQPQueue: "q"}
	cfg, err := FromAppConfig(app)
	if err != nil || cfg.Type != SQLiteBackend || cfg.AMQPQueue != "q" {
		t.Fatalf("unexpected %+v %v", cfg, err)
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Fatal("unknown backend must fail")
	}
}
