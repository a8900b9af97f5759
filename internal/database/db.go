package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// DB is the sqlite device store holding the paired session keys.
type DB struct {
	container *sqlstore.Container
	path      string
}

func New(ctx context.Context, dbPath string, log waLog.Logger) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("error creating database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=10000", dbPath)
	container, err := sqlstore.New(ctx, "sqlite3", dsn, log)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	return &DB{container: container, path: dbPath}, nil
}

func (d *DB) Path() string {
	return d.path
}

// Device returns the stored device, or a fresh unpaired one when the store is
// empty.
func (d *DB) Device(ctx context.Context) (*store.Device, error) {
	device, err := d.container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading device: %w", err)
	}
	return device, nil
}

func (d *DB) Close() error {
	return d.container.Close()
}
