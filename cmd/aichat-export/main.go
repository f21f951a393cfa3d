// Command aichat-export writes the stored chat history to a JSON file in
// the configured export directory and prints the resulting path.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	sqliteadapter "github.com/dshestakov/aichat/internal/adapter/driven/sqlite"
	"github.com/dshestakov/aichat/internal/application"
	"github.com/dshestakov/aichat/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("export failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}

	exporter := application.NewExporter(sqliteadapter.NewMessageRepo(db), cfg.ExportDir)
	path, err := exporter.Export(context.Background())
	if err != nil {
		return err
	}

	fmt.Println(path)
	return nil
}
