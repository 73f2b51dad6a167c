package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"

	"github.com/okian/powerwatch/internal/adapters/repository/sqlite/migrations"
	"github.com/okian/powerwatch/pkg/logger"
)

// goose keeps its dialect, FS and logger in package globals.
var gooseMu sync.Mutex

// gooseLogger adapts logger.Logger to goose.Logger.
type gooseLogger struct {
	ctx context.Context
	log logger.Logger
}

func (l *gooseLogger) Fatalf(format string, v ...any) {
	l.log.Error(l.ctx, strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l *gooseLogger) Printf(format string, v ...any) {
	l.log.Debug(l.ctx, strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func migrate(ctx context.Context, db *sql.DB, log logger.Logger) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if log != nil {
		goose.SetLogger(&gooseLogger{ctx: ctx, log: log})
	} else {
		goose.SetLogger(goose.NopLogger())
	}
	goose.SetBaseFS(migrations.FS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
