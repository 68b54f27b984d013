package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/clinpath/logbook-api/internal/models"
)

// audit_replay verifies audit-trail integrity: for every logbook it folds
// the recorded actions from the initial draft state and compares the
// result against the stored status. Any mismatch means the trail and the
// aggregate diverged.

type logbookRow struct {
	ID     string               `db:"id"`
	Status models.LogbookStatus `db:"status"`
}

type mismatch struct {
	LogbookID string
	Stored    models.LogbookStatus
	Replayed  models.LogbookStatus
	Err       error
}

func main() {
	var (
		dsn     string
		timeout time.Duration
	)

	flag.StringVar(&dsn, "dsn", os.Getenv("DATABASE_URL"), "Postgres DSN")
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "overall timeout")
	flag.Parse()

	if dsn == "" {
		log.Fatal("a Postgres DSN is required (-dsn or DATABASE_URL)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer db.Close() //nolint:errcheck

	logbooks := []logbookRow{}
	if err := db.SelectContext(ctx, &logbooks, `SELECT id, status FROM logbooks ORDER BY created_at`); err != nil {
		log.Fatalf("failed to list logbooks: %v", err)
	}

	var mismatches []mismatch
	for _, lb := range logbooks {
		actions := []models.WorkflowAction{}
		if err := db.SelectContext(ctx, &actions,
			`SELECT action FROM logbook_audit WHERE logbook_id = $1 ORDER BY seq ASC`, lb.ID); err != nil {
			log.Fatalf("failed to load audit trail for %s: %v", lb.ID, err)
		}

		replayed, err := models.ReplayStatus(actions)
		if err != nil || replayed != lb.Status {
			mismatches = append(mismatches, mismatch{
				LogbookID: lb.ID,
				Stored:    lb.Status,
				Replayed:  replayed,
				Err:       err,
			})
		}
	}

	fmt.Printf("checked %d logbooks, %d mismatches\n", len(logbooks), len(mismatches))
	for _, m := range mismatches {
		if m.Err != nil {
			fmt.Printf("  %s: stored=%s replay error: %v\n", m.LogbookID, m.Stored, m.Err)
			continue
		}
		fmt.Printf("  %s: stored=%s replayed=%s\n", m.LogbookID, m.Stored, m.Replayed)
	}
	if len(mismatches) > 0 {
		os.Exit(1)
	}
}
