package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/clinpath/logbook-api/internal/models"
)

const entryColumns = `id, trainee_id, week_start, section, activity, hours, entry_date, created_at, updated_at`

// EntryRepository reads and updates practice entries. It backs the
// EntryStore contract the workflow engine consumes; entry creation and
// deletion stay with the external entry editors.
type EntryRepository struct {
	db *sqlx.DB
}

// NewEntryRepository constructs the repository.
func NewEntryRepository(db *sqlx.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// SnapshotTotals aggregates per-section hours for a trainee's week.
func (r *EntryRepository) SnapshotTotals(ctx context.Context, traineeID string, weekStart time.Time) (models.SectionTotals, error) {
	const query = `SELECT section, COALESCE(SUM(hours), 0) AS hours, COUNT(*) AS entries
	FROM practice_entries
	WHERE trainee_id = $1 AND week_start = $2
	GROUP BY section`

	rows := []struct {
		Section models.EntrySection `db:"section"`
		Hours   float64             `db:"hours"`
		Entries int                 `db:"entries"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, traineeID, weekStart); err != nil {
		return models.SectionTotals{}, fmt.Errorf("snapshot section totals: %w", err)
	}

	totals := models.SectionTotals{}
	for _, row := range rows {
		section := models.SectionHours{WeeklyHours: row.Hours, EntryCount: row.Entries}
		switch row.Section {
		case models.SectionDirectClientContact:
			totals.SectionA = section
		case models.SectionProfessionalDevelopment:
			totals.SectionB = section
		case models.SectionSupervision:
			totals.SectionC = section
		}
	}
	return totals, nil
}

// CountForWeek returns the number of entries across all sections.
func (r *EntryRepository) CountForWeek(ctx context.Context, traineeID string, weekStart time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM practice_entries WHERE trainee_id = $1 AND week_start = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, traineeID, weekStart); err != nil {
		return 0, fmt.Errorf("count week entries: %w", err)
	}
	return count, nil
}

// GetByID fetches a practice entry.
func (r *EntryRepository) GetByID(ctx context.Context, id string) (*models.PracticeEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM practice_entries WHERE id = $1`, entryColumns)
	var entry models.PracticeEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Update adjusts the mutable columns of an entry.
func (r *EntryRepository) Update(ctx context.Context, id string, hours *float64, activity *string) error {
	setParts := []string{"updated_at = :updated_at"}
	namedArgs := map[string]interface{}{
		"id":         id,
		"updated_at": time.Now().UTC(),
	}
	if hours != nil {
		setParts = append(setParts, "hours = :hours")
		namedArgs["hours"] = *hours
	}
	if activity != nil {
		setParts = append(setParts, "activity = :activity")
		namedArgs["activity"] = *activity
	}

	query := fmt.Sprintf("UPDATE practice_entries SET %s WHERE id = :id", strings.Join(setParts, ", "))
	if _, err := r.db.NamedExecContext(ctx, query, namedArgs); err != nil {
		return fmt.Errorf("update practice entry: %w", err)
	}
	return nil
}
