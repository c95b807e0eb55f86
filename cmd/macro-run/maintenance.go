package main

import (
	"fmt"
	"io"
	"sort"

	"jordanella.com/game-helper-go/internal/database"
)

// maintenance holds the run database flags. They run in a fixed order:
// backup, rollback, vacuum, info.
type maintenance struct {
	backup   string
	vacuum   bool
	info     bool
	rollback int
}

func (m maintenance) requested() bool {
	return m.backup != "" || m.vacuum || m.info || m.rollback > 0
}

func (m maintenance) apply(db *database.DB, out io.Writer) error {
	if m.backup != "" {
		if err := db.Backup(m.backup); err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}
		fmt.Fprintf(out, "Backed up %s to %s\n", db.Path(), m.backup)
	}
	if m.rollback > 0 {
		if err := db.RollbackTo(m.rollback); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		fmt.Fprintf(out, "Schema rolled back to version %d; the next start migrates it again\n", m.rollback)
	}
	if m.vacuum {
		if err := db.Vacuum(); err != nil {
			return fmt.Errorf("vacuum failed: %w", err)
		}
		fmt.Fprintln(out, "Database compacted")
	}
	if m.info {
		return printDBInfo(db, out)
	}
	return nil
}

func printDBInfo(db *database.DB, out io.Writer) error {
	version, err := db.GetVersion()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	stats, err := db.GetStats()
	if err != nil {
		return fmt.Errorf("failed to read table stats: %w", err)
	}

	fmt.Fprintf(out, "Database: %s\n", db.Path())
	fmt.Fprintf(out, "Schema:   version %d of %d\n", version, database.LatestVersion())
	tables := make([]string, 0, len(stats))
	for table := range stats {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	for _, table := range tables {
		fmt.Fprintf(out, "  %-16s %d rows\n", table, stats[table])
	}
	return nil
}
