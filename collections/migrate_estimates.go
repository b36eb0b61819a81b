package collections

import (
	"fmt"
	"log"

	"github.com/pocketbase/pocketbase"

	"estimatetracker/estimate"
)

// MigrateEstimateFileNames fills file_name on estimates that have a stored
// workbook but were saved before file names were tracked. Safe to call on
// every startup -- returns early if nothing to migrate.
func MigrateEstimateFileNames(app *pocketbase.PocketBase) error {
	records, err := app.FindRecordsByFilter(
		"estimates",
		"file_path != '' && file_name = ''",
		"",
		0,
		0,
		nil,
	)
	if err != nil {
		return fmt.Errorf("migrate: could not query estimates: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	log.Printf("migrate: %d estimate(s) without a file name -- filling defaults...\n", len(records))

	for _, r := range records {
		r.Set("file_name", estimate.ParseType(r.GetString("type")).FileName(r.Id))
		if err := app.Save(r); err != nil {
			log.Printf("migrate: failed to set file name of estimate %s: %v\n", r.Id, err)
		}
	}
	return nil
}
