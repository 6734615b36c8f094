// Package tgimport seeds talkgroup reference rows from a spreadsheet.
// Radio systems publish their talkgroup directories as xlsx exports; an
// optional import at startup gives calls their labels before the first
// upload arrives.
package tgimport

import (
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"trunk-processor/internal/apperror"
	"trunk-processor/internal/logger"
	"trunk-processor/internal/metadata"
)

// Upserter is the slice of the datastore this importer needs.
type Upserter interface {
	UpsertTalkgroup(tg metadata.Talkgroup) error
}

// Import reads the first sheet, auto-detects columns by header
// heuristics, and upserts one talkgroup per data row. Rows without a
// numeric talkgroup id are skipped quietly. Returns the number of rows
// imported.
func Import(path string, store Upserter, log *logger.Logger) (int, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return 0, apperror.Wrap(apperror.KindConfiguration, err, "opening talkgroup sheet %s", path)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return 0, apperror.New(apperror.KindConfiguration, "talkgroup sheet %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return 0, apperror.Wrap(apperror.KindConfiguration, err, "reading talkgroup sheet %s", path)
	}
	if len(rows) <= 1 {
		return 0, apperror.New(apperror.KindConfiguration, "talkgroup sheet %s has no data rows", path)
	}

	cols := detectColumns(rows[0])
	if cols.id == -1 {
		return 0, apperror.New(apperror.KindConfiguration,
			"talkgroup sheet %s has no recognizable talkgroup id column", path)
	}

	imported := 0
	for _, row := range rows[1:] {
		id, err := strconv.ParseInt(strings.TrimSpace(cell(row, cols.id)), 10, 32)
		if err != nil {
			// skip non-numeric rows quietly (section headers etc.)
			continue
		}

		tg := metadata.Talkgroup{
			ID:          int32(id),
			Tag:         cell(row, cols.tag),
			Description: cell(row, cols.description),
			GroupTag:    cell(row, cols.groupTag),
			Group:       cell(row, cols.group),
		}
		if err := store.UpsertTalkgroup(tg); err != nil {
			return imported, err
		}
		imported++
	}

	log.Module("tgimport").
		WithField("sheet", path).
		WithField("talkgroups", imported).
		Info("talkgroup reference data imported")
	return imported, nil
}

type columns struct {
	id, tag, description, groupTag, group int
}

// detectColumns matches headers against the shapes seen in
// radioreference-style exports ("Decimal", "Alpha Tag", "Description",
// "Tag", "Category") and plain ones ("talkgroup", "group tag", "group").
func detectColumns(header []string) columns {
	cols := columns{id: -1, tag: -1, description: -1, groupTag: -1, group: -1}
	for i, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(l, "decimal") || l == "talkgroup" || l == "tgid" || l == "id":
			if cols.id == -1 {
				cols.id = i
			}
		case strings.Contains(l, "alpha"):
			if cols.tag == -1 {
				cols.tag = i
			}
		case strings.Contains(l, "desc"):
			if cols.description == -1 {
				cols.description = i
			}
		case strings.Contains(l, "group tag") || l == "service tag":
			if cols.groupTag == -1 {
				cols.groupTag = i
			}
		case strings.Contains(l, "group") || strings.Contains(l, "category"):
			if cols.group == -1 {
				cols.group = i
			}
		case l == "tag":
			if cols.groupTag == -1 {
				cols.groupTag = i
			}
		}
	}
	return cols
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
