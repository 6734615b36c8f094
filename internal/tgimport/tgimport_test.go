package tgimport

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"trunk-processor/internal/logger"
	"trunk-processor/internal/metadata"
)

type fakeUpserter struct {
	talkgroups []metadata.Talkgroup
	err        error
}

func (f *fakeUpserter) UpsertTalkgroup(tg metadata.Talkgroup) error {
	if f.err != nil {
		return f.err
	}
	f.talkgroups = append(f.talkgroups, tg)
	return nil
}

func writeSheet(t *testing.T, header []string, rows [][]string) string {
	t.Helper()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "talkgroups.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func TestImportRadioReferenceStyleSheet(t *testing.T) {
	path := writeSheet(t,
		[]string{"Decimal", "Alpha Tag", "Description", "Tag", "Category"},
		[][]string{
			{"100", "FD Disp", "Fire Dispatch", "Dispatch", "Fire"},
			{"200", "EMS Ops", "EMS Operations", "EMS Dispatch", "EMS"},
		})

	store := &fakeUpserter{}
	n, err := Import(path, store, logger.New())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, store.talkgroups, 2)
	assert.Equal(t, metadata.Talkgroup{
		ID:          100,
		Tag:         "FD Disp",
		Description: "Fire Dispatch",
		GroupTag:    "Dispatch",
		Group:       "Fire",
	}, store.talkgroups[0])
	assert.Equal(t, int32(200), store.talkgroups[1].ID)
}

func TestImportSkipsNonNumericRows(t *testing.T) {
	path := writeSheet(t,
		[]string{"Decimal", "Alpha Tag", "Description", "Tag", "Category"},
		[][]string{
			{"-- Fire Department --", "", "", "", ""},
			{"100", "FD Disp", "Fire Dispatch", "Dispatch", "Fire"},
		})

	store := &fakeUpserter{}
	n, err := Import(path, store, logger.New())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, store.talkgroups, 1)
	assert.Equal(t, int32(100), store.talkgroups[0].ID)
}

func TestImportNoIDColumnFails(t *testing.T) {
	path := writeSheet(t,
		[]string{"Name", "Notes"},
		[][]string{{"a", "b"}})

	_, err := Import(path, &fakeUpserter{}, logger.New())
	require.Error(t, err)
}

func TestImportMissingFileFails(t *testing.T) {
	_, err := Import(filepath.Join(t.TempDir(), "absent.xlsx"), &fakeUpserter{}, logger.New())
	require.Error(t, err)
}

func TestImportEmptySheetFails(t *testing.T) {
	path := writeSheet(t,
		[]string{"Decimal", "Alpha Tag", "Description", "Tag", "Category"},
		nil)

	_, err := Import(path, &fakeUpserter{}, logger.New())
	require.Error(t, err)
}
