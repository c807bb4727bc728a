// Package export содержит выгрузку записей в таблицу Excel.
package export

import (
	"fmt"
	"io"

	"project4869/internal/model"

	"github.com/xuri/excelize/v2"
)

// SheetName имя листа с записями
const SheetName = "Magnets"

// ContentType MIME тип файла выгрузки
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Headers заголовки столбцов выгрузки
var Headers = []string{
	"ID",
	"Episode",
	"Title",
	"Resolution",
	"Container",
	"Subtitle",
	"Source",
	"Publish date",
	"Raw label",
	"Link",
}

// columnWidths ширина столбцов в том же порядке, что и Headers
var columnWidths = []float64{8, 10, 32, 12, 11, 10, 10, 13, 40, 80}

// WriteXLSX записывает записи в w в формате xlsx: строка заголовков и строка на запись
func WriteXLSX(w io.Writer, records []model.Record) error {
	file := excelize.NewFile()
	defer file.Close()

	defaultSheet := file.GetSheetName(0)
	if err := file.SetSheetName(defaultSheet, SheetName); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	if err := writeHeader(file); err != nil {
		return err
	}

	for i, record := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to build cell name: %w", err)
		}
		if err := file.SetSheetRow(SheetName, cell, &[]interface{}{
			record.ID,
			record.Episode,
			record.EpisodeTitle,
			record.Resolution.String(),
			record.Container.String(),
			record.Subtitle,
			record.SourceType,
			record.PublishDate,
			record.RawLabel,
			record.Link,
		}); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(Headers))
	if err != nil {
		return fmt.Errorf("failed to build column name: %w", err)
	}
	if err := file.AutoFilter(SheetName, fmt.Sprintf("A1:%s%d", lastCol, len(records)+1), nil); err != nil {
		return fmt.Errorf("failed to set auto filter: %w", err)
	}

	if err := file.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

func writeHeader(file *excelize.File) error {
	header := make([]interface{}, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := file.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	style, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E0E0E0"},
			Pattern: 1,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(Headers))
	if err != nil {
		return fmt.Errorf("failed to build column name: %w", err)
	}
	if err := file.SetCellStyle(SheetName, "A1", lastCol+"1", style); err != nil {
		return fmt.Errorf("failed to apply header style: %w", err)
	}

	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to build column name: %w", err)
		}
		if err := file.SetColWidth(SheetName, col, col, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	return nil
}
