package services

import (
	"bytes"
	"fmt"

	"github.com/extrame/xls"

	"estimatetracker/estimate"
)

// maxLegacyCells bounds how much of an .xls sheet is read.
const maxLegacyCells = 100000

// oleSignature starts every BIFF (.xls) compound document.
var oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// IsLegacyXLS reports whether data looks like an Excel 97-2003 file.
func IsLegacyXLS(data []byte) bool {
	return bytes.HasPrefix(data, oleSignature)
}

// DecodeLegacyXLS reads the first sheet of an .xls file through the same
// grid decoder as DecodeWorkbook. The layout is always detected since BIFF
// files carry no layout keyword.
func DecodeLegacyXLS(data []byte) (doc *estimate.Document, err error) {
	if !IsLegacyXLS(data) {
		return nil, ErrNotWorkbook
	}
	// The BIFF reader panics on some truncated files.
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("%w: %v", ErrNotWorkbook, r)
		}
	}()
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotWorkbook, err)
	}
	if wb.NumSheets() == 0 {
		return nil, fmt.Errorf("%w: no worksheet found", ErrNotWorkbook)
	}
	rows := wb.ReadAllCells(maxLegacyCells)
	sheet := ""
	if s := wb.GetSheet(0); s != nil {
		sheet = s.Name
		// ReadAllCells concatenates every sheet; keep the first one.
		if n := int(s.MaxRow) + 1; n < len(rows) {
			rows = rows[:n]
		}
	}
	return decodeGrid(rows, gridMeta{Sheet: sheet}), nil
}

// DecodeAny dispatches on the file signature.
func DecodeAny(data []byte) (*estimate.Document, error) {
	switch {
	case IsXLSX(data):
		return DecodeWorkbook(data)
	case IsLegacyXLS(data):
		return DecodeLegacyXLS(data)
	}
	return nil, ErrNotWorkbook
}
