// Package sheets is the Google Sheets implementation of the ledger sheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"ledgerbot/pkg/platform/sentinel"
)

const lastColumn = "K"

type Sheet struct {
	values        *gsheets.SpreadsheetsValuesService
	spreadsheetID string
	sheetName     string
}

// New authenticates with a service-account credential file. A missing or
// unreadable file is a configuration error.
func New(ctx context.Context, credentialsFile, spreadsheetID, sheetName string, opts ...option.ClientOption) (*Sheet, error) {
	opts = append([]option.ClientOption{
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gsheets.SpreadsheetsScope),
	}, opts...)
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w: %w", sentinel.ErrMisconfigured, err)
	}
	return NewWithService(svc, spreadsheetID, sheetName), nil
}

func NewWithService(svc *gsheets.Service, spreadsheetID, sheetName string) *Sheet {
	return &Sheet{
		values:        svc.Spreadsheets.Values,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}
}

// AppendRow adds row after the last filled row. Values are parsed as if typed
// into the sheet so amounts and dates keep their types.
func (s *Sheet) AppendRow(ctx context.Context, row []string) error {
	cells := make([]any, len(row))
	for i, v := range row {
		cells[i] = v
	}
	_, err := s.values.Append(s.spreadsheetID, s.rangeOf("A:"+lastColumn), &gsheets.ValueRange{
		Values: [][]any{cells},
	}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return classify("append row", err)
}

// ReadCells returns the formatted value of each cell, "" for empty cells.
func (s *Sheet) ReadCells(ctx context.Context, cells []string) ([]string, error) {
	ranges := make([]string, len(cells))
	for i, c := range cells {
		ranges[i] = s.rangeOf(c)
	}
	resp, err := s.values.BatchGet(s.spreadsheetID).Ranges(ranges...).Context(ctx).Do()
	if err != nil {
		return nil, classify("read cells", err)
	}
	out := make([]string, len(cells))
	for i, vr := range resp.ValueRanges {
		if i >= len(out) || vr == nil || len(vr.Values) == 0 || len(vr.Values[0]) == 0 {
			continue
		}
		out[i] = fmt.Sprint(vr.Values[0][0])
	}
	return out, nil
}

func (s *Sheet) ReadAll(ctx context.Context) ([][]string, error) {
	resp, err := s.values.Get(s.spreadsheetID, quoteSheet(s.sheetName)).Context(ctx).Do()
	if err != nil {
		return nil, classify("read sheet", err)
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		out[i] = make([]string, len(row))
		for j, v := range row {
			out[i][j] = fmt.Sprint(v)
		}
	}
	return out, nil
}

func (s *Sheet) rangeOf(a1 string) string {
	return quoteSheet(s.sheetName) + "!" + a1
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// classify maps API failures onto sentinel facts. Auth, permission and
// addressing problems will not fix themselves; everything else may.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return fmt.Errorf("%s: %w: %w", op, sentinel.ErrMisconfigured, err)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
}
