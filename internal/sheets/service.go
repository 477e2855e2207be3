// Package sheets appends analyzed listings to a Google Sheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
	"inmovc/internal/gcp"
	"inmovc/internal/logger"
	"inmovc/pkg/models"
)

// DefaultSheetName is the tab listings are appended to.
const DefaultSheetName = "Listings"

// ErrInvalidSheetURL is returned when no spreadsheet ID can be found in a URL.
var ErrInvalidSheetURL = errors.New("invalid Google Sheets URL format")

var spreadsheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// Headers are the column titles written to an empty sheet.
var Headers = []string{
	"ID", "File", "Status", "Uploaded", "Method", "Characters", "Pages",
	"Title", "Description PT", "Description EN", "Instagram",
	"Key Features", "Target Audience", "Call to Action", "Error", "Exported",
}

// Service handles Google Sheets operations
type Service struct {
	sheetsService *sheets.Service
	spreadsheetID string
	now           func() time.Time
	log           zerolog.Logger
}

// NewSheetsService authenticates with the service account from the
// environment and targets the spreadsheet in sheetURL.
func NewSheetsService(ctx context.Context, sheetURL string) (*Service, error) {
	const op = "NewSheetsService"

	creds, err := gcp.CredentialsJSON()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	config, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse credentials: %w", op, err)
	}

	return NewSheetsServiceWithOptions(ctx, sheetURL, option.WithHTTPClient(config.Client(ctx)))
}

// NewSheetsServiceWithOptions builds the service from explicit client options.
func NewSheetsServiceWithOptions(ctx context.Context, sheetURL string, opts ...option.ClientOption) (*Service, error) {
	const op = "NewSheetsService"

	log := logger.WithComponent("sheets")

	spreadsheetID, err := ExtractSpreadsheetID(sheetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log.Debug().Str("spreadsheet_id", spreadsheetID).Msg("Extracted spreadsheet ID")

	sheetsService, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create sheets service: %w", op, err)
	}

	return &Service{
		sheetsService: sheetsService,
		spreadsheetID: spreadsheetID,
		now:           time.Now,
		log:           log,
	}, nil
}

// ExtractSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL.
// A bare ID is accepted as is.
func ExtractSpreadsheetID(url string) (string, error) {
	if matches := spreadsheetIDPattern.FindStringSubmatch(url); len(matches) == 2 {
		return matches[1], nil
	}
	if url != "" && !strings.ContainsAny(url, "/:?#") {
		return url, nil
	}
	return "", ErrInvalidSheetURL
}

// AppendRecords writes one row per record to sheetName, adding the header
// row first when the sheet is new or empty.
func (s *Service) AppendRecords(ctx context.Context, sheetName string, records []*models.Record) error {
	const op = "AppendRecords"

	if sheetName == "" {
		sheetName = DefaultSheetName
	}

	s.log.Info().
		Str("sheet", sheetName).
		Int("rows", len(records)).
		Msg("Writing listings to Google Sheet")

	if err := s.ensureSheetWithHeaders(ctx, sheetName); err != nil {
		return fmt.Errorf("%s: failed to ensure sheet exists: %w", op, err)
	}

	exportedAt := s.now().Format(models.UploadTimeLayout)
	values := make([][]interface{}, 0, len(records))
	for _, r := range records {
		values = append(values, RecordRow(r, exportedAt))
	}

	_, err := s.sheetsService.Spreadsheets.Values.Append(
		s.spreadsheetID,
		sheetName+"!"+columnRange(),
		&sheets.ValueRange{Values: values},
	).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to append values to sheet: %w", op, err)
	}

	s.log.Info().Int("rows_written", len(values)).Msg("Successfully wrote listings to Google Sheet")
	return nil
}

// RecordRow flattens a record into the column order of Headers.
func RecordRow(r *models.Record, exportedAt string) []interface{} {
	row := make([]interface{}, len(Headers))
	for i := range row {
		row[i] = ""
	}

	row[0] = r.ID
	row[1] = r.Filename
	row[2] = string(r.Status)
	if !r.UploadTime.IsZero() {
		row[3] = r.UploadTime.Format(models.UploadTimeLayout)
	}
	if res := r.Results; res != nil {
		row[4] = res.Extraction.Method
		row[5] = res.Extraction.CharacterCount
		row[6] = res.Extraction.PageCount
		if a := res.Analysis; a != nil {
			row[7] = a.AnnouncementTitle
			row[8] = a.LongDescriptionPt
			row[9] = a.LongDescriptionEn
			row[10] = a.InstagramPost
			row[11] = strings.Join(a.KeyFeatures, "; ")
			row[12] = a.TargetAudience
			row[13] = a.CallToAction
		}
	}
	row[14] = r.Error
	row[15] = exportedAt
	return row
}

func (s *Service) ensureSheetWithHeaders(ctx context.Context, sheetName string) error {
	const op = "ensureSheetWithHeaders"

	spreadsheet, err := s.sheetsService.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to get spreadsheet: %w", op, err)
	}

	var sheetExists bool
	var sheetID int64
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == sheetName {
			sheetExists = true
			sheetID = sheet.Properties.SheetId
			break
		}
	}

	if !sheetExists {
		s.log.Info().Str("sheet", sheetName).Msg("Creating new sheet")

		resp, err := s.sheetsService.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{
				{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: sheetName}}},
			},
		}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("%s: failed to create sheet: %w", op, err)
		}
		if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil {
			sheetID = resp.Replies[0].AddSheet.Properties.SheetId
		}
	}

	headerRange := fmt.Sprintf("%s!A1:%s1", sheetName, lastColumn())
	resp, err := s.sheetsService.Spreadsheets.Values.Get(s.spreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to get headers: %w", op, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	s.log.Info().Str("sheet", sheetName).Msg("Adding headers to sheet")

	header := make([]interface{}, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	_, err = s.sheetsService.Spreadsheets.Values.Update(
		s.spreadsheetID,
		headerRange,
		&sheets.ValueRange{Values: [][]interface{}{header}},
	).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to add headers: %w", op, err)
	}

	if err := s.formatHeaders(ctx, sheetID); err != nil {
		s.log.Warn().Err(err).Msg("Failed to format headers, continuing anyway")
	}
	return nil
}

// formatHeaders makes the header row bold and resizes the columns.
func (s *Service) formatHeaders(ctx context.Context, sheetID int64) error {
	columns := int64(len(Headers))
	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   columns,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat:      &sheets.TextFormat{Bold: true},
						BackgroundColor: &sheets.Color{Red: 0.9, Green: 0.9, Blue: 0.9},
					},
				},
				Fields: "userEnteredFormat(textFormat,backgroundColor)",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   columns,
				},
			},
		},
	}

	_, err := s.sheetsService.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("formatHeaders: %w", err)
	}
	return nil
}

// lastColumn is the A1 letter of the final header column. Headers stays under 27 columns.
func lastColumn() string {
	return string(rune('A' + len(Headers) - 1))
}

func columnRange() string {
	return "A:" + lastColumn()
}
