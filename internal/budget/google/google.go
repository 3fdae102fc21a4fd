package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"bilancio/internal/core"
	"bilancio/internal/services"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client reads weekly category budgets from a Google Sheet. The budget sheet
// holds category labels in column A and weekly amounts in euros in column B.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	budgetSheet   string
}

var _ services.BudgetReader = (*Client)(nil)

// NewFromEnv creates a Sheets budget reader using environment variables.
// Required: GOOGLE_SPREADSHEET_ID plus service account credentials via
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional: GOOGLE_BUDGET_SHEET_NAME (default "Budgets").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	budgetSheet := strings.TrimSpace(os.Getenv("GOOGLE_BUDGET_SHEET_NAME"))
	if budgetSheet == "" {
		budgetSheet = "Budgets"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		budgetSheet:   budgetSheet,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// WeeklyBudgetFor implements services.BudgetReader. Labels match
// case-insensitively; a category absent from the sheet has budget zero.
func (c *Client) WeeklyBudgetFor(ctx context.Context, label string) (core.Money, error) {
	if c.svc == nil {
		return core.Money{}, errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A2:B", c.budgetSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return core.Money{}, fmt.Errorf("%w: read %s: %w", core.ErrDataUnavailable, rng, err)
	}

	for _, row := range resp.Values {
		if len(row) < 2 {
			continue
		}
		name := strings.TrimSpace(fmt.Sprint(row[0]))
		if !strings.EqualFold(name, label) {
			continue
		}
		cents, err := parseEurosToCents(fmt.Sprint(row[1]))
		if err != nil {
			return core.Money{}, fmt.Errorf("budget for %q has invalid amount %q: %w", label, row[1], err)
		}
		return core.Money{Cents: cents}, nil
	}
	return core.Money{}, nil
}

// parseEurosToCents converts a sheet cell to cents, tolerating a leading
// euro sign. Exact decimal parsing avoids float rounding drift.
func parseEurosToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "€")
	return core.ParseDecimalToCents(s)
}
