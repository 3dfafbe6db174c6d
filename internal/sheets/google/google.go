// Package google mirrors the ledger into a Google Sheets spreadsheet.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"billtracker/internal/core"
	ports "billtracker/internal/sheets"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	DefaultBillsSheet   = "Bills"
	DefaultSummarySheet = "Summary"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	billsSheet    string
	summarySheet  string
}

var _ ports.LedgerMirror = (*Client)(nil)

// Config selects the spreadsheet and how to authenticate. Service account
// credentials win over an OAuth client plus token.
type Config struct {
	SpreadsheetID   string
	BillsSheet      string
	SummarySheet    string
	CredentialsJSON string
	CredentialsFile string
	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenFile  string
}

// ConfigFromEnv reads the GOOGLE_* variables. GOOGLE_APPLICATION_CREDENTIALS
// is honoured when no explicit credentials file is set.
func ConfigFromEnv() Config {
	cfg := Config{
		SpreadsheetID:   strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		BillsSheet:      strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME")),
		SummarySheet:    strings.TrimSpace(os.Getenv("GOOGLE_SUMMARY_SHEET_NAME")),
		CredentialsJSON: strings.TrimSpace(os.Getenv("GOOGLE_CREDENTIALS_JSON")),
		CredentialsFile: strings.TrimSpace(os.Getenv("GOOGLE_CREDENTIALS_FILE")),
		OAuthClientJSON: strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_JSON")),
		OAuthClientFile: strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_FILE")),
		OAuthTokenFile:  strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_FILE")),
	}
	if cfg.CredentialsFile == "" {
		cfg.CredentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	return cfg
}

// NewFromEnv creates a Sheets mirror from environment variables.
func NewFromEnv(ctx context.Context) (*Client, error) {
	return New(ctx, ConfigFromEnv())
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	opts, err := clientOptions(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.BillsSheet, cfg.SummarySheet), nil
}

// NewWithService wraps an existing service. Empty sheet names use the defaults.
func NewWithService(svc *gsheet.Service, spreadsheetID, billsSheet, summarySheet string) *Client {
	if billsSheet == "" {
		billsSheet = DefaultBillsSheet
	}
	if summarySheet == "" {
		summarySheet = DefaultSummarySheet
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		billsSheet:    billsSheet,
		summarySheet:  summarySheet,
	}
}

func clientOptions(ctx context.Context, cfg Config) ([]goption.ClientOption, error) {
	switch {
	case cfg.CredentialsJSON != "":
		slog.InfoContext(ctx, "Using inline service account credentials", "component", "sheets")
		return []goption.ClientOption{
			goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON)),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}, nil
	case cfg.CredentialsFile != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Using service account credentials file",
			"component", "sheets", "path", cfg.CredentialsFile)
		return []goption.ClientOption{
			goption.WithCredentialsJSON(b),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}, nil
	case cfg.OAuthClientJSON != "" || cfg.OAuthClientFile != "":
		httpClient, err := oauthClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "Using OAuth user credentials", "component", "sheets")
		return []goption.ClientOption{goption.WithHTTPClient(httpClient)}, nil
	default:
		return nil, errors.New("missing credentials (set GOOGLE_CREDENTIALS_JSON, GOOGLE_CREDENTIALS_FILE or GOOGLE_OAUTH_CLIENT_JSON with GOOGLE_OAUTH_TOKEN_FILE)")
	}
}

// oauthClient builds a token-refreshing client from the OAuth client
// secret and the token written by oauth-init.
func oauthClient(ctx context.Context, cfg Config) (*http.Client, error) {
	secret := []byte(cfg.OAuthClientJSON)
	if len(secret) == 0 {
		b, err := os.ReadFile(cfg.OAuthClientFile)
		if err != nil {
			return nil, fmt.Errorf("read oauth client file: %w", err)
		}
		secret = b
	}
	oc, err := goauth.ConfigFromJSON(secret, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}

	tokenFile := cfg.OAuthTokenFile
	if tokenFile == "" {
		tokenFile = "token.json"
	}
	b, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("decode oauth token: %w", err)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	return oc.Client(ctx, &tok), nil
}

// newHTTPClientWithPooling creates an HTTP client for the Sheets API with
// connection pooling and bounded timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// MirrorBills replaces the bills sheet with the header and one row per bill.
func (c *Client) MirrorBills(ctx context.Context, bills []core.Bill) error {
	return c.replace(ctx, c.billsSheet, "A:E", ports.BillRows(bills))
}

func (c *Client) MirrorSummary(ctx context.Context, s core.Summary, outstanding core.Money) error {
	return c.replace(ctx, c.summarySheet, "A:B", ports.SummaryRows(s, outstanding))
}

// replace clears cols of sheet and writes rows from A1. Values are sent
// USER_ENTERED so amounts and dates become numbers and dates in the sheet.
func (c *Client) replace(ctx context.Context, sheet, cols string, rows [][]string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	clearRange := fmt.Sprintf("%s!%s", sheet, cols)
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", clearRange, err)
	}

	values := make([][]any, len(rows))
	for i, r := range rows {
		row := make([]any, len(r))
		for j, v := range r {
			row[j] = v
		}
		values[i] = row
	}
	writeRange := fmt.Sprintf("%s!A1", sheet)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, writeRange, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", writeRange, err)
	}

	slog.DebugContext(ctx, "Mirrored rows to Google Sheets",
		"component", "sheets", "sheet", sheet, "rows", len(rows))
	return nil
}
