// Command fieldscout-mcp exposes a running fieldscout API to MCP clients
// over stdio.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/fieldscout/models"
)

func main() {
	apiURL := os.Getenv("FIELDSCOUT_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("FIELDSCOUT_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "FIELDSCOUT_API_KEY is required")
		os.Exit(1)
	}
	c := &apiClient{baseURL: strings.TrimRight(apiURL, "/"), apiKey: apiKey}

	s := server.NewMCPServer(
		"fieldscout",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	extractRecordsTool := mcp.NewTool("extract_records",
		mcp.WithDescription("Extract entity records (name, phone, email, address, sector, website, job title) from a directory or listing page. The prompt names the fields wanted. Uses a headless browser, OCR and optional detail-page crawling; can take several minutes."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The listing page to scrape"),
		),
		mcp.WithString("prompt",
			mcp.Required(),
			mcp.Description("The fields to extract in plain words, e.g. 'names, phones and emails'"),
		),
		mcp.WithNumber("max_pages",
			mcp.Description("Maximum detail pages to visit (omit for unlimited)"),
		),
		mcp.WithBoolean("crawl_detail",
			mcp.Description("Follow each entity's link to its detail page (default: false)"),
		),
		mcp.WithBoolean("validate_vision",
			mcp.Description("Keep only records whose names are visible on the rendered page (default: false)"),
		),
		mcp.WithBoolean("geocode",
			mcp.Description("Attach latitude and longitude to records with an address (default: false)"),
		),
	)
	s.AddTool(extractRecordsTool, handleExtractRecords(c))

	parseFieldsTool := mcp.NewTool("parse_fields",
		mcp.WithDescription("Show which fields a prompt resolves to without loading any page."),
		mcp.WithString("prompt",
			mcp.Required(),
			mcp.Description("The prompt to interpret"),
		),
	)
	s.AddTool(parseFieldsTool, handleParseFields(c))

	geocodeTool := mcp.NewTool("geocode_address",
		mcp.WithDescription("Look up the coordinates of a postal address."),
		mcp.WithString("address",
			mcp.Required(),
			mcp.Description("The address to geocode"),
		),
	)
	s.AddTool(geocodeTool, handleGeocode(c))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiClient calls the fieldscout HTTP API.
type apiClient struct {
	baseURL string
	apiKey  string
	http    http.Client
}

func (c *apiClient) do(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}

// poll fetches the job until it leaves the processing state or ctx ends.
func (c *apiClient) poll(ctx context.Context, id string) (*models.ScrapeStatusResponse, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		var status models.ScrapeStatusResponse
		if err := c.do(ctx, http.MethodGet, "/api/v1/scrape/"+id, nil, &status); err != nil {
			return nil, err
		}
		if status.Status != "" && status.Status != models.JobProcessing {
			return &status, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func errorText(fallback string, e *models.ErrorDetail) string {
	if e == nil {
		return fallback
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func handleExtractRecords(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}
		prompt, err := request.RequireString("prompt")
		if err != nil {
			return mcp.NewToolResultError("prompt is required"), nil
		}

		req := models.ScrapeRequest{
			URL:            url,
			Prompt:         prompt,
			CrawlDetail:    request.GetBool("crawl_detail", false),
			ValidateVision: request.GetBool("validate_vision", false),
			Geocode:        request.GetBool("geocode", false),
		}
		if _, ok := request.GetArguments()["max_pages"]; ok {
			n := request.GetInt("max_pages", 0)
			req.MaxPages = &n
		}

		var created models.ScrapeResponse
		if err := c.do(ctx, http.MethodPost, "/api/v1/scrape", req, &created); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("scrape request failed: %v", err)), nil
		}
		if !created.Success || created.ID == "" {
			return mcp.NewToolResultError(errorText("scrape job creation failed", created.Error)), nil
		}

		status, err := c.poll(ctx, created.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling scrape job failed: %v", err)), nil
		}
		if status.Status == models.JobFailed {
			return mcp.NewToolResultError(errorText("scrape failed", status.Error)), nil
		}

		return mcp.NewToolResultText(formatRecords(status)), nil
	}
}

// formatRecords renders a finished job as a short header and pretty JSON.
func formatRecords(s *models.ScrapeStatusResponse) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Fields: %s\n", strings.Join(s.Fields, ", "))
	fmt.Fprintf(&sb, "Records: %d (%d with contact, %d with location)\n", len(s.Records), len(s.Contact), len(s.Location))
	if s.VisionSkipped {
		sb.WriteString("Vision validation was skipped; records are unfiltered.\n")
	}
	sb.WriteString("\n")

	data, err := json.MarshalIndent(s.Records, "", "  ")
	if err != nil {
		fmt.Fprintf(&sb, "failed to encode records: %v", err)
		return sb.String()
	}
	sb.Write(data)
	return sb.String()
}

func handleParseFields(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		prompt, err := request.RequireString("prompt")
		if err != nil {
			return mcp.NewToolResultError("prompt is required"), nil
		}

		var resp struct {
			models.FieldsResponse
			Error *models.ErrorDetail `json:"error"`
		}
		if err := c.do(ctx, http.MethodPost, "/api/v1/fields", models.FieldsRequest{Prompt: prompt}, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("fields request failed: %v", err)), nil
		}
		if resp.Error != nil {
			return mcp.NewToolResultError(errorText("", resp.Error)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Fields: %s\n", strings.Join(resp.Fields, ", "))
		names := make([]string, 0, len(resp.Keywords))
		for name := range resp.Keywords {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&sb, "  %s <- %s\n", name, strings.Join(resp.Keywords[name], ", "))
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleGeocode(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		address, err := request.RequireString("address")
		if err != nil {
			return mcp.NewToolResultError("address is required"), nil
		}

		var resp models.GeocodeResponse
		if err := c.do(ctx, http.MethodPost, "/api/v1/geocode", models.GeocodeRequest{Address: address}, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("geocode request failed: %v", err)), nil
		}
		if !resp.Success {
			return mcp.NewToolResultError(errorText("geocoding failed", resp.Error)), nil
		}
		if !resp.Found {
			return mcp.NewToolResultText("No match for " + address), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("%s\nlatitude: %f\nlongitude: %f", address, resp.Latitude, resp.Longitude)), nil
	}
}
