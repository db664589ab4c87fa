// ABOUTME: Report MCP tool handlers
// ABOUTME: Implements submit_report, list_choices, and probe_endpoints tools
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/iTRMAutomation/mlc-village-recon-tool/models"
	"github.com/iTRMAutomation/mlc-village-recon-tool/submit"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ReportService is the submission core as seen by the tools.
type ReportService interface {
	Submit(ctx context.Context, report *models.Report, trace *submit.Trace) (*submit.Result, error)
	Choices(ctx context.Context) (map[string][]string, error)
	Probe(ctx context.Context) []submit.ProbeResult
}

type ReportHandlers struct {
	svc ReportService
}

func NewReportHandlers(svc ReportService) *ReportHandlers {
	return &ReportHandlers{svc: svc}
}

// Register adds the report tools to server.
func (h *ReportHandlers) Register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "submit_report",
		Description: "Submit a field report with photos as one new list item; photos are uploaded to the configured document library",
	}, h.SubmitReport)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_choices",
		Description: "List the configured choices for the category and location fields",
	}, h.ListChoices)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "probe_endpoints",
		Description: "Check that the Graph and sign-in endpoints are reachable from this machine",
	}, h.ProbeEndpoints)
}

type SubmitReportInput struct {
	Title      string   `json:"title" jsonschema:"Report title (required)"`
	Category   string   `json:"category,omitempty" jsonschema:"Report category; see list_choices"`
	Location   string   `json:"location,omitempty" jsonschema:"Location tag such as the village name; see list_choices"`
	Notes      string   `json:"notes,omitempty" jsonschema:"Free-text notes"`
	CapturedOn string   `json:"captured_on,omitempty" jsonschema:"Local capture time YYYY-MM-DDTHH:MM in the operational time zone; defaults to now"`
	PhotoPaths []string `json:"photo_paths" jsonschema:"Paths of photo files on this machine (at least one)"`
}

type SubmitReportOutput struct {
	SubmissionID string   `json:"submission_id"`
	ItemID       string   `json:"item_id"`
	WebURL       string   `json:"web_url,omitempty"`
	PhotoURLs    []string `json:"photo_urls"`
	Warnings     []string `json:"warnings,omitempty"`
	Trace        []string `json:"trace"`
}

func (h *ReportHandlers) SubmitReport(ctx context.Context, _ *mcp.CallToolRequest, input SubmitReportInput) (*mcp.CallToolResult, SubmitReportOutput, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, SubmitReportOutput{}, fmt.Errorf("title is required")
	}
	if len(input.PhotoPaths) == 0 {
		return nil, SubmitReportOutput{}, fmt.Errorf("at least one photo path is required")
	}

	report := &models.Report{
		Title:      input.Title,
		Category:   input.Category,
		Location:   input.Location,
		Notes:      input.Notes,
		CapturedOn: input.CapturedOn,
	}
	for _, path := range input.PhotoPaths {
		photo, err := models.LoadPhoto(path)
		if err != nil {
			return nil, SubmitReportOutput{}, err
		}
		report.Photos = append(report.Photos, photo)
	}

	trace := submit.NewTrace(nil, nil)
	result, err := h.svc.Submit(ctx, report, trace)
	if err != nil {
		return nil, SubmitReportOutput{}, fmt.Errorf("failed to submit report: %w\n%s", err, strings.Join(traceLines(trace), "\n"))
	}

	output := SubmitReportOutput{
		SubmissionID: result.SubmissionID,
		ItemID:       result.ItemID,
		WebURL:       result.WebURL,
		Warnings:     result.Warnings,
		Trace:        traceLines(trace),
	}
	for _, p := range result.Photos {
		output.PhotoURLs = append(output.PhotoURLs, p.URL)
	}

	return nil, output, nil
}

type ListChoicesInput struct{}

type ListChoicesOutput struct {
	Choices map[string][]string `json:"choices"`
}

func (h *ReportHandlers) ListChoices(ctx context.Context, _ *mcp.CallToolRequest, _ ListChoicesInput) (*mcp.CallToolResult, ListChoicesOutput, error) {
	choices, err := h.svc.Choices(ctx)
	if err != nil {
		return nil, ListChoicesOutput{}, fmt.Errorf("failed to load choices: %w", err)
	}
	return nil, ListChoicesOutput{Choices: choices}, nil
}

type ProbeEndpointsInput struct{}

type ProbeOutput struct {
	Name      string `json:"name"`
	Endpoint  string `json:"endpoint"`
	Reachable bool   `json:"reachable"`
	Status    int    `json:"status,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
	Error     string `json:"error,omitempty"`
}

type ProbeEndpointsOutput struct {
	Probes []ProbeOutput `json:"probes"`
}

func (h *ReportHandlers) ProbeEndpoints(ctx context.Context, _ *mcp.CallToolRequest, _ ProbeEndpointsInput) (*mcp.CallToolResult, ProbeEndpointsOutput, error) {
	var output ProbeEndpointsOutput
	for _, p := range h.svc.Probe(ctx) {
		output.Probes = append(output.Probes, ProbeOutput{
			Name:      p.Name,
			Endpoint:  p.Endpoint,
			Reachable: p.Reachable,
			Status:    p.Status,
			ElapsedMS: p.Elapsed.Milliseconds(),
			Error:     p.Error,
		})
	}
	return nil, output, nil
}

func traceLines(trace *submit.Trace) []string {
	entries := trace.Entries()
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.String())
	}
	return lines
}
