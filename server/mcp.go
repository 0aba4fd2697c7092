package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// NewMCPServer registers the five scraping tools on an MCP server
// backed by the service. Tool handlers never return protocol-level
// errors for bad input or failed scrapes — every outcome is a JSON
// record with an error field.
func NewMCPServer(svc *Service, version string) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer(
		"prowl",
		version,
		mcpserver.WithToolCapabilities(false),
	)

	scrapeSimpleTool := mcp.NewTool("scrape_simple",
		mcp.WithDescription("Simple web scraping without browser rendering. Uses fast HTTP requests with a Chrome TLS fingerprint. Best for static content and well-behaved websites."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL to scrape"),
		),
		mcp.WithString("selector",
			mcp.Description("Optional CSS selector for targeted extraction"),
		),
		mcp.WithString("extract",
			mcp.Description("What to extract: 'text' (default), 'html', or 'both'"),
			mcp.Enum("text", "html", "both"),
		),
		mcp.WithNumber("timeout",
			mcp.Description("Request timeout in milliseconds (default: 30000, range: 1000-300000)"),
		),
	)
	s.AddTool(scrapeSimpleTool, handleScrapeSimple(svc))

	scrapeStealthTool := mcp.NewTool("scrape_stealth",
		mcp.WithDescription("Stealth web scraping with configurable anti-detection. Renders the page in a hardened headless browser with fingerprint masking."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL to scrape"),
		),
		mcp.WithString("stealth_level",
			mcp.Description("Stealth level: 'minimal', 'standard' (default), or 'maximum'"),
			mcp.Enum("minimal", "standard", "maximum"),
		),
		mcp.WithBoolean("solve_challenge",
			mcp.Description("Attempt to wait out anti-bot challenges (default: false)"),
		),
		mcp.WithBoolean("network_idle",
			mcp.Description("Wait for network inactivity before returning (default: true)"),
		),
		mcp.WithBoolean("wait_for_dom",
			mcp.Description("Wait for DOM stability before returning (default: true)"),
		),
		mcp.WithNumber("timeout",
			mcp.Description("Request timeout in milliseconds (default: 30000, range: 1000-300000)"),
		),
		mcp.WithString("proxy",
			mcp.Description("Proxy URL for this request"),
		),
	)
	s.AddTool(scrapeStealthTool, handleScrapeStealth(svc))

	scrapeSessionTool := mcp.NewTool("scrape_session",
		mcp.WithDescription("Session-based scraping with persistent state. Maintains cookies across multiple requests for authenticated scraping or multi-step interactions."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL to scrape"),
		),
		mcp.WithString("session_id",
			mcp.Description("Session identifier for persistence (default: auto-generated)"),
		),
		mcp.WithObject("cookies",
			mcp.Description("Initial cookies to set (format: {\"name\": \"value\"})"),
		),
		mcp.WithString("stealth_level",
			mcp.Description("Stealth level: 'minimal', 'standard' (default), or 'maximum'"),
			mcp.Enum("minimal", "standard", "maximum"),
		),
	)
	s.AddTool(scrapeSessionTool, handleScrapeSession(svc))

	extractStructuredTool := mcp.NewTool("extract_structured",
		mcp.WithDescription("Extract structured data from a webpage using CSS selectors. Selector syntax: 'sel' (text), 'sel::html' (inner HTML), 'sel@attr' (attribute), 'sel@attr1@attr2' (multiple attributes)."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL to scrape"),
		),
		mcp.WithObject("selectors",
			mcp.Required(),
			mcp.Description("Map of names to CSS selectors, e.g. {\"title\": \"h1\", \"links\": \"a@href\"}"),
		),
		mcp.WithString("stealth_level",
			mcp.Description("Stealth level: 'minimal', 'standard' (default), or 'maximum'"),
			mcp.Enum("minimal", "standard", "maximum"),
		),
	)
	s.AddTool(extractStructuredTool, handleExtractStructured(svc))

	scrapeBatchTool := mcp.NewTool("scrape_batch",
		mcp.WithDescription("Scrape multiple URLs in sequence with a delay between requests. Handles partial failures gracefully: every URL gets a result slot."),
		mcp.WithArray("urls",
			mcp.Required(),
			mcp.Description("List of URLs to scrape (max 100)"),
		),
		mcp.WithString("stealth_level",
			mcp.Description("Stealth level: 'minimal', 'standard' (default), or 'maximum'"),
			mcp.Enum("minimal", "standard", "maximum"),
		),
		mcp.WithNumber("delay",
			mcp.Description("Delay between requests in seconds (default: 1.0)"),
		),
	)
	s.AddTool(scrapeBatchTool, handleScrapeBatch(svc))

	return s
}

// toolResult marshals a record into the tool's text payload.
func toolResult(v any) (*mcp.CallToolResult, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to serialize result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(body)), nil
}

// Argument coercion helpers. JSON numbers arrive as float64; wrong
// types surface as validation messages, not protocol faults.

func intArg(args map[string]any, key string, fallback int) (int, string) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return fallback, ""
	}
	f, ok := raw.(float64)
	if !ok {
		return 0, "Timeout must be an integer"
	}
	return int(f), ""
}

func floatArg(args map[string]any, key string, fallback float64) (float64, string) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return fallback, ""
	}
	f, ok := raw.(float64)
	if !ok {
		return 0, "Delay must be a number"
	}
	return f, ""
}

func boolArg(args map[string]any, key string, fallback bool) bool {
	if raw, ok := args[key]; ok {
		if b, ok := raw.(bool); ok {
			return b
		}
	}
	return fallback
}

// stringMapArg coerces an object argument into map[string]string.
// Non-string values are stringified; a non-object yields ok=false.
func stringMapArg(args map[string]any, key string) (map[string]string, bool) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, true
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}
	m := make(map[string]string, len(obj))
	for k, v := range obj {
		if s, ok := v.(string); ok {
			m[k] = s
		} else {
			m[k] = fmt.Sprintf("%v", v)
		}
	}
	return m, true
}

func handleScrapeSimple(svc *Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return toolResult(errorRecord("", "URL must be a string"))
		}

		args := request.GetArguments()
		timeoutMS, msg := intArg(args, "timeout", 30000)
		if msg != "" {
			return toolResult(errorRecord(url, msg))
		}

		record := svc.ScrapeSimple(ctx,
			url,
			request.GetString("selector", ""),
			request.GetString("extract", "text"),
			timeoutMS,
		)
		return toolResult(record)
	}
}

func handleScrapeStealth(svc *Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return toolResult(errorRecord("", "URL must be a string"))
		}

		args := request.GetArguments()
		timeoutMS, msg := intArg(args, "timeout", 30000)
		if msg != "" {
			return toolResult(errorRecord(url, msg))
		}

		record := svc.ScrapeStealth(ctx, url, StealthParams{
			Level:          request.GetString("stealth_level", "standard"),
			SolveChallenge: boolArg(args, "solve_challenge", false),
			NetworkIdle:    boolArg(args, "network_idle", true),
			WaitForDOM:     boolArg(args, "wait_for_dom", true),
			TimeoutMS:      timeoutMS,
			Proxy:          request.GetString("proxy", ""),
		})
		return toolResult(record)
	}
}

func handleScrapeSession(svc *Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return toolResult(errorRecord("", "URL must be a string"))
		}

		args := request.GetArguments()
		cookies, ok := stringMapArg(args, "cookies")
		if !ok {
			return toolResult(errorRecord(url, "Cookies must be an object of name/value strings"))
		}

		record := svc.ScrapeSession(ctx,
			url,
			request.GetString("session_id", ""),
			cookies,
			request.GetString("stealth_level", "standard"),
		)
		return toolResult(record)
	}
}

func handleExtractStructured(svc *Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return toolResult(errorRecord("", "URL must be a string"))
		}

		args := request.GetArguments()
		selectors, ok := stringMapArg(args, "selectors")
		if !ok || selectors == nil {
			return toolResult(errorRecord(url, "Selectors must be a dictionary"))
		}

		record := svc.ExtractStructured(ctx,
			url,
			selectors,
			request.GetString("stealth_level", "standard"),
		)
		return toolResult(record)
	}
}

func handleScrapeBatch(svc *Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		urls, err := request.RequireStringSlice("urls")
		if err != nil {
			return toolResult(errorRecord("", "URLs must be a list of strings"))
		}

		args := request.GetArguments()
		delay, msg := floatArg(args, "delay", 1.0)
		if msg != "" {
			return toolResult(errorRecord("", msg))
		}

		result := svc.ScrapeBatch(ctx,
			urls,
			request.GetString("stealth_level", "standard"),
			delay,
		)
		return toolResult(result)
	}
}
