package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/apresai/storybook/internal/checkout"
	"github.com/apresai/storybook/internal/intake"
	"github.com/apresai/storybook/internal/observability"
	"github.com/apresai/storybook/internal/pipeline"
	"github.com/apresai/storybook/internal/story"
)

var tracer = observability.Tracer()

var intakeProperties = map[string]any{
	"child_name": map[string]any{
		"type":        "string",
		"description": "The child's first name; they are the story's hero",
	},
	"child_age": map[string]any{
		"type":        "string",
		"description": "The child's age, e.g. \"5\"",
	},
	"child_interest": map[string]any{
		"type":        "string",
		"description": "Something the child loves: dinosaurs, the ocean, trains",
	},
	"story_objective": map[string]any{
		"type":        "string",
		"description": "The lesson or theme of the story, e.g. sharing, bravery",
	},
	"your_name": map[string]any{
		"type":        "string",
		"description": "Author name printed on the cover",
	},
	"recipient_email": map[string]any{
		"type":        "string",
		"description": "Where the finished PDF is emailed",
	},
	"language": map[string]any{
		"type":        "string",
		"description": "Story language: en or zh",
		"default":     "en",
	},
	"page_length": map[string]any{
		"type":        "integer",
		"description": "Purchased book length: 4, 8 or 12 (omit for the free 3-scene book)",
	},
}

func withProperties(extra map[string]any) map[string]any {
	props := make(map[string]any, len(intakeProperties)+len(extra))
	for k, v := range intakeProperties {
		props[k] = v
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

// ToolDefs returns the MCP tool definitions.
func ToolDefs() []mcp.Tool {
	return []mcp.Tool{
		{
			Name:        "generate_storybook",
			Description: "Generate a personalized illustrated children's storybook PDF, with optional narration, and email it to the recipient. Runs to completion before returning (several minutes).",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: withProperties(map[string]any{
					"intake": map[string]any{
						"type":        "string",
						"description": "An intake token from encode_intake; replaces the individual fields",
					},
					"title": map[string]any{
						"type":        "string",
						"description": "Use this title instead of generating one",
					},
					"note": map[string]any{
						"type":        "string",
						"description": "Dedication printed on a closing page",
					},
					"skip_audio": map[string]any{
						"type":        "boolean",
						"description": "Do not narrate the story",
						"default":     false,
					},
					"skip_email": map[string]any{
						"type":        "boolean",
						"description": "Do not email the PDF",
						"default":     false,
					},
					"return_pdf": map[string]any{
						"type":        "boolean",
						"description": "Include the PDF as base64 in the result",
						"default":     false,
					},
				}),
			},
		},
		{
			Name:        "encode_intake",
			Description: "Encode storybook intake fields as an opaque URL-safe token that survives a payment redirect.",
			InputSchema: mcp.ToolInputSchema{
				Type:       "object",
				Properties: withProperties(nil),
				Required:   []string{"child_name", "recipient_email"},
			},
		},
		{
			Name:        "decode_intake",
			Description: "Decode an intake token back into its fields.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"token": map[string]any{
						"type":        "string",
						"description": "Token from encode_intake or a Download?intake= link",
					},
				},
				Required: []string{"token"},
			},
		},
		{
			Name:        "parse_scenes",
			Description: "Split story text into scenes. Blocks are separated by a line of ---; the last parenthesized text in a block is its illustration prompt.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"story_text": map[string]any{
						"type":        "string",
						"description": "Raw story text",
					},
				},
				Required: []string{"story_text"},
			},
		},
		{
			Name:        "payment_link",
			Description: "Build the checkout link for an intake token. After payment the buyer returns to the download page carrying the token.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"token": map[string]any{
						"type":        "string",
						"description": "Intake token from encode_intake; its page_length picks the price",
					},
				},
				Required: []string{"token"},
			},
		},
	}
}

// Handlers contains tool handler implementations.
type Handlers struct {
	runner   *Runner
	checkout CheckoutConfig
	log      *slog.Logger
}

// CheckoutConfig is what payment_link needs.
type CheckoutConfig struct {
	BaseURL string
	Links   checkout.Links
}

// NewHandlers creates tool handlers.
func NewHandlers(runner *Runner, co CheckoutConfig, logger *slog.Logger) *Handlers {
	return &Handlers{runner: runner, checkout: co, log: logger}
}

// HandleGenerateStorybook runs the pipeline synchronously.
func (h *Handlers) HandleGenerateStorybook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.generate_storybook")
	defer span.End()

	in, err := intakeFromRequest(req)
	if err != nil {
		span.SetStatus(codes.Error, "bad intake")
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := in.Validate(); err != nil {
		span.SetStatus(codes.Error, "invalid intake")
		return mcp.NewToolResultError(err.Error()), nil
	}

	span.SetAttributes(
		attribute.String("language", in.Lang()),
		attribute.Int("scenes", in.SceneCount()),
	)

	res, err := h.runner.Run(ctx, pipeline.Options{
		Intake:    in,
		Title:     mcp.ParseString(req, "title", ""),
		Note:      mcp.ParseString(req, "note", ""),
		SkipAudio: parseBoolParam(req, "skip_audio", false),
		SkipEmail: parseBoolParam(req, "skip_email", false),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		if errors.Is(err, ErrBusy) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("storybook generation failed: %v", err)), nil
	}

	span.SetAttributes(
		attribute.String("run_id", res.RunID),
		attribute.Int("pages", res.Pages),
		attribute.Bool("delivered", res.Delivered),
	)

	result := map[string]any{
		"run_id":    res.RunID,
		"title":     res.Title,
		"scenes":    len(res.Scenes),
		"pages":     res.Pages,
		"delivered": res.Delivered,
		"file_name": pipeline.PDFName(res.Title),
	}
	if res.AudioURL != "" {
		result["audio_url"] = res.AudioURL
	}
	if len(res.Warnings) > 0 {
		result["warnings"] = res.Warnings
	}
	if parseBoolParam(req, "return_pdf", false) {
		result["pdf_base64"] = base64.StdEncoding.EncodeToString(res.PDF)
	}
	return jsonResult(result)
}

// HandleEncodeIntake turns intake fields into a token.
func (h *Handlers) HandleEncodeIntake(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, span := tracer.Start(ctx, "tool.encode_intake")
	defer span.End()

	in := intakeFromFields(req)
	if err := in.Validate(); err != nil {
		span.SetStatus(codes.Error, "invalid intake")
		return mcp.NewToolResultError(err.Error()), nil
	}
	token, err := intake.Encode(in)
	if err != nil {
		span.RecordError(err)
		return mcp.NewToolResultError(fmt.Sprintf("encode intake: %v", err)), nil
	}

	result := map[string]any{
		"token":        token,
		"scenes":       in.SceneCount(),
		"download_url": checkout.DownloadURL(h.checkout.BaseURL, token),
	}
	if price := checkout.Price(in.PageLength); price != "" {
		result["price"] = price
	}
	return jsonResult(result)
}

// HandleDecodeIntake returns the fields of a token.
func (h *Handlers) HandleDecodeIntake(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, span := tracer.Start(ctx, "tool.decode_intake")
	defer span.End()

	token := mcp.ParseString(req, "token", "")
	if token == "" {
		span.SetStatus(codes.Error, "missing token")
		return mcp.NewToolResultError("token is required"), nil
	}
	in, err := intake.Decode(token)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(in)
}

// HandleParseScenes splits story text into scenes.
func (h *Handlers) HandleParseScenes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, span := tracer.Start(ctx, "tool.parse_scenes")
	defer span.End()

	text := mcp.ParseString(req, "story_text", "")
	scenes := story.ParseScenes(text)
	span.SetAttributes(attribute.Int("scenes", len(scenes)))

	return jsonResult(map[string]any{
		"scenes": scenes,
		"count":  len(scenes),
	})
}

// HandlePaymentLink builds the checkout URL for a token.
func (h *Handlers) HandlePaymentLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, span := tracer.Start(ctx, "tool.payment_link")
	defer span.End()

	token := mcp.ParseString(req, "token", "")
	in, err := intake.Decode(token)
	if err != nil {
		span.SetStatus(codes.Error, "decode failed")
		return mcp.NewToolResultError(err.Error()), nil
	}
	if in.PageLength == 0 {
		return jsonResult(map[string]any{
			"free":         true,
			"download_url": checkout.DownloadURL(h.checkout.BaseURL, token),
		})
	}

	link, err := checkout.PaymentURL(h.checkout.Links, in.PageLength, checkout.DownloadURL(h.checkout.BaseURL, token))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "no payment link")
		return mcp.NewToolResultError(err.Error()), nil
	}
	span.SetAttributes(attribute.Int("page_length", in.PageLength))
	return jsonResult(map[string]any{
		"payment_url": link,
		"price":       checkout.Price(in.PageLength),
	})
}

// intakeFromRequest prefers an intake token over individual fields.
func intakeFromRequest(req mcp.CallToolRequest) (intake.Intake, error) {
	if token := mcp.ParseString(req, "intake", ""); token != "" {
		return intake.Decode(token)
	}
	return intakeFromFields(req), nil
}

func intakeFromFields(req mcp.CallToolRequest) intake.Intake {
	return intake.Intake{
		ChildName:      mcp.ParseString(req, "child_name", ""),
		ChildAge:       mcp.ParseString(req, "child_age", ""),
		ChildInterest:  mcp.ParseString(req, "child_interest", ""),
		StoryObjective: mcp.ParseString(req, "story_objective", ""),
		AuthorName:     mcp.ParseString(req, "your_name", ""),
		RecipientEmail: mcp.ParseString(req, "recipient_email", ""),
		Language:       mcp.ParseString(req, "language", "en"),
		PageLength:     parseIntParam(req, "page_length", 0),
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func parseIntParam(req mcp.CallToolRequest, key string, defaultVal int) int {
	args := req.GetArguments()
	if args == nil {
		return defaultVal
	}
	raw, ok := args[key]
	if !ok {
		return defaultVal
	}
	switch v := raw.(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return defaultVal
	}
}

func parseBoolParam(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	if v, ok := req.GetArguments()[key].(bool); ok {
		return v
	}
	return defaultVal
}
