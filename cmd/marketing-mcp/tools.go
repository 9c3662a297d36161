package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-marketing-designer/internal/cli"
	"github.com/fpang/ai-marketing-designer/internal/export"
	"github.com/fpang/ai-marketing-designer/internal/imageprep"
	"github.com/fpang/ai-marketing-designer/internal/marketing"
	"github.com/fpang/ai-marketing-designer/internal/naming"
	"github.com/fpang/ai-marketing-designer/internal/report"
	"github.com/fpang/ai-marketing-designer/internal/session"
)

// AnalyzeArgs are the inputs of analyze_product.
type AnalyzeArgs struct {
	PhotoPath    string `json:"photo_path" jsonschema:"Absolute path of the product photo (JPEG, PNG, WebP, GIF or HEIC)"`
	ProductName  string `json:"product_name,omitempty" jsonschema:"Product name, up to 100 characters"`
	BrandContext string `json:"brand_context,omitempty" jsonschema:"Brand voice, audience or positioning notes"`
}

// SelectRouteArgs are the inputs of select_route.
type SelectRouteArgs struct {
	Index int `json:"index" jsonschema:"0-based index into marketing_routes"`
}

// PlanArgs are the inputs of generate_content_plan.
type PlanArgs struct {
	ReferenceCopy string `json:"reference_copy,omitempty" jsonschema:"Competitor or reference copy to differentiate from"`
}

// UpdateItemArgs are the inputs of update_item.
type UpdateItemArgs struct {
	ItemID        string  `json:"item_id" jsonschema:"Content item ID, e.g. img_3_hook"`
	Title         *string `json:"title,omitempty" jsonschema:"New headline"`
	Copy          *string `json:"copy,omitempty" jsonschema:"New body copy"`
	VisualPrompt  *string `json:"visual_prompt,omitempty" jsonschema:"New image prompt"`
	VisualSummary *string `json:"visual_summary,omitempty" jsonschema:"New short visual summary"`
}

// RenderArgs are the inputs of render_asset.
type RenderArgs struct {
	ItemID string `json:"item_id,omitempty" jsonschema:"Content item to render; omit to render every item not yet rendered"`
	Force  bool   `json:"force,omitempty" jsonschema:"Re-render items that already have an image"`
}

// ExportArgs are the inputs of export_assets.
type ExportArgs struct {
	OutputDir   string `json:"output_dir" jsonschema:"Directory to write the images, report and archive into"`
	ArchiveName string `json:"archive_name,omitempty" jsonschema:"Archive file name without extension"`
}

// toolset serves the tools against one in-process session; an MCP stdio
// server has exactly one client.
type toolset struct {
	studio *session.Studio
}

func (t *toolset) register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_product",
		Description: "Phase 1: analyze a product photo and propose marketing routes with concept prompts. Replaces any previous analysis and plan.",
	}, t.analyze)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "select_route",
		Description: "Choose the marketing route that generate_content_plan builds on. Changing the route discards the current plan.",
	}, t.selectRoute)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_content_plan",
		Description: "Phase 2: build the eight-asset content plan (two 1:1 main visuals, six 9:16 story slides) for the selected route.",
	}, t.plan)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_item",
		Description: "Edit the title, copy, visual prompt or visual summary of one content item before rendering.",
	}, t.updateItem)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "render_asset",
		Description: "Render one content item, or every pending item when item_id is omitted.",
	}, t.render)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "export_assets",
		Description: "Write rendered images under their derived filenames, the text report and a zip archive to a directory.",
	}, t.export)
}

func (t *toolset) analyze(ctx context.Context, _ *mcp.CallToolRequest, in AnalyzeArgs) (*mcp.CallToolResult, any, error) {
	data, err := os.ReadFile(in.PhotoPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read photo: %w", err)
	}
	img, err := imageprep.Prepare(data)
	if err != nil {
		return nil, nil, err
	}
	t.studio.Session().SetUpload(img, in.ProductName, in.BrandContext)

	out, err := t.studio.Analyze(ctx)
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(out)
}

func (t *toolset) selectRoute(_ context.Context, _ *mcp.CallToolRequest, in SelectRouteArgs) (*mcp.CallToolResult, any, error) {
	if err := t.studio.Session().SelectRoute(in.Index); err != nil {
		return nil, nil, err
	}
	analysis, err := t.studio.Session().Analysis()
	if err != nil {
		return nil, nil, err
	}
	route, _ := analysis.Route(in.Index)
	return jsonResult(route)
}

func (t *toolset) plan(ctx context.Context, _ *mcp.CallToolRequest, in PlanArgs) (*mcp.CallToolResult, any, error) {
	if in.ReferenceCopy != "" {
		t.studio.Session().SetReferenceCopy(in.ReferenceCopy)
	}
	plan, err := t.studio.GeneratePlan(ctx)
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(planView(plan))
}

func (t *toolset) updateItem(_ context.Context, _ *mcp.CallToolRequest, in UpdateItemArgs) (*mcp.CallToolResult, any, error) {
	item, err := t.studio.Session().UpdateItem(in.ItemID, marketing.ItemPatch{
		Title:         in.Title,
		Copy:          in.Copy,
		VisualPrompt:  in.VisualPrompt,
		VisualSummary: in.VisualSummary,
	})
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(item)
}

func (t *toolset) render(ctx context.Context, _ *mcp.CallToolRequest, in RenderArgs) (*mcp.CallToolResult, any, error) {
	plan, err := t.studio.Session().Plan()
	if err != nil {
		return nil, nil, err
	}
	names := naming.FilenameMap(plan.Items)

	if in.ItemID != "" {
		dataURL, err := t.studio.RenderItem(ctx, in.ItemID)
		if err != nil {
			return nil, nil, err
		}
		data, mime, err := export.SingleImage(dataURL)
		if err != nil {
			return nil, nil, err
		}
		return &mcp.CallToolResult{Content: []mcp.Content{
			&mcp.TextContent{Text: names[in.ItemID]},
			&mcp.ImageContent{Data: data, MIMEType: mime},
		}}, nil, nil
	}

	results, err := t.studio.RenderAll(ctx, in.Force)
	if err != nil {
		return nil, nil, err
	}
	summary := make(map[string]string, len(results))
	for id, e := range results {
		if e != nil {
			summary[names[id]] = "failed: " + e.Error()
			continue
		}
		summary[names[id]] = "ok"
	}
	return jsonResult(summary)
}

func (t *toolset) export(_ context.Context, _ *mcp.CallToolRequest, in ExportArgs) (*mcp.CallToolResult, any, error) {
	dir, err := cli.EnsureDir(in.OutputDir)
	if err != nil {
		return nil, nil, err
	}
	plan, err := t.studio.Session().Plan()
	if err != nil {
		return nil, nil, err
	}

	var written []string
	images := t.studio.Session().Images()
	names := naming.Filenames(plan.Items)
	for i, it := range plan.Items {
		dataURL, ok := images[it.ID]
		if !ok {
			continue
		}
		data, _, err := export.SingleImage(dataURL)
		if err != nil {
			log.Warn().Err(err).Str("item", it.ID).Msg("Skipping unreadable image")
			continue
		}
		path := filepath.Join(dir, names[i])
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, nil, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}

	text, err := t.studio.ExportReport()
	if err != nil {
		return nil, nil, err
	}
	reportPath := filepath.Join(dir, report.Filename)
	if err := os.WriteFile(reportPath, []byte(text), 0o644); err != nil {
		return nil, nil, fmt.Errorf("write %s: %w", reportPath, err)
	}
	written = append(written, reportPath)

	name := in.ArchiveName
	if name == "" {
		name = t.studio.Session().Snapshot().ProductName
	}
	arc, err := t.studio.ExportArchive(name)
	switch {
	case errors.Is(err, export.ErrNoImages):
		log.Info().Msg("No rendered images, archive skipped")
	case err != nil:
		return nil, nil, err
	default:
		arcPath := filepath.Join(dir, arc.Filename)
		if err := os.WriteFile(arcPath, arc.Data, 0o644); err != nil {
			return nil, nil, fmt.Errorf("write %s: %w", arcPath, err)
		}
		written = append(written, arcPath)
	}

	log.Info().Str("dir", dir).Int("files", len(written)).Msg("Assets exported")
	return jsonResult(map[string]any{"files": written})
}

type plannedItem struct {
	marketing.ContentItem
	Filename string `json:"filename"`
}

func planView(plan *marketing.ContentPlan) any {
	names := naming.Filenames(plan.Items)
	items := make([]plannedItem, len(plan.Items))
	for i, it := range plan.Items {
		items[i] = plannedItem{ContentItem: it, Filename: names[i]}
	}
	return map[string]any{"plan_name": plan.PlanName, "items": items}
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encode result: %w", err)
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(data)}}}, nil, nil
}
