package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/ai-marketing-designer/internal/cli"
	"github.com/fpang/ai-marketing-designer/internal/export"
	"github.com/fpang/ai-marketing-designer/internal/generation"
	"github.com/fpang/ai-marketing-designer/internal/imageprep"
	"github.com/fpang/ai-marketing-designer/internal/marketing"
	"github.com/fpang/ai-marketing-designer/internal/naming"
	"github.com/fpang/ai-marketing-designer/internal/report"
	"github.com/fpang/ai-marketing-designer/internal/session"
)

// Subcommand flags.
var (
	photoFlag         string
	nameFlag          string
	brandFlag         string
	outFlag           string
	analysisFlag      string
	routeFlag         int
	referenceCopyFlag string
	referenceFlag     string
	planFlag          string
	itemFlag          string
	promptFlag        string
	ratioFlag         string
	zipFlag           bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Phase 1: analyze a product photo and propose marketing routes",
	Run:   runAnalyze,
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Phase 2: build the eight-asset content plan for one route",
	Run:   runPlan,
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render one plan item or a free-form prompt to an image",
	Run:   runRender,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the whole pipeline and write images, report and archive to a directory",
	Run:   runPipeline,
}

func init() {
	analyzeCmd.Flags().StringVarP(&photoFlag, "photo", "p", "", "Product photo (JPEG, PNG, WebP, GIF, HEIC)")
	analyzeCmd.Flags().StringVarP(&nameFlag, "name", "n", "", "Product name (optional)")
	analyzeCmd.Flags().StringVarP(&brandFlag, "brand", "b", "", "Brand context (optional)")
	analyzeCmd.Flags().StringVarP(&outFlag, "out", "o", "", "Write the analysis JSON here instead of stdout")
	_ = analyzeCmd.MarkFlagRequired("photo")

	planCmd.Flags().StringVarP(&analysisFlag, "analysis", "a", "", "Analysis JSON written by the analyze command")
	planCmd.Flags().IntVarP(&routeFlag, "route", "r", 0, "0-based index of the marketing route to plan")
	planCmd.Flags().StringVar(&referenceCopyFlag, "reference-copy", "", "Text file with competitor or reference copy")
	planCmd.Flags().StringVarP(&outFlag, "out", "o", "", "Write the plan JSON here instead of stdout")
	_ = planCmd.MarkFlagRequired("analysis")

	renderCmd.Flags().StringVar(&planFlag, "plan", "", "Plan JSON written by the plan command")
	renderCmd.Flags().StringVar(&itemFlag, "item", "", "Plan item ID to render (with --plan)")
	renderCmd.Flags().StringVar(&promptFlag, "prompt", "", "Free-form image prompt (instead of --plan/--item)")
	renderCmd.Flags().StringVar(&ratioFlag, "ratio", "", "Aspect ratio for --prompt: 1:1, 9:16, 3:4, 4:3 or 16:9 (default 3:4)")
	renderCmd.Flags().StringVar(&referenceFlag, "reference", "", "Style reference image")
	renderCmd.Flags().StringVarP(&outFlag, "out", "o", "", "Output file for --prompt (default render.png), output directory for --item (default .)")
	renderCmd.MarkFlagsMutuallyExclusive("prompt", "plan")
	renderCmd.MarkFlagsRequiredTogether("plan", "item")
	renderCmd.MarkFlagsOneRequired("prompt", "plan")

	runCmd.Flags().StringVarP(&photoFlag, "photo", "p", "", "Product photo (prompted for when omitted)")
	runCmd.Flags().StringVarP(&nameFlag, "name", "n", "", "Product name (optional)")
	runCmd.Flags().StringVarP(&brandFlag, "brand", "b", "", "Brand context (optional)")
	runCmd.Flags().IntVarP(&routeFlag, "route", "r", 0, "0-based index of the marketing route to plan")
	runCmd.Flags().StringVar(&referenceCopyFlag, "reference-copy", "", "Text file with competitor or reference copy")
	runCmd.Flags().StringVar(&referenceFlag, "reference", "", "Style reference image for every render")
	runCmd.Flags().StringVarP(&outFlag, "out", "o", "", "Output directory (default: derived from the product name)")
	runCmd.Flags().BoolVar(&zipFlag, "zip", true, "Also write a zip archive of the rendered assets")
}

// --- analyze ---

func runAnalyze(cmd *cobra.Command, args []string) {
	_, client := setup()
	photo := mustReadPhoto(photoFlag)

	out, err := client.Analyze(cmd.Context(), photo, nameFlag, brandFlag)
	if err != nil {
		fatal(err, "Analysis failed")
	}
	writeJSON(outFlag, out)
	if outFlag != "" {
		printRoutes(out)
	}
}

// --- plan ---

func runPlan(cmd *cobra.Command, args []string) {
	_, client := setup()

	var analysis marketing.DirectorOutput
	readJSON(analysisFlag, &analysis)
	route, ok := analysis.Route(routeFlag)
	if !ok {
		log.Fatal().Int("route", routeFlag).Int("routes", len(analysis.MarketingRoutes)).Msg("Route index out of range")
	}

	plan, err := client.Plan(cmd.Context(), route, analysis.ProductAnalysis, mustReadText(referenceCopyFlag))
	if err != nil {
		fatal(err, "Content planning failed")
	}
	writeJSON(outFlag, plan)
	if outFlag != "" {
		printPlan(plan)
	}
}

// --- render ---

func runRender(cmd *cobra.Command, args []string) {
	_, client := setup()

	req := marketing.RenderRequest{
		Prompt:         promptFlag,
		AspectRatio:    marketing.AspectRatio(ratioFlag),
		ReferenceImage: mustReadReference(referenceFlag),
	}
	dest := outFlag
	if dest == "" {
		dest = "render.png"
	}

	if planFlag != "" {
		var plan marketing.ContentPlan
		readJSON(planFlag, &plan)
		item, ok := plan.Item(itemFlag)
		if !ok {
			log.Fatal().Str("item", itemFlag).Msg("Item not found in plan")
		}
		if outFlag == "" {
			outFlag = "."
		}
		dir, err := cli.EnsureDir(outFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to prepare output directory")
		}
		req.Prompt = item.VisualPrompt
		req.AspectRatio = marketing.AspectRatio(item.Ratio)
		dest = filepath.Join(dir, naming.FilenameMap(plan.Items)[item.ID])
	}

	start := time.Now()
	img, err := client.Render(cmd.Context(), req)
	if err != nil {
		fatal(err, "Render failed")
	}
	writeImage(dest, img)
	fmt.Printf("✅ %s (%s)\n", dest, cli.FormatDurationShort(time.Since(start)))
}

// --- run ---

func runPipeline(cmd *cobra.Command, args []string) {
	cfg, client := setup()
	ctx := cmd.Context()
	start := time.Now()

	if photoFlag == "" {
		photoFlag = cli.PromptLine(os.Stdin, os.Stdout, "Product photo", "")
		if photoFlag == "" {
			log.Fatal().Msg("A product photo is required")
		}
	}
	if outFlag == "" {
		outFlag = strings.TrimSuffix(export.ArchiveFilename(nameFlag), ".zip")
	}
	dir, err := cli.EnsureDir(outFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare output directory")
	}

	sess := session.New()
	sess.SetUpload(mustReadPhoto(photoFlag), nameFlag, brandFlag)
	sess.SetReferenceCopy(mustReadText(referenceCopyFlag))
	sess.SetReferenceImage(mustReadReference(referenceFlag))
	studio := session.NewStudio(sess, client, session.StudioOptions{
		RenderConcurrency: cfg.RenderConcurrency,
		ArchiveMethod:     cfg.ArchiveMethod,
	})

	fmt.Println("⏳ Phase 1: analyzing product photo...")
	analysis, err := studio.Analyze(ctx)
	if err != nil {
		fatal(err, "Analysis failed")
	}
	printRoutes(analysis)

	if err := sess.SelectRoute(routeFlag); err != nil {
		log.Fatal().Err(err).Int("route", routeFlag).Msg("Cannot select route")
	}

	fmt.Println("⏳ Phase 2: planning content suite...")
	plan, err := studio.GeneratePlan(ctx)
	if err != nil {
		fatal(err, "Content planning failed")
	}
	printPlan(plan)

	fmt.Printf("⏳ Rendering %d assets (up to %d at a time)...\n", len(plan.Items), cfg.RenderConcurrency)
	results, err := studio.RenderAll(ctx, false)
	if err != nil {
		fatal(err, "Rendering stopped")
	}

	names := naming.FilenameMap(plan.Items)
	images := sess.Images()
	failed := 0
	for _, it := range plan.Items {
		if e := results[it.ID]; e != nil {
			failed++
			fmt.Printf("   ❌ %s: %s\n", names[it.ID], e)
			continue
		}
		writeImage(filepath.Join(dir, names[it.ID]), images[it.ID])
		fmt.Printf("   ✅ %s\n", names[it.ID])
	}

	text, err := studio.ExportReport()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to compile report")
	}
	writeFile(filepath.Join(dir, report.Filename), []byte(text))

	if zipFlag && failed < len(plan.Items) {
		arc, err := studio.ExportArchive(nameFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to package archive")
		}
		writeFile(filepath.Join(dir, arc.Filename), arc.Data)
		fmt.Println(archiveLine(arc))
	}

	fmt.Println("============================================")
	fmt.Printf("Output: %s\n", dir)
	fmt.Printf("Rendered: %d/%d  Elapsed: %s\n", len(plan.Items)-failed, len(plan.Items), cli.FormatDurationShort(time.Since(start)))
	if failed > 0 {
		fmt.Println("Re-run `marketing-cli render --plan ... --item ...` for the failed assets.")
		os.Exit(1)
	}
}

// --- output ---

func archiveLine(arc *export.Archive) string {
	return fmt.Sprintf("📦 %s (%d assets)", arc.Filename, len(arc.Entries))
}

func printRoutes(out *marketing.DirectorOutput) {
	fmt.Println()
	fmt.Printf("📦 %s\n", out.ProductAnalysis.Name)
	for i, r := range out.MarketingRoutes {
		fmt.Printf("   [%d] %s: %s\n", i, r.RouteName, r.Headline)
	}
	fmt.Println()
}

func printPlan(plan *marketing.ContentPlan) {
	fmt.Println()
	fmt.Printf("🗂  %s\n", plan.PlanName)
	names := naming.Filenames(plan.Items)
	for i, it := range plan.Items {
		fmt.Printf("   %s  %s\n", names[i], it.Title)
	}
	fmt.Println()
}

// fatal logs a generation failure with its kind and any schema issues.
func fatal(err error, msg string) {
	ev := log.Fatal().Err(err)
	var ge *generation.Error
	if errors.As(err, &ge) {
		ev = ev.Str("kind", string(ge.Kind))
		for i, issue := range ge.Issues {
			ev = ev.Str(fmt.Sprintf("issue%d", i), issue.Path+": "+issue.Message)
		}
	}
	ev.Msg(msg)
}

// --- files ---

func mustReadPhoto(path string) marketing.ImageInput {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to read photo")
	}
	img, err := imageprep.Prepare(data)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Photo rejected")
	}
	return img
}

func mustReadReference(path string) string {
	if path == "" {
		return ""
	}
	img := mustReadPhoto(path)
	return imageprep.EncodeDataURL(img.Data, img.MIMEType)
}

func mustReadText(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to read text file")
	}
	return string(data)
}

func readJSON(path string, v any) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to read JSON file")
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Invalid JSON file")
	}
}

func writeJSON(path string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode JSON")
	}
	data = append(data, '\n')
	if path == "" {
		os.Stdout.Write(data)
		return
	}
	writeFile(path, data)
}

func writeImage(path, dataURL string) {
	data, _, err := export.SingleImage(dataURL)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Rendered image is unreadable")
	}
	writeFile(path, data)
}

func writeFile(path string, data []byte) {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to write file")
	}
	log.Debug().Str("path", path).Int("bytes", len(data)).Msg("Wrote file")
}
