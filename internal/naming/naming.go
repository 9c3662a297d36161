// Package naming derives stable, machine-readable filenames for rendered
// marketing assets so downstream site builders can tell an image's slot from
// its name alone.
//
// Format: {type-slug}_{ratio-slug}_{NN}_{keyword}.png, where NN is the
// 1-based position of the item in its plan.
package naming

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fpang/ai-marketing-designer/internal/marketing"
)

// Ext is the extension of every derived filename.
const Ext = ".png"

var typeSlugs = map[marketing.ItemType]string{
	marketing.ItemMainWhite:     "main-white",
	marketing.ItemMainLifestyle: "main-lifestyle",
	marketing.ItemStorySlide:    "story",
}

// marker maps a substring found in an item's text to a filename keyword.
type marker struct {
	needle  string
	keyword string
}

// vocabulary is scanned in order; the first hit wins.
var vocabulary = []marker{
	{"hook", "hook"},
	{"開場", "hook"},
	{"問題", "problem"},
	{"problem", "problem"},
	{"解決", "solution"},
	{"solution", "solution"},
	{"功能", "features"},
	{"feature", "features"},
	{"特色", "features"},
	{"信任", "trust"},
	{"trust", "trust"},
	{"見證", "testimonial"},
	{"testimonial", "testimonial"},
	{"行動", "cta"},
	{"cta", "cta"},
	{"呼籲", "cta"},
	{"產品", "product"},
	{"product", "product"},
	{"生活", "lifestyle"},
	{"lifestyle", "lifestyle"},
	{"場景", "scene"},
	{"scene", "scene"},
}

// StoryStages is the keyword sequence assumed for story slides whose text
// names no stage.
var StoryStages = []string{"hook", "problem", "solution", "features", "trust", "cta"}

// storyOffset is the number of main visuals that precede the story slides in
// a standard plan. Only DeriveFilename relies on it.
const storyOffset = 2

// Keyword resolves the semantic keyword for an item. storyIndex is the
// item's 0-based position among the plan's story slides and only matters
// for story slides whose text names no stage.
func Keyword(item marketing.ContentItem, storyIndex int) string {
	text := strings.ToLower(item.VisualSummary + " " + item.Title)
	for _, m := range vocabulary {
		if strings.Contains(text, m.needle) {
			return m.keyword
		}
	}

	switch item.Type {
	case marketing.ItemMainWhite:
		return "product"
	case marketing.ItemMainLifestyle:
		return "lifestyle"
	case marketing.ItemStorySlide:
		i := min(max(storyIndex, 0), len(StoryStages)-1)
		return StoryStages[i]
	}

	if idx := strings.LastIndexByte(item.ID, '_'); idx >= 0 && idx < len(item.ID)-1 {
		return sanitize(item.ID[idx+1:])
	}
	return "item"
}

// DeriveFilename returns the filename of the item at the given 0-based plan
// position when the rest of the plan is not at hand; a story slide is taken
// to follow the two main visuals. Callers holding the whole plan use
// Filenames.
func DeriveFilename(item marketing.ContentItem, ordinal int) string {
	return filename(item, ordinal, ordinal-storyOffset)
}

// Filenames derives the filename of every item in plan order. Story slides
// take their fallback stage from their position among the story slides of
// items, wherever the main visuals sit.
func Filenames(items []marketing.ContentItem) []string {
	out := make([]string, len(items))
	story := 0
	for i, it := range items {
		out[i] = filename(it, i, story)
		if it.Type == marketing.ItemStorySlide {
			story++
		}
	}
	return out
}

func filename(item marketing.ContentItem, ordinal, storyIndex int) string {
	typ, ok := typeSlugs[item.Type]
	if !ok {
		typ = "item"
	}
	return fmt.Sprintf("%s_%s_%02d_%s%s", typ, RatioSlug(item.Ratio), ordinal+1, Keyword(item, storyIndex), Ext)
}

// RatioSlug renders a ratio for use in a filename ("9:16" → "9x16").
func RatioSlug(r marketing.Ratio) string {
	return strings.Replace(string(r), ":", "x", 1)
}

// Parsed is the identity recovered from a derived filename.
type Parsed struct {
	Type    marketing.ItemType
	Ratio   marketing.Ratio
	Ordinal int
	Keyword string
}

var filenameRe = regexp.MustCompile(`^([a-z-]+)_(\d+x\d+)_(\d{2,})_([a-z0-9_-]+)\.(?i:png|jpe?g|webp)$`)

// ParseFilename reverses DeriveFilename. It returns false for names that do
// not follow the naming scheme.
func ParseFilename(name string) (Parsed, bool) {
	m := filenameRe.FindStringSubmatch(name)
	if m == nil {
		return Parsed{}, false
	}

	var typ marketing.ItemType
	for t, slug := range typeSlugs {
		if slug == m[1] {
			typ = t
		}
	}
	if typ == "" {
		return Parsed{}, false
	}

	n, err := strconv.Atoi(m[3])
	if err != nil || n < 1 {
		return Parsed{}, false
	}

	return Parsed{
		Type:    typ,
		Ratio:   marketing.Ratio(strings.Replace(m[2], "x", ":", 1)),
		Ordinal: n - 1,
		Keyword: m[4],
	}, true
}

// FilenameMap maps each item ID to its name from Filenames.
func FilenameMap(items []marketing.ContentItem) map[string]string {
	names := Filenames(items)
	out := make(map[string]string, len(items))
	for i, it := range items {
		out[it.ID] = names[i]
	}
	return out
}

func sanitize(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "item"
	}
	return b.String()
}
