package feedback

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Normalize converts arbitrary model output into a canonical Feedback value.
// It accepts raw JSON text, prose with an embedded JSON object, an already
// decoded map, or any marshalable Go value. It returns nil only when raw
// carries no content at all; every other input degrades to a fully
// defaulted record. Normalize never panics and performs no I/O.
func Normalize(raw any) *Feedback {
	obj, ok := toObject(raw)
	if !ok {
		return nil
	}

	tone := extractCategory(obj, toneAndStyleAliases)
	content := extractCategory(obj, contentAliases)
	structure := extractCategory(obj, structureAliases)
	skills := extractCategory(obj, skillsAliases)

	// Responses that skip the category objects often carry flat lists
	// instead; fold those into the closest category.
	if _, found := firstObject(obj, contentAliases); !found {
		content.Tips = append(content.Tips, flatContentTips(obj)...)
	}
	if _, found := firstObject(obj, skillsAliases); !found {
		skills.Tips = append(skills.Tips, missingKeywordTips(obj)...)
	}

	overall, found := firstNumber(obj, overallAliases)
	if !found {
		mean := (tone.Score + content.Score + structure.Score + skills.Score) / 4
		overall = math.Round(mean*10) / 10
	}

	return &Feedback{
		OverallRating: clamp(overall),
		ATS:           extractATS(obj),
		ToneAndStyle:  tone,
		Content:       content,
		Structure:     structure,
		Skills:        skills,
	}
}

// accessor yields one candidate value for a logical field. Alias tables are
// ordered accessor lists tried until one returns a defined value.
type accessor func(map[string]any) (any, bool)

func key(name string) accessor {
	return func(obj map[string]any) (any, bool) {
		v, ok := obj[name]
		if !ok || v == nil {
			return nil, false
		}
		return v, true
	}
}

func keys(names ...string) []accessor {
	out := make([]accessor, 0, len(names))
	for _, n := range names {
		out = append(out, key(n))
	}
	return out
}

var (
	toneAndStyleAliases = keys("toneAndStyle", "tone_and_style", "toneStyle", "tone", "style")
	contentAliases      = keys("content", "contentQuality", "content_quality")
	structureAliases    = keys("structure", "formatting", "format", "layout")
	skillsAliases       = keys("skills", "skillsMatch", "skills_match", "keywords")

	scoreAliases = keys("score", "rating", "value", "points", "outOf100", "out_of_100")
	tipsAliases  = keys("tips", "suggestions", "feedback", "items")

	overallAliases = keys("overallRating", "overall_rating", "overallScore", "overall_score", "overall", "totalScore", "total_score", "score", "rating")

	atsObjectAliases = keys("ats", "atsAnalysis", "ats_analysis", "atsCompatibility")
	atsScoreAliases  = keys("ats_compatibility", "atsScore", "ats_score")

	tipTextAliases        = keys("tip", "text", "message", "suggestion", "issue")
	tipKindAliases        = keys("kind", "type")
	tipExplanationAliases = keys("explanation", "why", "reason", "detail")
)

func firstValue(obj map[string]any, list []accessor) (any, bool) {
	for _, get := range list {
		if v, ok := get(obj); ok {
			return v, true
		}
	}
	return nil, false
}

func firstObject(obj map[string]any, list []accessor) (map[string]any, bool) {
	for _, get := range list {
		if v, ok := get(obj); ok {
			if m, isMap := v.(map[string]any); isMap {
				return m, true
			}
		}
	}
	return nil, false
}

func firstNumber(obj map[string]any, list []accessor) (float64, bool) {
	for _, get := range list {
		if v, ok := get(obj); ok {
			if n, numeric := toNumber(v); numeric {
				return n, true
			}
		}
	}
	return 0, false
}

func extractCategory(obj map[string]any, aliases []accessor) Category {
	source, ok := firstObject(obj, aliases)
	if !ok {
		return Category{Score: 0, Tips: []Tip{}}
	}
	score, _ := firstNumber(source, scoreAliases)
	return Category{
		Score: clamp(score),
		Tips:  extractTips(source, tipsAliases),
	}
}

func extractTips(obj map[string]any, aliases []accessor) []Tip {
	raw, ok := firstValue(obj, aliases)
	if !ok {
		return []Tip{}
	}
	entries, ok := raw.([]any)
	if !ok {
		return []Tip{}
	}
	tips := make([]Tip, 0, len(entries))
	for _, entry := range entries {
		if tip, ok := normalizeTip(entry); ok {
			tips = append(tips, tip)
		}
	}
	return tips
}

func normalizeTip(entry any) (Tip, bool) {
	switch v := entry.(type) {
	case string:
		text := strings.TrimSpace(v)
		if text == "" {
			return Tip{}, false
		}
		return Tip{Kind: KindImprove, Text: text}, true
	case map[string]any:
		text := strings.TrimSpace(firstString(v, tipTextAliases))
		if text == "" {
			return Tip{}, false
		}
		kind := KindImprove
		if strings.EqualFold(strings.TrimSpace(firstString(v, tipKindAliases)), KindGood) {
			kind = KindGood
		}
		return Tip{
			Kind:        kind,
			Text:        text,
			Explanation: strings.TrimSpace(firstString(v, tipExplanationAliases)),
		}, true
	default:
		return Tip{}, false
	}
}

func extractATS(obj map[string]any) ATS {
	out := ATS{Score: 0, Suggestions: []Tip{}}

	source, hasObject := firstObject(obj, atsObjectAliases)
	if hasObject {
		if score, ok := firstNumber(source, scoreAliases); ok {
			out.Score = clamp(score)
		}
		out.Suggestions = extractTips(source, tipsAliases)
	}
	if !hasObject {
		if score, ok := firstNumber(obj, atsScoreAliases); ok {
			out.Score = clamp(score)
		}
	}

	for _, issue := range stringList(obj, "ats_issues", "atsIssues") {
		out.Suggestions = append(out.Suggestions, Tip{Kind: KindImprove, Text: issue})
	}
	for _, kw := range stringList(obj, "missing_keywords", "missingKeywords") {
		out.Suggestions = append(out.Suggestions, Tip{Kind: KindImprove, Text: "Add keyword: " + kw})
	}
	return out
}

func flatContentTips(obj map[string]any) []Tip {
	var tips []Tip
	for _, s := range stringList(obj, "strengths") {
		tips = append(tips, Tip{Kind: KindGood, Text: s})
	}
	for _, s := range stringList(obj, "weaknesses") {
		tips = append(tips, Tip{Kind: KindImprove, Text: s})
	}
	for _, s := range stringList(obj, "specific_improvements", "recommendations") {
		tips = append(tips, Tip{Kind: KindImprove, Text: s})
	}
	return tips
}

func missingKeywordTips(obj map[string]any) []Tip {
	var tips []Tip
	for _, kw := range stringList(obj, "missing_keywords", "missingKeywords") {
		tips = append(tips, Tip{Kind: KindImprove, Text: "Add keyword: " + kw})
	}
	return tips
}

func stringList(obj map[string]any, names ...string) []string {
	raw, ok := firstValue(obj, keys(names...))
	if !ok {
		return nil
	}
	entries, ok := raw.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, entry := range entries {
		s, isString := entry.(string)
		if !isString {
			continue
		}
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func firstString(obj map[string]any, list []accessor) string {
	v, ok := firstValue(obj, list)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func clamp(n float64) float64 {
	if math.IsNaN(n) {
		return 0
	}
	return math.Max(0, math.Min(100, n))
}

// toObject recovers a JSON object from the raw reply. It reports false only
// when there is truly nothing to interpret.
func toObject(raw any) (map[string]any, bool) {
	switch v := raw.(type) {
	case nil:
		return nil, false
	case map[string]any:
		return v, true
	case string:
		return textToObject(v)
	case []byte:
		return textToObject(string(v))
	case json.RawMessage:
		return textToObject(string(v))
	default:
		// Structs and other decoded values round-trip through JSON.
		data, err := json.Marshal(v)
		if err != nil {
			return nil, false
		}
		var obj map[string]any
		if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
			return nil, false
		}
		return obj, true
	}
}

func textToObject(text string) (map[string]any, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || trimmed == "null" {
		return nil, false
	}
	if obj, ok := parseObject(trimmed); ok {
		return obj, true
	}
	if obj, ok := extractEmbeddedObject(trimmed); ok {
		return obj, true
	}
	// No parseable JSON anywhere: keep the literal text rather than failing.
	return map[string]any{"rawText": text}, true
}

func parseObject(text string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// extractEmbeddedObject scans prose for the outermost {...} span and tries
// to parse it. This matches how models wrap JSON in commentary.
func extractEmbeddedObject(text string) (map[string]any, bool) {
	first := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if first == -1 || last == -1 || last <= first {
		return nil, false
	}
	return parseObject(text[first : last+1])
}
