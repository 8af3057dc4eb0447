package classify

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"addonwatch/internal/config"
	"addonwatch/internal/normalize"
)

const classifySystemPrompt = `You classify game news articles for whether they relate to upcoming API/addon changes.
Return JSON with fields: { "related": boolean, "reason": string, "severity": 1-5 }.
Severity indicates potential impact on addons.`

const summarizeSystemPrompt = `You are an analyst summarizing game news articles with a focus on addon/API impact.
Write 2-3 concise sentences, plain text, no lists, no code, under 500 characters.
Call out specific APIs, UI systems, or addon implications when present.`

const suggestSystemPrompt = `You analyze addon-related game articles and suggest addon impact ratings.
Return a JSON array of objects: [{ "addon_name", "category", "severity", "reason" }].
Categories: Low(1-2), Medium(3), High(4), Dead(5). Choose only relevant addons.
Limit to at most 8 suggestions. Output ONLY the JSON array.`

const maxPromptBytes = 8000

type Classification struct {
	Related  bool   `json:"related"`
	Reason   string `json:"reason"`
	Severity int    `json:"severity"`
}

type SuggestedImpact struct {
	AddonName string `json:"addon_name"`
	Category  string `json:"category"`
	Severity  int    `json:"severity"`
	Reason    string `json:"reason,omitempty"`
}

// Classifier wraps an OpenAI-compatible chat endpoint. Without an API
// key every call degrades to a safe default instead of erroring, so
// ingestion keeps working on installs that never configured one.
type Classifier struct {
	client  openai.Client
	model   string
	timeout time.Duration
	enabled bool
	logger  *slog.Logger
}

func New(cfg config.ClassifierConfig, logger *slog.Logger) *Classifier {
	c := &Classifier{
		model:   cfg.Model,
		timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		logger:  logger,
	}
	if cfg.APIKey == "" {
		return c
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	c.client = openai.NewClient(opts...)
	c.enabled = true
	return c
}

func (c *Classifier) Enabled() bool {
	return c.enabled
}

func (c *Classifier) Classify(ctx context.Context, text string) (Classification, error) {
	if !c.enabled {
		return Classification{Related: false, Reason: "classifier not configured", Severity: 1}, nil
	}
	content, err := c.complete(ctx, classifySystemPrompt, text, true)
	if err != nil {
		return Classification{}, err
	}
	var parsed struct {
		Related  bool            `json:"related"`
		Reason   string          `json:"reason"`
		Severity json.RawMessage `json:"severity"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return Classification{}, err
	}
	return Classification{
		Related:  parsed.Related,
		Reason:   parsed.Reason,
		Severity: normalize.ClampScore(decodeScore(parsed.Severity)),
	}, nil
}

func (c *Classifier) Summarize(ctx context.Context, text string) (string, error) {
	if !c.enabled {
		return clip(text, 280), nil
	}
	content, err := c.complete(ctx, summarizeSystemPrompt, text, false)
	if err != nil {
		return "", err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return clip(text, 280), nil
	}
	return content, nil
}

// SuggestImpacts asks for impact suggestions and tolerates the shapes
// JSON mode is known to return: a direct array, an object wrapping one
// under any key, or a single suggestion object.
func (c *Classifier) SuggestImpacts(ctx context.Context, text string) ([]SuggestedImpact, error) {
	if !c.enabled {
		return []SuggestedImpact{}, nil
	}
	content, err := c.complete(ctx, suggestSystemPrompt, text, true)
	if err != nil {
		return nil, err
	}
	raw := extractSuggestionArray(content)
	out := make([]SuggestedImpact, 0, len(raw))
	for _, r := range raw {
		name := normalize.AddonName(asString(r["addon_name"]))
		if name == "" {
			continue
		}
		category := asString(r["category"])
		if category == "" {
			category = "Low"
		}
		out = append(out, SuggestedImpact{
			AddonName: name,
			Category:  category,
			Severity:  normalize.ClampScore(asInt(r["severity"])),
			Reason:    asString(r["reason"]),
		})
	}
	return out, nil
}

func (c *Classifier) complete(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(0),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(clip(user, maxPromptBytes)),
		},
	}
	if jsonMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func extractSuggestionArray(content string) []map[string]any {
	content = strings.TrimSpace(content)
	var direct []map[string]any
	if err := json.Unmarshal([]byte(content), &direct); err == nil {
		return direct
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(content), &obj); err != nil {
		return nil
	}
	for _, key := range []string{"suggestions", "items"} {
		if arr := toMapSlice(obj[key]); arr != nil {
			return arr
		}
	}
	for _, v := range obj {
		if arr := toMapSlice(v); arr != nil {
			return arr
		}
	}
	if _, ok := obj["addon_name"]; ok {
		return []map[string]any{obj}
	}
	return nil
}

func toMapSlice(v any) []map[string]any {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func decodeScore(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 1
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(f)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n
		}
	}
	return 1
}

func asString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func asInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return parsed
		}
	}
	return 1
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
