package constant

// CatalogModel describes one selectable model. Mirrors the client's model
// picker; submissions naming anything outside this set are rejected.
type CatalogModel struct {
	Value        string
	Label        string
	Provider     string
	Premium      bool
	Capabilities []string
}

// https://openrouter.ai/models
var ModelCatalog = []CatalogModel{
	{Value: "google/gemini-2.5-flash", Label: "Gemini 2.5 Flash", Provider: "google", Capabilities: []string{"vision", "web", "docs"}},
	{Value: "google/gemini-2.5-pro", Label: "Gemini 2.5 Pro", Provider: "google", Premium: true, Capabilities: []string{"vision", "web", "docs", "reasoning"}},
	{Value: "anthropic/claude-4-sonnet", Label: "Claude 4 Sonnet", Provider: "anthropic", Premium: true, Capabilities: []string{"vision", "docs"}},
	{Value: "anthropic/claude-4-sonnet-reasoning", Label: "Claude 4 Sonnet (Reasoning)", Provider: "anthropic", Premium: true, Capabilities: []string{"vision", "docs", "reasoning"}},
	{Value: "deepseek/deepseek-r1", Label: "DeepSeek R1 (Llama Distilled)", Provider: "deepseek", Capabilities: []string{"reasoning"}},
	{Value: "google/gemini-2.0-flash", Label: "Gemini 2.0 Flash", Provider: "google", Capabilities: []string{"vision", "web", "docs"}},
	{Value: "openai/gpt-4o-mini", Label: "GPT 4o-mini", Provider: "openai", Premium: true, Capabilities: []string{"vision"}},
	{Value: "openai/gpt-4o", Label: "GPT 4o", Provider: "openai", Premium: true, Capabilities: []string{"vision"}},
	{Value: "openai/o3-mini", Label: "o3 mini", Provider: "openai", Premium: true},
	{Value: "openai/o3", Label: "o3", Provider: "openai"},
}

func IsCatalogModel(value string) bool {
	for _, m := range ModelCatalog {
		if m.Value == value {
			return true
		}
	}
	return false
}
