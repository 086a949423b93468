package chat

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"docchat-platform/internal/logger"
	"docchat-platform/models"
)

// maxExcerptRunes bounds each excerpt quoted in a templated reply.
const maxExcerptRunes = 600

// Excerpt is a retrieved chunk prepared for composition.
type Excerpt struct {
	DocumentName string
	Content      string
	Similarity   float64
}

type ComposeRequest struct {
	Query        string
	LanguageHint string
	Excerpts     []Excerpt
	History      []*models.ChatMessage
}

// Composer writes the assistant reply from retrieved excerpts.
type Composer interface {
	Compose(ctx context.Context, req ComposeRequest) (string, error)
}

var disclaimers = map[string]string{
	"en": "Note: this answer is based only on the content of your uploaded documents.",
	"es": "Nota: esta respuesta se basa únicamente en el contenido de sus documentos cargados.",
	"fr": "Remarque : cette réponse repose uniquement sur le contenu de vos documents téléversés.",
	"de": "Hinweis: Diese Antwort basiert ausschließlich auf dem Inhalt Ihrer hochgeladenen Dokumente.",
	"pt": "Nota: esta resposta baseia-se apenas no conteúdo dos seus documentos enviados.",
	"it": "Nota: questa risposta si basa esclusivamente sul contenuto dei documenti caricati.",
}

var introductions = map[string]string{
	"en": "Here is what I found in your documents:",
	"es": "Esto es lo que encontré en sus documentos:",
	"fr": "Voici ce que j'ai trouvé dans vos documents :",
	"de": "Das habe ich in Ihren Dokumenten gefunden:",
	"pt": "Isto é o que encontrei nos seus documentos:",
	"it": "Ecco cosa ho trovato nei tuoi documenti:",
}

// Disclaimer returns the grounding note for a language hint such as "es"
// or "fr-CA". Unknown hints get English.
func Disclaimer(languageHint string) string {
	return disclaimers[language(languageHint)]
}

func language(hint string) string {
	lang := strings.ToLower(strings.TrimSpace(hint))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	if _, ok := disclaimers[lang]; ok {
		return lang
	}
	return "en"
}

// TemplateComposer quotes the excerpts verbatim.
type TemplateComposer struct{}

func (TemplateComposer) Compose(_ context.Context, req ComposeRequest) (string, error) {
	lang := language(req.LanguageHint)

	var b strings.Builder
	b.WriteString(introductions[lang])
	for i, ex := range req.Excerpts {
		fmt.Fprintf(&b, "\n\n[%d] %s (relevance %.2f)\n%s", i+1, ex.DocumentName, ex.Similarity, truncate(ex.Content, maxExcerptRunes))
	}
	b.WriteString("\n\n")
	b.WriteString(disclaimers[lang])
	return b.String(), nil
}

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiComposer asks a model to answer from the excerpts and falls back to
// the template when the model fails.
type GeminiComposer struct {
	generator Generator
	fallback  TemplateComposer
}

func NewGeminiComposer(g Generator) *GeminiComposer {
	return &GeminiComposer{generator: g}
}

func (c *GeminiComposer) Compose(ctx context.Context, req ComposeRequest) (string, error) {
	answer, err := c.generator.Generate(ctx, buildPrompt(req))
	if err != nil {
		logger.Warn("Model composition failed, using template", "error", err)
		return c.fallback.Compose(ctx, req)
	}
	return strings.TrimSpace(answer) + "\n\n" + Disclaimer(req.LanguageHint), nil
}

func buildPrompt(req ComposeRequest) string {
	var b strings.Builder
	b.WriteString("Answer the question using only the document excerpts below. ")
	b.WriteString("If the excerpts do not contain the answer, say so.\n")
	if hint := strings.TrimSpace(req.LanguageHint); hint != "" {
		fmt.Fprintf(&b, "Reply in the language with code %q.\n", hint)
	}

	if len(req.History) > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, m := range req.History {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
	}

	b.WriteString("\nExcerpts:\n")
	for i, ex := range req.Excerpts {
		fmt.Fprintf(&b, "[%d] %s:\n%s\n\n", i+1, ex.DocumentName, ex.Content)
	}
	fmt.Fprintf(&b, "Question: %s\n", req.Query)
	return b.String()
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit]) + "…"
}
