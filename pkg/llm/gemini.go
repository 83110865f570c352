package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/voxrelay/voxrelay/internal/log"
)

const (
	defaultGeminiModel = "gemini-2.0-flash"

	defaultPromptPrefix = "Cheerfully respond to the query in the audio or text. " +
		"Keep the context in mind as the user might refer back to it and keep updating it " +
		"as the conversation proceeds. This is the query:"

	geminiSystemInstruction = "You will be provided a text or audio prompt with some context " +
		"and a last response so you remember the flow of the conversation. The prompts contain " +
		"queries which you should respond to. The queries might refer to something in the context " +
		"but not necessarily. Always return a summary as context of the current exchange only, " +
		"not the past ones. Your response will be fed to a TTS engine so avoid asterisks and " +
		"similar special characters. Make sure the context is succinct while not losing any details."
)

// replySchema constrains Gemini output to the Reply JSON shape.
var replySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"query":    {Type: genai.TypeString, Description: "the query verbatim"},
		"response": {Type: genai.TypeString, Description: "the assistant response"},
		"context":  {Type: genai.TypeString, Description: "summary of the current exchange only"},
	},
	Required: []string{"query", "response", "context"},
}

// GeminiConfig holds Gemini generator configuration.
type GeminiConfig struct {
	APIKey       string
	Model        string
	PromptPrefix string
	Logger       *slog.Logger
}

// GeminiOption is a functional option for the Gemini generator.
type GeminiOption func(*GeminiConfig)

// WithModel sets the model name.
func WithModel(model string) GeminiOption {
	return func(c *GeminiConfig) { c.Model = model }
}

// WithPromptPrefix overrides the prompt prefix, typically with a stored
// prompt script.
func WithPromptPrefix(prefix string) GeminiOption {
	return func(c *GeminiConfig) { c.PromptPrefix = prefix }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) GeminiOption {
	return func(c *GeminiConfig) { c.Logger = logger }
}

// sessionMemory is the generator's in-process view of one session.
// It backs the fallback path and the "last response" hint; the durable
// record lives in the store, not here.
type sessionMemory struct {
	context      string
	lastResponse string
}

// Gemini implements Generator on the google.golang.org/genai client.
type Gemini struct {
	client *genai.Client
	config GeminiConfig
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*sessionMemory
}

// NewGemini creates a Gemini-backed generator.
func NewGemini(ctx context.Context, apiKey string, opts ...GeminiOption) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	cfg := GeminiConfig{
		APIKey:       apiKey,
		Model:        defaultGeminiModel,
		PromptPrefix: defaultPromptPrefix,
		Logger:       log.L(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, err
	}

	return &Gemini{
		client:   client,
		config:   cfg,
		logger:   cfg.Logger.With("component", "llm.gemini"),
		sessions: make(map[string]*sessionMemory),
	}, nil
}

// Generate implements Generator.
func (g *Gemini) Generate(ctx context.Context, sessionID, prompt, audioPath string) (*Reply, error) {
	mem, memContext, memLast := g.snapshotSession(sessionID)

	parts := []*genai.Part{
		genai.NewPartFromText(g.config.PromptPrefix + prompt),
	}

	if audioPath != "" {
		file, err := g.client.Files.UploadFromPath(ctx, audioPath, nil)
		if err != nil {
			g.logger.Error("audio upload failed", "session", sessionID, "path", audioPath, "error", err)
			return g.fallback(mem), nil
		}
		g.logger.Debug("uploaded audio clip", "session", sessionID, "uri", file.URI)
		parts = append(parts, genai.NewPartFromURI(file.URI, file.MIMEType))
	}

	parts = append(parts,
		genai.NewPartFromText("Last AI response: "+memLast),
		genai.NewPartFromText("Context: "+memContext),
	)

	resp, err := g.client.Models.GenerateContent(ctx, g.config.Model,
		[]*genai.Content{{Role: genai.RoleUser, Parts: parts}},
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   replySchema,
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{genai.NewPartFromText(geminiSystemInstruction)},
			},
		})
	if err != nil {
		g.logger.Error("generate failed", "session", sessionID, "error", err)
		return g.fallback(mem), nil
	}

	var reply Reply
	if err := json.Unmarshal([]byte(candidateText(resp)), &reply); err != nil {
		g.logger.Error("unparseable model output", "session", sessionID, "error", err)
		return g.fallback(mem), nil
	}

	g.mu.Lock()
	mem.context += reply.Context
	mem.lastResponse = reply.Response
	g.mu.Unlock()

	return &reply, nil
}

// Close implements Generator.
func (g *Gemini) Close() error {
	return nil
}

// snapshotSession returns the memory for a session, creating it on
// first use, along with a consistent copy of its fields. The Gemini
// instance is shared process-wide, so the fields are never read
// outside the lock.
func (g *Gemini) snapshotSession(id string) (mem *sessionMemory, contextText, lastResponse string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	mem, ok := g.sessions[id]
	if !ok {
		mem = &sessionMemory{}
		g.sessions[id] = mem
	}
	return mem, mem.context, mem.lastResponse
}

// fallback builds the deterministic failure reply, preserving the
// session's accumulated context unchanged.
func (g *Gemini) fallback(mem *sessionMemory) *Reply {
	g.mu.Lock()
	defer g.mu.Unlock()
	return &Reply{
		Query:    "",
		Response: FallbackResponse,
		Context:  mem.context,
	}
}

// candidateText concatenates the text parts of the first candidate.
func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String()
}

// Verify Gemini implements Generator at compile time.
var _ Generator = (*Gemini)(nil)
