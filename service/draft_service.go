package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"legaldraft-backend/models"
	"legaldraft-backend/rag"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
)

// DraftService handles legal document generation backed by clause retrieval
type DraftService struct {
	pipeline     *rag.Pipeline
	geminiClient *genai.Client
	modelName    string
	temperature  float32
}

// DraftServiceOption is a functional option for DraftService
type DraftServiceOption func(*DraftService)

// DraftWithPipeline sets the retrieval pipeline
func DraftWithPipeline(pipeline *rag.Pipeline) DraftServiceOption {
	return func(s *DraftService) {
		s.pipeline = pipeline
	}
}

// DraftWithGeminiClient sets the Gemini client used for generation
func DraftWithGeminiClient(client *genai.Client) DraftServiceOption {
	return func(s *DraftService) {
		s.geminiClient = client
	}
}

// DraftWithModel sets the generation model name
func DraftWithModel(name string) DraftServiceOption {
	return func(s *DraftService) {
		s.modelName = name
	}
}

// NewDraftService creates a new draft service
func NewDraftService(opts ...DraftServiceOption) *DraftService {
	s := &DraftService{
		modelName:   "gemini-1.5-pro",
		temperature: 0.2,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	ErrPromptTooShort     = errors.New("prompt must be at least 10 characters long")
	ErrPromptTooLong      = errors.New("prompt exceeds maximum length of 5000 characters")
	ErrInvalidDocType     = errors.New("invalid document type")
	ErrGenerationFailed   = errors.New("failed to generate document content")
	ErrPipelineNotSet     = errors.New("retrieval pipeline not set")
	ErrGeminiClientNotSet = errors.New("gemini client not set")
)

const (
	minPromptLength = 10
	maxPromptLength = 5000
	defaultTopK     = 5
	maxRetries      = 3
	initialBackoff  = time.Second
)

// GenerateDocumentRequest represents a request to draft a document
type GenerateDocumentRequest struct {
	Prompt       string
	DocumentType models.DocumentType
	Jurisdiction models.Jurisdiction
	Variables    map[string]string
	TopK         int
	MaxLength    int
}

// GenerateDocumentResult represents the result of drafting a document
type GenerateDocumentResult struct {
	Document *models.GeneratedDocument
}

// validDocTypes is the set of accepted document type identifiers
var validDocTypes = map[models.DocumentType]bool{
	models.DocTypeLoanAgreement:      true,
	models.DocTypeRentalAgreement:    true,
	models.DocTypeServiceAgreement:   true,
	models.DocTypeNDA:                true,
	models.DocTypeEmploymentContract: true,
	models.DocTypePartnershipDeed:    true,
	models.DocTypeAffidavit:          true,
	models.DocTypeOther:              true,
}

// GenerateDocument drafts a complete legal document: it retrieves relevant
// clauses through the pipeline, fills the prompt template for the document
// type and calls the generation model. Retrieval failures degrade to
// ungrounded generation; the resulting document is flagged Degraded.
func (s *DraftService) GenerateDocument(
	ctx context.Context,
	req GenerateDocumentRequest,
) (*GenerateDocumentResult, error) {
	if s.pipeline == nil {
		return nil, ErrPipelineNotSet
	}
	if s.geminiClient == nil {
		return nil, ErrGeminiClientNotSet
	}

	if err := validatePrompt(req.Prompt, req.DocumentType); err != nil {
		return nil, err
	}

	docType := req.DocumentType
	if docType == "" {
		docType = DetectDocumentType(req.Prompt)
	}

	topK := req.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	assembled, err := s.pipeline.GenerateContext(ctx, rag.ContextRequest{
		Query: models.RetrievalQuery{
			Text:         req.Prompt,
			DocumentType: docType,
			Jurisdiction: req.Jurisdiction,
			TopK:         topK,
		},
		Variables: req.Variables,
		MaxLength: req.MaxLength,
	})
	if err != nil {
		return nil, err
	}

	system, user := buildPrompt(docType, req.Variables, req.Prompt, assembled.Text())

	content, err := s.callGemini(ctx, system, user)
	if err != nil {
		return nil, err
	}

	doc := s.parseDocument(content, docType)
	doc.ID = uuid.New()
	doc.GeneratedAt = time.Now().UTC()
	doc.ClausesRetrieved = assembled.Diagnostics.ClausesConsidered
	doc.ClausesIncluded = assembled.Diagnostics.ClausesIncluded
	doc.Truncated = assembled.Diagnostics.Truncated
	doc.Degraded = assembled.Diagnostics.Degraded

	return &GenerateDocumentResult{Document: doc}, nil
}

// ValidatePromptRequest represents a prompt validation request
type ValidatePromptRequest struct {
	Prompt string
}

// ValidatePromptResult reports whether a prompt carries enough signal for
// document generation
type ValidatePromptResult struct {
	Valid        bool                `json:"valid"`
	DocumentType models.DocumentType `json:"document_type,omitempty"`
	Message      string              `json:"message"`
	Suggestions  []string            `json:"suggestions,omitempty"`
}

// ValidatePrompt checks a prompt for length and document type signal
func (s *DraftService) ValidatePrompt(req ValidatePromptRequest) *ValidatePromptResult {
	if err := validatePrompt(req.Prompt, ""); err != nil {
		return &ValidatePromptResult{
			Valid:   false,
			Message: err.Error(),
		}
	}

	docType := DetectDocumentType(req.Prompt)
	if docType == models.DocTypeOther {
		return &ValidatePromptResult{
			Valid:   false,
			Message: "Prompt does not clearly indicate a document type",
			Suggestions: []string{
				"Specify the type of document (e.g., loan agreement, rental agreement)",
				"Include key parties involved",
				"Mention important terms and amounts",
			},
		}
	}

	return &ValidatePromptResult{
		Valid:        true,
		DocumentType: docType,
		Message:      "Prompt appears sufficient for document generation",
	}
}

// validatePrompt enforces prompt length bounds and document type validity
func validatePrompt(prompt string, docType models.DocumentType) error {
	if len(strings.TrimSpace(prompt)) < minPromptLength {
		return ErrPromptTooShort
	}
	if len(prompt) > maxPromptLength {
		return ErrPromptTooLong
	}
	if docType != "" && !validDocTypes[docType] {
		return fmt.Errorf("%w: %s", ErrInvalidDocType, docType)
	}
	return nil
}

// callGemini calls the generation model with retry and exponential backoff
func (s *DraftService) callGemini(ctx context.Context, system, user string) (string, error) {
	model := s.geminiClient.GenerativeModel(s.modelName)
	model.SetTemperature(s.temperature)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(system)},
	}

	var lastErr error
	backoff := initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		resp, err := model.GenerateContent(ctx, genai.Text(user))
		if err != nil {
			lastErr = err
			log.Printf("Warning: generation attempt %d failed: %v", attempt+1, err)
			continue
		}

		content := extractText(resp)
		if content != "" {
			return content, nil
		}
		lastErr = errors.New("model returned empty content")
	}

	return "", fmt.Errorf("%w after %d attempts: %v", ErrGenerationFailed, maxRetries, lastErr)
}

// extractText concatenates the text parts of all candidates
func extractText(resp *genai.GenerateContentResponse) string {
	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				builder.WriteString(string(text))
			}
		}
	}
	return builder.String()
}

// documentPayload is the JSON structure the generation prompt asks for
type documentPayload struct {
	Title    string                   `json:"title"`
	Sections []models.DocumentSection `json:"sections"`
	Parties  []models.Party           `json:"parties"`
}

// parseDocument parses the model output into a structured document. Output
// that is not valid JSON is wrapped as a single plain-text section rather
// than failing the request.
func (s *DraftService) parseDocument(content string, docType models.DocumentType) *models.GeneratedDocument {
	payload := documentPayload{}
	cleaned := stripCodeFence(content)

	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil || len(payload.Sections) == 0 {
		if err != nil {
			log.Printf("Warning: model output is not structured JSON, using plain text fallback")
		}
		return &models.GeneratedDocument{
			Title: defaultTitle(docType),
			Type:  docType,
			Sections: []models.DocumentSection{
				{Type: "paragraph", Content: strings.TrimSpace(content)},
			},
		}
	}

	title := payload.Title
	if title == "" {
		title = defaultTitle(docType)
	}

	return &models.GeneratedDocument{
		Title:    title,
		Type:     docType,
		Sections: payload.Sections,
		Parties:  payload.Parties,
	}
}

// stripCodeFence removes a surrounding markdown code fence if present
func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// defaultTitle builds a document title from the type identifier
func defaultTitle(docType models.DocumentType) string {
	if docType == "" || docType == models.DocTypeOther {
		return "Legal Agreement"
	}
	words := strings.Split(string(docType), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
