package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"legaldraft-backend/models"
	"legaldraft-backend/rag"
	"legaldraft-backend/service"

	"github.com/gin-gonic/gin"
)

type stubProvider struct{}

func (stubProvider) ID() string     { return "stub:v1" }
func (stubProvider) Dimension() int { return 2 }
func (stubProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	if strings.Contains(strings.ToLower(text), "interest") {
		return []float64{1, 0}, nil
	}
	return []float64{0, 1}, nil
}

type stubSource struct{}

func (stubSource) ListAll(ctx context.Context) ([]models.Clause, error) {
	return []models.Clause{
		{ID: "c1", Title: "Interest", Text: "interest terms", Jurisdiction: models.JurisdictionIN},
	}, nil
}

func (stubSource) ListChangedSince(ctx context.Context, since time.Time) ([]models.Clause, error) {
	return nil, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *rag.Pipeline) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	pipeline := rag.NewPipeline(stubProvider{}, stubSource{})
	draftService := service.NewDraftService(service.DraftWithPipeline(pipeline))
	draftHandler := NewDraftHandler(draftService)
	indexHandler := NewIndexHandler(pipeline)

	r := gin.New()
	api := r.Group("/api")
	api.POST("/draft-document", draftHandler.DraftDocument)
	api.GET("/document-types", draftHandler.GetDocumentTypes)
	api.POST("/validate-prompt", draftHandler.ValidatePrompt)
	api.POST("/index/build", indexHandler.BuildIndex)
	api.POST("/index/refresh", indexHandler.RefreshIndex)
	api.GET("/index/status", indexHandler.GetIndexStatus)
	return r, pipeline
}

func doRequest(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid response body %q: %v", w.Body.String(), err)
	}
	return env
}

func TestGetDocumentTypes(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doRequest(t, r, http.MethodGet, "/api/document-types", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	env := decodeEnvelope(t, w)
	if !env.Success {
		t.Error("success = false")
	}

	var infos []models.DocumentTypeInfo
	if err := json.Unmarshal(env.Data, &infos); err != nil {
		t.Fatalf("invalid data: %v", err)
	}
	if len(infos) == 0 {
		t.Error("no document types returned")
	}
}

func TestValidatePromptEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doRequest(t, r, http.MethodPost, "/api/validate-prompt",
		`{"prompt": "I need a loan agreement between a lender and a borrower"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	env := decodeEnvelope(t, w)

	var result service.ValidatePromptResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("invalid data: %v", err)
	}
	if !result.Valid || result.DocumentType != models.DocTypeLoanAgreement {
		t.Errorf("result = %+v", result)
	}
}

func TestValidatePromptRequiresBody(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doRequest(t, r, http.MethodPost, "/api/validate-prompt", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	env := decodeEnvelope(t, w)
	if env.Error.Code != "INVALID_REQUEST" {
		t.Errorf("error code = %s", env.Error.Code)
	}
}

func TestDraftDocumentRejectsMissingPrompt(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doRequest(t, r, http.MethodPost, "/api/draft-document", `{"document_type": "loan_agreement"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestIndexLifecycleEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doRequest(t, r, http.MethodGet, "/api/index/status", "")
	env := decodeEnvelope(t, w)
	var status rag.Status
	if err := json.Unmarshal(env.Data, &status); err != nil {
		t.Fatalf("invalid status: %v", err)
	}
	if status.State != rag.StateUninitialized {
		t.Errorf("initial state = %s, want %s", status.State, rag.StateUninitialized)
	}

	w = doRequest(t, r, http.MethodPost, "/api/index/build", "")
	if w.Code != http.StatusOK {
		t.Fatalf("build status = %d, body %s", w.Code, w.Body.String())
	}

	w = doRequest(t, r, http.MethodGet, "/api/index/status", "")
	env = decodeEnvelope(t, w)
	if err := json.Unmarshal(env.Data, &status); err != nil {
		t.Fatalf("invalid status: %v", err)
	}
	if status.State != rag.StateReady || status.IndexSize != 1 {
		t.Errorf("status after build = %+v", status)
	}

	w = doRequest(t, r, http.MethodPost, "/api/index/refresh", "")
	if w.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, body %s", w.Code, w.Body.String())
	}
}
