package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cartly-ai/shopsearch/internal/agent"
	"github.com/cartly-ai/shopsearch/internal/catalog"
	"github.com/cartly-ai/shopsearch/internal/domain"
	"github.com/cartly-ai/shopsearch/internal/domain/search/result"
	"github.com/cartly-ai/shopsearch/internal/engine"
	"github.com/cartly-ai/shopsearch/internal/index/memory"
	"github.com/cartly-ai/shopsearch/internal/indexer"
)

type testEmbedder struct{}

func (testEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if strings.Contains(strings.ToLower(t), "headphones") {
			out[i] = []float32{1, 0}
		} else {
			out[i] = []float32{0, 1}
		}
	}
	return out, nil
}

func (testEmbedder) Dimensions() int { return 2 }

type testClassifier struct {
	directive domain.ClassifierDirective
}

func (c testClassifier) Classify(context.Context, string, bool, string) (domain.ClassifierDirective, error) {
	return c.directive, nil
}

func newTestServer(t *testing.T, directive domain.ClassifierDirective) (*Server, *memory.Index) {
	t.Helper()

	store := catalog.FromSnapshot(catalog.Snapshot{Products: []domain.Product{
		{
			ID: "P1", Title: "Wireless Headphones", Category: "Electronics",
			Price: domain.Float(45), Rating: domain.Float(4.5),
			Description: "Bluetooth headphones",
		},
	}})
	mem := memory.New(2)
	ixr := indexer.New(testEmbedder{}, mem, indexer.Config{}, nil)
	if _, err := ixr.Index(context.Background(), store.All()); err != nil {
		t.Fatal(err)
	}

	eng := engine.New(testEmbedder{}, mem, store, nil)
	ag := agent.New(eng, testClassifier{directive: directive}, nil, nil, store, agent.Config{}, nil)
	return NewServer(ag, eng, ixr, mem, store, nil, zap.NewNop()), mem
}

func newTestRouter(t *testing.T, directive domain.ClassifierDirective) (http.Handler, *memory.Index) {
	t.Helper()
	srv, mem := newTestServer(t, directive)
	r := chirouter.NewRouter()
	srv.Routes(r)
	return r, mem
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestSearch_Handler(t *testing.T) {
	h, _ := newTestRouter(t, domain.ClassifierDirective{})

	rr := doJSON(t, h, "POST", "/api/search",
		`{"query": "wireless headphones", "top_k": 5, "min_similarity": 0.0}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp result.Response
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.TotalFound != 1 || len(resp.Results) != 1 {
		t.Errorf("total=%d results=%d, want 1/1", resp.TotalFound, len(resp.Results))
	}
	if resp.Results[0].Product.ID != "P1" {
		t.Errorf("product = %s", resp.Results[0].Product.ID)
	}
}

func TestSearch_Handler_InvalidBody(t *testing.T) {
	h, _ := newTestRouter(t, domain.ClassifierDirective{})

	rr := doJSON(t, h, "POST", "/api/search", `{"query": `)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestSearch_Handler_EmptyQuery(t *testing.T) {
	h, _ := newTestRouter(t, domain.ClassifierDirective{})

	rr := doJSON(t, h, "POST", "/api/search", `{"query": "   "}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}

	var errResp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatal(err)
	}
	if errResp.Code != CodeValidationFailed {
		t.Errorf("code = %s, want %s", errResp.Code, CodeValidationFailed)
	}
}

func TestChat_Handler(t *testing.T) {
	h, _ := newTestRouter(t, domain.ClassifierDirective{
		Intent: domain.IntentGeneral,
		Reply:  "Hello!",
	})

	rr := doJSON(t, h, "POST", "/api/chat", `{"message": "hi"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp agent.ChatResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Type != agent.TypeConversation || resp.Message != "Hello!" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestChat_Handler_MissingMessage(t *testing.T) {
	h, _ := newTestRouter(t, domain.ClassifierDirective{})

	rr := doJSON(t, h, "POST", "/api/chat", `{}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestChat_Handler_BadImageEncoding(t *testing.T) {
	h, _ := newTestRouter(t, domain.ClassifierDirective{})

	rr := doJSON(t, h, "POST", "/api/chat", `{"message": "look", "image": "not-base64!!"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestAgentInfo_Handler(t *testing.T) {
	h, _ := newTestRouter(t, domain.ClassifierDirective{})

	req := httptest.NewRequest("GET", "/api/agent/info", http.NoBody)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var info agent.Info
	if err := json.NewDecoder(rr.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if info.Name != "Cartly" || info.TotalProducts != 1 {
		t.Errorf("info = %+v", info)
	}
}

func TestReindex_Handler(t *testing.T) {
	h, mem := newTestRouter(t, domain.ClassifierDirective{})

	rr := doJSON(t, h, "POST", "/api/admin/reindex", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp reindexResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Products != 1 || resp.ViewsUpserted != 2 {
		t.Errorf("resp = %+v, want 1 product, 2 views", resp)
	}

	stats, _ := mem.Describe(context.Background())
	if stats.TotalVectorCount != 2 {
		t.Errorf("index count = %d", stats.TotalVectorCount)
	}
}

func TestClearIndex_Handler(t *testing.T) {
	h, mem := newTestRouter(t, domain.ClassifierDirective{})

	req := httptest.NewRequest("DELETE", "/api/admin/index", http.NoBody)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rr.Code)
	}
	stats, _ := mem.Describe(context.Background())
	if stats.TotalVectorCount != 0 {
		t.Errorf("index count after clear = %d", stats.TotalVectorCount)
	}
}

func TestHealth_Handler(t *testing.T) {
	h, _ := newTestRouter(t, domain.ClassifierDirective{})

	req := httptest.NewRequest("GET", "/health", http.NoBody)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %s", resp.Status)
	}
}
