package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmtkit/go-constrained/pipeline"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter() *gin.Engine {
	engine := pipeline.NewEngine()
	pt := pipeline.NewPassthrough()
	engine.RegisterModel(pipeline.LangPair{Source: "en", Target: "de"}, pt, pt)
	return NewRouter(engine)
}

func postTranslate(t *testing.T, r *gin.Engine, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/translate", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTranslateEndpoint(t *testing.T) {
	w := postTranslate(t, newTestRouter(), TranslateRequest{
		SourceLang:        "en",
		TargetLang:        "de",
		SourceSentence:    "good morning",
		TargetConstraints: []string{"guten Morgen"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp TranslateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	require.Len(t, resp.RankedTranslations, 1)
	assert.Equal(t, "good morning guten Morgen", resp.RankedTranslations[0])
	require.Len(t, resp.Translations, 1)
	assert.Equal(t, [][2]int{{13, 25}}, resp.Translations[0].Spans)
}

func TestTranslateEndpointUnknownPair(t *testing.T) {
	w := postTranslate(t, newTestRouter(), TranslateRequest{
		SourceLang:     "en",
		TargetLang:     "fr",
		SourceSentence: "hello",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTranslateEndpointBadRequest(t *testing.T) {
	r := newTestRouter()

	// Missing required fields.
	w := postTranslate(t, r, gin.H{"source_lang": "en"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Not JSON at all.
	req := httptest.NewRequest(http.MethodPost, "/translate", bytes.NewReader([]byte("nope")))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
