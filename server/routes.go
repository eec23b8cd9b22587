// Package server exposes the translation pipeline over HTTP.
package server

import (
	"errors"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/nmtkit/go-constrained/align"
	"github.com/nmtkit/go-constrained/pipeline"
)

// TranslateRequest is the JSON body of POST /translate.
type TranslateRequest struct {
	SourceLang        string   `json:"source_lang" binding:"required"`
	TargetLang        string   `json:"target_lang" binding:"required"`
	SourceSentence    string   `json:"source_sentence" binding:"required"`
	TargetConstraints []string `json:"target_constraints"`
	NBest             int      `json:"n_best"`
}

// TranslationPayload is one ranked translation. Spans are [start, end) rune
// offsets into Text marking the constrained ranges.
type TranslationPayload struct {
	Text  string   `json:"text"`
	Spans [][2]int `json:"spans"`
	Score float64  `json:"score"`
}

// TranslateResponse is the JSON body answered by POST /translate.
type TranslateResponse struct {
	ID                 string               `json:"id"`
	RankedTranslations []string             `json:"ranked_translations"`
	Translations       []TranslationPayload `json:"translations"`
}

// NewRouter builds the HTTP routes over the given engine.
func NewRouter(engine *pipeline.Engine) *gin.Engine {
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/translate", func(c *gin.Context) {
		var req TranslateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}

		id := uuid.NewString()
		result, err := engine.Translate(pipeline.Request{
			SourceLang:     req.SourceLang,
			TargetLang:     req.TargetLang,
			SourceSentence: req.SourceSentence,
			Constraints:    req.TargetConstraints,
			NBest:          req.NBest,
		})
		if err != nil {
			if errors.Is(err, pipeline.ErrUnknownLanguagePair) {
				klog.Errorf("[%s] no model for %s-%s", id, req.SourceLang, req.TargetLang)
				c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
				return
			}
			klog.Errorf("[%s] translate failed: %+v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
			return
		}

		resp := TranslateResponse{ID: id}
		for _, tr := range result.Translations {
			resp.RankedTranslations = append(resp.RankedTranslations, tr.Text)
			resp.Translations = append(resp.Translations, TranslationPayload{
				Text:  tr.Text,
				Spans: spanPairs(tr.Spans),
				Score: tr.Score,
			})
		}
		klog.V(1).Infof("[%s] %s-%s: %d translations", id, req.SourceLang, req.TargetLang, len(resp.Translations))
		c.JSON(http.StatusOK, resp)
	})

	return r
}

// spanPairs renders spans as [start, end) pairs.
func spanPairs(spans []align.Span) [][2]int {
	pairs := make([][2]int, len(spans))
	for i, s := range spans {
		pairs[i] = [2]int{s.Start, s.End}
	}
	return pairs
}

// Serve runs the router on the given listener until the listener closes.
func Serve(ln net.Listener, engine *pipeline.Engine) error {
	klog.Infof("listening on %s", ln.Addr())
	s := &http.Server{Handler: NewRouter(engine)}
	return s.Serve(ln)
}
