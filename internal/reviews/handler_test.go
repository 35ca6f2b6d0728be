package reviews_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classreviews/internal/reviews"
)

func newRouter(t *testing.T) (*gin.Engine, *fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := newFixture(t)
	r := gin.New()
	reviews.NewHandler(f.svc, "anonymous").RegisterRoutes(r.Group("/api"))
	return r, f
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestHandler_CreateListReact(t *testing.T) {
	r, _ := newRouter(t)

	rec, created := doJSON(t, r, http.MethodPost, "/api/reviews", map[string]string{
		"content":  "best lab partner ever",
		"category": "Shoutout",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := created["id"].(string)
	assert.Equal(t, "Anonymous_7", created["nickname"])
	assert.EqualValues(t, 0, created["total_reactions"])

	rec, body := doJSON(t, r, http.MethodPost, "/api/reviews/"+id+"/reactions", map[string]string{"kind": "fire"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "added", body["outcome"])
	card := body["review"].(map[string]any)
	assert.EqualValues(t, 1, card["total_reactions"])
	assert.Equal(t, "fire", card["top_reaction"])

	rec, body = doJSON(t, r, http.MethodGet, "/api/reviews?category=Shoutout&sort=Popular", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["total"])

	rec, body = doJSON(t, r, http.MethodGet, "/api/reviews?category=Regrets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, body["total"])
	assert.Empty(t, body["items"])
}

func TestHandler_ListReturnsWholeView(t *testing.T) {
	r, f := newRouter(t)
	for _, content := range []string{"one", "two", "three"} {
		f.submit(t, content)
	}

	rec, body := doJSON(t, r, http.MethodGet, "/api/reviews?offset=1&limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, body["total"])
	assert.Len(t, body["items"], 3)
	assert.NotContains(t, body, "offset")
}

func TestHandler_ErrorMapping(t *testing.T) {
	r, f := newRouter(t)

	rec, body := doJSON(t, r, http.MethodPost, "/api/reviews", map[string]string{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "empty_content", body["rule"])

	rec, body = doJSON(t, r, http.MethodPost, "/api/reviews/x/reactions", map[string]string{"kind": "clap"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown_reaction", body["rule"])

	rec, _ = doJSON(t, r, http.MethodPost, "/api/reviews/missing/reactions", map[string]string{"kind": "heart"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = doJSON(t, r, http.MethodGet, "/api/reviews?sort=Oldest", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.repo.failCreate = true
	rec, _ = doJSON(t, r, http.MethodPost, "/api/reviews", map[string]string{"content": "hello"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandler_QuotaPerReviewer(t *testing.T) {
	r, f := newRouter(t)
	var ids []string
	for i := 0; i < 6; i++ {
		ids = append(ids, f.submit(t, "post").ID)
	}

	for _, id := range ids[:5] {
		rec, _ := doJSON(t, r, http.MethodPost, "/api/reviews/"+id+"/reactions", map[string]string{"kind": "heart"})
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec, _ := doJSON(t, r, http.MethodPost, "/api/reviews/"+ids[5]+"/reactions", map[string]string{"kind": "heart"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// a distinct reviewer has their own allowance
	rec, _ = doJSON(t, r, http.MethodPost, "/api/reviews/"+ids[5]+"/reactions", map[string]string{"kind": "heart"},
		reviews.ReviewerHeader, "browser-2")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_EditAndDelete(t *testing.T) {
	r, f := newRouter(t)
	id := f.submit(t, "typo").ID

	rec, body := doJSON(t, r, http.MethodPatch, "/api/reviews/"+id, map[string]string{"content": "fixed", "category": "Regrets"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fixed", body["content"])
	assert.Equal(t, "Regrets", body["category"])

	rec, _ = doJSON(t, r, http.MethodDelete, "/api/reviews/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, r, http.MethodDelete, "/api/reviews/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_MultipartUpload(t *testing.T) {
	r, _ := newRouter(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("content", "class photo"))
	require.NoError(t, w.WriteField("category", "Heartwarming"))
	part, err := w.CreateFormFile("image", "photo.png")
	require.NoError(t, err)
	_, err = part.Write([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/reviews", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "http://cdn/img1", body["image_url"])
	assert.Equal(t, "Heartwarming", body["category"])
}

func TestHandler_Categories(t *testing.T) {
	r, _ := newRouter(t)
	rec, body := doJSON(t, r, http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["categories"], 8)
	assert.Len(t, body["filters"], 9)
	assert.Equal(t, []any{"heart", "laugh", "surprise", "sad", "fire"}, body["reactions"])
}
