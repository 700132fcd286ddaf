package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Christina1281995/tema-emotions/internal/config"
	"github.com/Christina1281995/tema-emotions/internal/dataset"
	"github.com/Christina1281995/tema-emotions/internal/identity"
	"github.com/Christina1281995/tema-emotions/internal/models"
	"github.com/Christina1281995/tema-emotions/internal/repository"
	"github.com/Christina1281995/tema-emotions/internal/service"
	"github.com/Christina1281995/tema-emotions/internal/session"
)

const testCSV = `message_id,text,source,photo_url
101,Flood waters rising fast,twitter,
102,Sirens all over downtown,twitter,
103,Cat sleeping through the storm,instagram,
`

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := repository.NewDB(repository.DriverSQLite, ":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, repository.MigrateDB(db, zap.NewNop()))

	repo := repository.NewResultRepository(db, zap.NewNop())
	users := identity.NewDirectory([]config.UserEntry{{Name: "alice"}})
	sessions := session.NewManager(time.Hour, zap.NewNop())
	labeling := service.NewLabelingService(users, dataset.NewLoader(zap.NewNop()), sessions, repo, models.ModeEmotion, false, zap.NewNop())
	tokens := service.NewTokenIssuer([]byte("test-secret"), time.Hour)

	router := gin.New()
	NewHandler(labeling, tokens, sessions, true, zap.NewNop()).RegisterRoutes(router)
	return router
}

func doJSON(router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, router *gin.Engine, username string) models.LoginResponse {
	t.Helper()
	w := doJSON(router, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": username})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func uploadCSV(t *testing.T, router *gin.Engine, token, csvContent string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "data.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(csvContent))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/datasets/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func submitBody(index int, messageID int64, emotion string) gin.H {
	return gin.H{
		"displayed_index": index,
		"message_id":      messageID,
		"label":           gin.H{"emotion": emotion},
	}
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogin_UnknownUsername(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(router, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "mallory"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Username not found")
}

func TestLogin_MissingUsername(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(router, http.MethodPost, "/api/v1/auth/login", "", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthRequired(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/api/v1/rows/current", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(router, http.MethodGet, "/api/v1/rows/current", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLabelingFlow(t *testing.T) {
	router := newTestRouter(t)

	resp := login(t, router, "alice")
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, 0, resp.CurrentIndex)
	assert.Equal(t, models.EmotionNone, resp.FormDefaults.Emotion)

	// No dataset attached yet.
	w := doJSON(router, http.MethodGet, "/api/v1/rows/current", resp.Token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = uploadCSV(t, router, resp.Token, testCSV)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// First row is served.
	w = doJSON(router, http.MethodGet, "/api/v1/rows/current", resp.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var current models.CurrentRowResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &current))
	require.NotNil(t, current.Row)
	assert.Equal(t, 0, current.Row.RowIndex)
	assert.Equal(t, int64(101), current.Row.MessageID)

	// Label all three rows.
	for i, emotion := range []string{"Happiness", "Fear", "None"} {
		w = doJSON(router, http.MethodPost, "/api/v1/rows/submit", resp.Token,
			submitBody(i, int64(101+i), emotion))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var submit models.SubmitResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submit))
		assert.Equal(t, i+1, submit.CurrentIndex)
	}

	// End of data: no row, progress complete.
	w = doJSON(router, http.MethodGet, "/api/v1/rows/current", resp.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	current = models.CurrentRowResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &current))
	assert.Nil(t, current.Row)
	assert.True(t, current.Progress.Complete)
	assert.Equal(t, 100, current.Progress.Percent)

	// Export carries all three labels.
	w = doJSON(router, http.MethodGet, "/api/v1/export/json", resp.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var records []models.LabelRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	assert.Len(t, records, 3)
}

func TestSubmit_StaleReplayRejected(t *testing.T) {
	router := newTestRouter(t)
	resp := login(t, router, "alice")
	require.Equal(t, http.StatusOK, uploadCSV(t, router, resp.Token, testCSV).Code)

	w := doJSON(router, http.MethodPost, "/api/v1/rows/submit", resp.Token, submitBody(0, 101, "Happiness"))
	require.Equal(t, http.StatusOK, w.Code)

	// Page reload replays the same submission.
	w = doJSON(router, http.MethodPost, "/api/v1/rows/submit", resp.Token, submitBody(0, 101, "Happiness"))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "stale_submission")
}

func TestSubmit_RowIdentityMismatch(t *testing.T) {
	router := newTestRouter(t)
	resp := login(t, router, "alice")
	require.Equal(t, http.StatusOK, uploadCSV(t, router, resp.Token, testCSV).Code)

	w := doJSON(router, http.MethodPost, "/api/v1/rows/submit", resp.Token, submitBody(0, 999, "Happiness"))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "dataset_changed")
}

func TestSubmit_InvalidEmotion(t *testing.T) {
	router := newTestRouter(t)
	resp := login(t, router, "alice")
	require.Equal(t, http.StatusOK, uploadCSV(t, router, resp.Token, testCSV).Code)

	w := doJSON(router, http.MethodPost, "/api/v1/rows/submit", resp.Token, submitBody(0, 101, "Disgust"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_label")
}

func TestUpload_OnlyOnce(t *testing.T) {
	router := newTestRouter(t)
	resp := login(t, router, "alice")

	require.Equal(t, http.StatusOK, uploadCSV(t, router, resp.Token, testCSV).Code)
	w := uploadCSV(t, router, resp.Token, testCSV)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUpload_BadCSV(t *testing.T) {
	router := newTestRouter(t)
	resp := login(t, router, "alice")

	w := uploadCSV(t, router, resp.Token, "not,a,dataset\n1,2,3\n")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogout_InvalidatesSession(t *testing.T) {
	router := newTestRouter(t)
	resp := login(t, router, "alice")

	w := doJSON(router, http.MethodPost, "/api/v1/auth/logout", resp.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/api/v1/progress", resp.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestResume_AcrossLogins(t *testing.T) {
	router := newTestRouter(t)

	resp := login(t, router, "alice")
	require.Equal(t, http.StatusOK, uploadCSV(t, router, resp.Token, testCSV).Code)

	w := doJSON(router, http.MethodPost, "/api/v1/rows/submit", resp.Token, submitBody(0, 101, "Anger"))
	require.Equal(t, http.StatusOK, w.Code)

	// Second login resumes from persisted history, not from 0.
	resp2 := login(t, router, "alice")
	assert.Equal(t, 1, resp2.CurrentIndex)
}
