package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"swipe-match-backend/internal/identity"
	"swipe-match-backend/internal/models"
	"swipe-match-backend/internal/repository"
	"swipe-match-backend/internal/services"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct{}

func (stubVerifier) Verify(ctx context.Context, idToken string) (*identity.Claims, error) {
	switch idToken {
	case "":
		return nil, identity.ErrInvalidToken
	case "foreign":
		return nil, identity.ErrUnauthorizedDomain
	}
	return &identity.Claims{Subject: idToken, Name: "Name " + idToken}, nil
}

type stubUploader struct{}

func (stubUploader) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return &s3.PutObjectOutput{}, nil
}

type stubPresigner struct{}

func (stubPresigner) PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return &v4.PresignedHTTPRequest{URL: "https://upload.example.com/" + *params.Key}, nil
}

type testServer struct {
	*httptest.Server
	store *repository.Memory
	users *services.UserService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := repository.NewMemory()
	hub := services.NewHub()
	directory := services.NewDirectory(store.Users())
	users := services.NewUserService(store.Users(), directory, stubVerifier{}, "secret", "admin-pass")
	pairing := services.NewPairingService(store.Partners(), store.Users(), directory, hub, nil)
	cards := services.NewCardService(store, time.Minute)
	matches := services.NewMatchService(store.Users(), store.Partners(), pairing, cards, hub, nil)
	images := services.NewImageService(stubUploader{}, stubPresigner{}, "bucket", "https://cdn.example.com")

	router := &Router{
		Users:     NewUserHandler(users),
		Partners:  NewPartnerHandler(pairing, matches),
		Cards:     NewCardHandler(cards, matches),
		Images:    NewImageHandler(images),
		WebSocket: NewWebSocketHandler(hub, hub, users, pairing, matches),
		Validator: users,
		Store:     store,
	}

	srv := httptest.NewServer(router.Handler())
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, store: store, users: users}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &decoded), string(data))
	}
	return resp, decoded
}

func (s *testServer) signIn(t *testing.T, subject string) (token, code string) {
	t.Helper()
	resp, body := s.do(t, http.MethodPost, "/api/v1/auth/signin", "", map[string]string{"id_token": subject})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	user := body["user"].(map[string]any)
	return body["token"].(string), user["code"].(string)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)

	resp, body := srv.do(t, http.MethodGet, "/api/v1/partners", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Authorization header required", body["error"])

	resp, _ = srv.do(t, http.MethodGet, "/api/v1/partners", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSignInProviderErrors(t *testing.T) {
	srv := newTestServer(t)

	resp, body := srv.do(t, http.MethodPost, "/api/v1/auth/signin", "", map[string]string{"provider_error": identity.CodePopupBlocked})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, identity.Message(identity.CodePopupBlocked), body["error"])

	resp, body = srv.do(t, http.MethodPost, "/api/v1/auth/signin", "", map[string]string{"id_token": "foreign"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, identity.Message(identity.CodeUnauthorizedDomain), body["error"])
}

func TestPairingFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	tokenA, _ := srv.signIn(t, "a")
	tokenB, codeB := srv.signIn(t, "b")

	resp, body := srv.do(t, http.MethodPost, "/api/v1/partners", tokenA, map[string]string{"partner_code": "ZZZZZZ"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Invalid partner code.", body["error"])

	resp, body = srv.do(t, http.MethodPost, "/api/v1/partners", tokenA, map[string]string{"partner_code": codeB})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, string(models.StatusPending), body["status"])

	// The requester cannot accept their own request.
	resp, _ = srv.do(t, http.MethodPost, "/api/v1/partners/b/accept", tokenA, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = srv.do(t, http.MethodPost, "/api/v1/partners/a/accept", tokenB, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, string(models.StatusAccepted), body["status"])

	resp, body = srv.do(t, http.MethodGet, "/api/v1/cards", tokenA, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cards := body["cards"].([]any)
	require.NotEmpty(t, cards)
	cardID := cards[0].(map[string]any)["id"].(string)

	for _, token := range []string{tokenA, tokenB} {
		resp, _ = srv.do(t, http.MethodPost, "/api/v1/cards/"+cardID+"/like", token, nil)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
	}

	resp, body = srv.do(t, http.MethodGet, "/api/v1/partners/b/matches", tokenA, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	matches := body["matches"].([]any)
	require.Len(t, matches, 1)
	assert.Equal(t, cardID, matches[0].(map[string]any)["id"])

	resp, body = srv.do(t, http.MethodGet, "/api/v1/partners/b/deck", tokenA, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["cards"].([]any), len(cards)-1)
}

func TestRejectAndRemoveOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	tokenA, _ := srv.signIn(t, "a")
	tokenB, codeB := srv.signIn(t, "b")

	resp, _ := srv.do(t, http.MethodPost, "/api/v1/partners", tokenA, map[string]string{"partner_code": codeB})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodDelete, "/api/v1/partners/b", tokenA, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodPost, "/api/v1/partners/a/reject", tokenB, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := srv.do(t, http.MethodPost, "/api/v1/partners", tokenA, map[string]string{"partner_code": codeB})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, body["error"], "rejected")

	resp, _ = srv.do(t, http.MethodDelete, "/api/v1/partners/b", tokenA, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = srv.do(t, http.MethodGet, "/api/v1/partners", tokenB, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["partners"])
}

func TestSelfRequestOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	tokenA, codeA := srv.signIn(t, "a")

	resp, body := srv.do(t, http.MethodPost, "/api/v1/partners", tokenA, map[string]string{"partner_code": codeA})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "You cannot pair with your own code.", body["error"])

	resp, _ = srv.do(t, http.MethodPost, "/api/v1/partners", tokenA, map[string]string{"partner_code": " "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminRoutes(t *testing.T) {
	srv := newTestServer(t)
	tokenA, _ := srv.signIn(t, "a")

	input := map[string]string{
		"title":       "Picnic",
		"description": "An afternoon in the park",
		"category":    string(models.CategoryFun),
		"image":       "https://example.com/picnic.jpg",
	}

	resp, _ := srv.do(t, http.MethodPost, "/api/v1/admin/cards", tokenA, input)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodPost, "/api/v1/admin/session", "", map[string]string{"password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := srv.do(t, http.MethodPost, "/api/v1/admin/session", "", map[string]string{"password": "admin-pass"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	admin := body["token"].(string)

	resp, body = srv.do(t, http.MethodPost, "/api/v1/admin/cards", admin, input)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	cardID := body["id"].(string)

	input["category"] = "Unknown"
	resp, _ = srv.do(t, http.MethodPut, "/api/v1/admin/cards/"+cardID, admin, input)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodDelete, "/api/v1/admin/cards/"+cardID, admin, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = srv.do(t, http.MethodPost, "/api/v1/admin/reconcile", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 0, body["orphans_removed"])

	resp, body = srv.do(t, http.MethodPost, "/api/v1/admin/reset", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["cards"])
}

func TestImageUpload(t *testing.T) {
	srv := newTestServer(t)
	token, _ := srv.signIn(t, "a")

	upload := func(data []byte) *http.Response {
		var buf bytes.Buffer
		form := multipart.NewWriter(&buf)
		part, err := form.CreateFormFile("file", "image.png")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
		require.NoError(t, form.WriteField("folder", services.FolderAvatars))
		require.NoError(t, form.Close())

		req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/images", &buf)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", form.FormDataContentType())
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	assert.Equal(t, http.StatusCreated, upload(png).StatusCode)
	assert.Equal(t, http.StatusUnsupportedMediaType, upload([]byte("plain text")).StatusCode)
	assert.Equal(t, http.StatusRequestEntityTooLarge, upload(append(png, make([]byte, services.MaxImageSize)...)).StatusCode)

	resp, body := srv.do(t, http.MethodPost, "/api/v1/images/presign", token, services.PresignRequest{ContentType: "image/png", Size: 1024})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body["upload_url"], "https://upload.example.com/cards/")
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	resp, body := srv.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestDescribe(t *testing.T) {
	testCases := []struct {
		err    error
		status int
	}{
		{services.ErrCodeNotFound, http.StatusNotFound},
		{fmt.Errorf("load: %w", services.ErrPairingNotFound), http.StatusNotFound},
		{services.ErrSelfRequest, http.StatusBadRequest},
		{services.ErrAlreadyAccepted, http.StatusConflict},
		{services.ErrNotPaired, http.StatusConflict},
		{services.ErrImageTooLarge, http.StatusRequestEntityTooLarge},
		{services.ErrUnsupportedImage, http.StatusUnsupportedMediaType},
		{services.ErrUnauthorized, http.StatusUnauthorized},
		{fmt.Errorf("%w: timeout", services.ErrRemoteFailure), http.StatusBadGateway},
		{services.ErrCodeExhausted, http.StatusBadGateway},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		message, status := describe(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.NotEmpty(t, message)
	}
}
