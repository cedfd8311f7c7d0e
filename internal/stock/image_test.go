package stock

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"dairy-backend/internal/apitest"
	"dairy-backend/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type fakeStore struct {
	saved [][]byte
	err   error
}

func (s *fakeStore) Save(_ context.Context, filename, _ string, r io.Reader) (storage.Object, error) {
	if s.err != nil {
		return storage.Object{}, s.err
	}
	data, _ := io.ReadAll(r)
	s.saved = append(s.saved, data)
	return storage.Object{Key: "2024/01/01/" + filename, URL: "http://x/uploads/2024/01/01/" + filename}, nil
}

func multipartRequest(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if field != "" {
		part, err := w.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	} else {
		require.NoError(t, w.WriteField("note", "no file"))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func postImage(t *testing.T, app *fiber.App, path, field, filename string, data []byte) int {
	t.Helper()
	body, contentType := multipartRequest(t, field, filename, data)
	req := httptest.NewRequest("POST", path, body)
	req.Header.Set("Content-Type", contentType)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestUploadHandler(t *testing.T) {
	store := &fakeStore{}
	app := apitest.NewApp(apitest.Admin())
	app.Post("/stock/upload", UploadHandler(store, 1024))

	assert.Equal(t, fiber.StatusCreated, postImage(t, app, "/stock/upload", "image", "shelf.png", pngBytes))
	require.Len(t, store.saved, 1)
	assert.Equal(t, pngBytes, store.saved[0])
}

func TestUploadHandler_Rejects(t *testing.T) {
	store := &fakeStore{}
	app := apitest.NewApp(apitest.Admin())
	app.Post("/stock/upload", UploadHandler(store, 64))

	assert.Equal(t, fiber.StatusBadRequest, postImage(t, app, "/stock/upload", "", "", nil), "missing file")
	assert.Equal(t, fiber.StatusBadRequest, postImage(t, app, "/stock/upload", "photo", "a.png", pngBytes), "wrong field")
	assert.Equal(t, fiber.StatusBadRequest, postImage(t, app, "/stock/upload", "image", "notes.txt", []byte("just some text")), "not an image")
	assert.Equal(t, fiber.StatusBadRequest, postImage(t, app, "/stock/upload", "image", "big.png", append(pngBytes, make([]byte, 100)...)), "oversize")
	assert.Empty(t, store.saved)
}

func TestUploadHandler_StorageFailure(t *testing.T) {
	app := apitest.NewApp(apitest.Admin())
	app.Post("/stock/upload", UploadHandler(&fakeStore{err: errors.New("disk full")}, 1024))

	assert.Equal(t, fiber.StatusInternalServerError, postImage(t, app, "/stock/upload", "image", "a.png", pngBytes))
}
