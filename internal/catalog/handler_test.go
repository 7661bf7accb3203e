package catalog

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// pngHeader is enough for content sniffing to recognise a PNG.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type formFile struct {
	name        string
	contentType string
	data        []byte
}

func multipartRequest(t *testing.T, fields map[string]string, file *formFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="foto"; filename="`+file.name+`"`)
		if file.contentType != "" {
			h.Set("Content-Type", file.contentType)
		}
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/adicionar-roupa", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newTestHandler(t *testing.T, variant Variant) (*Handler, *memRepo, *memStore) {
	t.Helper()
	svc, repo, store := newTestService(t, variant)
	return NewHandler(svc, zaptest.NewLogger(t), 1<<20), repo, store
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestLiveness(t *testing.T) {
	h, _, _ := newTestHandler(t, VariantDisk)
	rec := httptest.NewRecorder()

	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Endpoint está funcionando!", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
}

func TestCreateObjectVariantThenList(t *testing.T) {
	h, repo, store := newTestHandler(t, VariantObject)

	rec := httptest.NewRecorder()
	h.Create(rec, multipartRequest(t,
		map[string]string{"nome": "Camisa", "preco": "49.90"},
		&formFile{name: "camisa.jpg", contentType: "image/jpeg", data: []byte("jpeg")},
	))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeMessage(t, rec)
	assert.Equal(t, "Roupa adicionada com sucesso!", body["message"])
	assert.Equal(t, testPublicBase+"/fotos/1718000000000_camisa.jpg", body["fotoUrl"])

	key, ok := store.KeyOf(body["fotoUrl"])
	require.True(t, ok)
	obj, ok := store.object(key)
	require.True(t, ok)
	assert.Equal(t, "jpeg", string(obj.data))
	require.Len(t, repo.items, 1)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/roupas", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Camisa", rows[0]["nome"])
	assert.Equal(t, "49.9", rows[0]["preco"])
	assert.Equal(t, body["fotoUrl"], rows[0]["caminho"])
}

func TestCreateDiskVariantOmitsURL(t *testing.T) {
	h, _, _ := newTestHandler(t, VariantDisk)

	rec := httptest.NewRecorder()
	h.Create(rec, multipartRequest(t,
		map[string]string{"nome": "Camisa"},
		&formFile{name: "camisa.jpg", contentType: "image/jpeg", data: []byte("jpeg")},
	))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"message":"Roupa adicionada com sucesso!"}`, strings.TrimSpace(rec.Body.String()))
}

func TestCreateMissingPhoto(t *testing.T) {
	h, repo, _ := newTestHandler(t, VariantDisk)

	rec := httptest.NewRecorder()
	h.Create(rec, multipartRequest(t, map[string]string{"nome": "Camisa"}, nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, `{"message":"Nome e foto são necessários."}`, strings.TrimSpace(rec.Body.String()))
	assert.Empty(t, repo.items)
}

func TestCreateObjectMissingPrice(t *testing.T) {
	h, repo, store := newTestHandler(t, VariantObject)

	rec := httptest.NewRecorder()
	h.Create(rec, multipartRequest(t,
		map[string]string{"nome": "Camisa"},
		&formFile{name: "camisa.jpg", contentType: "image/jpeg", data: []byte("jpeg")},
	))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Nome, preço e foto são necessários.", decodeMessage(t, rec)["message"])
	assert.Empty(t, repo.items)
	assert.Zero(t, store.count())
}

func TestCreateNotMultipart(t *testing.T) {
	h, repo, _ := newTestHandler(t, VariantDisk)

	req := httptest.NewRequest(http.MethodPost, "/api/adicionar-roupa", strings.NewReader("nome=Camisa"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Nome e foto são necessários.", decodeMessage(t, rec)["message"])
	assert.Empty(t, repo.items)
}

func TestCreateSniffsUndeclaredContentType(t *testing.T) {
	h, _, store := newTestHandler(t, VariantDisk)

	rec := httptest.NewRecorder()
	h.Create(rec, multipartRequest(t,
		map[string]string{"nome": "Calça"},
		&formFile{name: "calca.png", contentType: "application/octet-stream", data: pngHeader},
	))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	obj, ok := store.object("calca.png")
	require.True(t, ok)
	assert.Equal(t, "image/png", obj.contentType)
	assert.Equal(t, pngHeader, obj.data, "sniffing must not consume the body")
}

func TestCreateTooLarge(t *testing.T) {
	svc, repo, _ := newTestService(t, VariantDisk)
	h := NewHandler(svc, zaptest.NewLogger(t), 512)

	rec := httptest.NewRecorder()
	h.Create(rec, multipartRequest(t,
		map[string]string{"nome": "Camisa"},
		&formFile{name: "big.jpg", contentType: "image/jpeg", data: bytes.Repeat([]byte("x"), 4096)},
	))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, repo.items)
}

func TestCreateStorageFailureHidesCause(t *testing.T) {
	h, repo, store := newTestHandler(t, VariantDisk)
	store.uploadErr = errBoom

	rec := httptest.NewRecorder()
	h.Create(rec, multipartRequest(t,
		map[string]string{"nome": "Camisa"},
		&formFile{name: "camisa.jpg", contentType: "image/jpeg", data: []byte("jpeg")},
	))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, `{"message":"Erro ao adicionar roupa."}`, strings.TrimSpace(rec.Body.String()))
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
	assert.Empty(t, repo.items)
}

func TestListEmptyIsArray(t *testing.T) {
	h, _, _ := newTestHandler(t, VariantDisk)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/roupas", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestListFailureHidesCause(t *testing.T) {
	h, repo, _ := newTestHandler(t, VariantDisk)
	repo.listErr = errBoom

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/roupas", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, `{"message":"Erro ao buscar roupas."}`, strings.TrimSpace(rec.Body.String()))
}
