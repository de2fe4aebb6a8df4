package starapi

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type draft struct {
	Title string `json:"title" yaml:"title" toml:"title"`
	Body  string `json:"body" yaml:"body" toml:"body"`
}

func payloadRequest(contentType, body string) *Request {
	raw := httptest.NewRequest(http.MethodPost, "/drafts", strings.NewReader(body))
	if contentType != "" {
		raw.Header.Set("Content-Type", contentType)
	}
	return newRequest(nil, nil, raw)
}

func TestPayloadDecodesByContentType(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{
			name:        "json",
			contentType: "application/json",
			body:        `{"title":"Hello","body":"World"}`,
		},
		{
			name:        "json with charset",
			contentType: "application/json; charset=utf-8",
			body:        `{"title":"Hello","body":"World"}`,
		},
		{
			name:        "no content type defaults to json",
			contentType: "",
			body:        `{"title":"Hello","body":"World"}`,
		},
		{
			name:        "yaml",
			contentType: "application/yaml",
			body:        "title: Hello\nbody: World\n",
		},
		{
			name:        "toml",
			contentType: "application/toml",
			body:        "title = \"Hello\"\nbody = \"World\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d draft
			err := payloadRequest(tt.contentType, tt.body).Payload(&d)
			require.NoError(t, err)
			assert.Equal(t, draft{Title: "Hello", Body: "World"}, d)
		})
	}
}

func TestPayloadInvalidBody(t *testing.T) {
	var d draft
	err := payloadRequest("application/json", "{oops").Payload(&d)

	var ibd *InvalidBodyDataError
	require.ErrorAs(t, err, &ibd)
	assert.Equal(t, "json", ibd.Format)
	assert.NotNil(t, ibd.Err)
}

func TestPayloadUnsupportedContentType(t *testing.T) {
	var d draft
	err := payloadRequest("application/msgpack", "whatever").Payload(&d)

	var ibd *InvalidBodyDataError
	require.ErrorAs(t, err, &ibd)
	assert.Equal(t, "application/msgpack", ibd.Format)
}

func TestFormValuesURLEncoded(t *testing.T) {
	r := payloadRequest("application/x-www-form-urlencoded", "name=ami&tags=a&tags=b")

	values, err := r.FormValues()
	require.NoError(t, err)
	assert.Equal(t, "ami", values.Get("name"))
	assert.Equal(t, []string{"a", "b"}, values["tags"])

	// The body stays readable after form parsing.
	body, err := r.Body()
	require.NoError(t, err)
	assert.Equal(t, "name=ami&tags=a&tags=b", string(body))
}

func TestFormValuesMultipart(t *testing.T) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("name", "ami"))
	fw, err := w.CreateFormFile("upload", "notes.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("file contents"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	raw := httptest.NewRequest(http.MethodPost, "/files", &buf)
	raw.Header.Set("Content-Type", w.FormDataContentType())
	r := newRequest(nil, nil, raw)

	values, err := r.FormValues()
	require.NoError(t, err)
	assert.Equal(t, "ami", values.Get("name"))

	fh, err := r.FormFile("upload")
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", fh.Filename)

	f, err := fh.Open()
	require.NoError(t, err)
	defer f.Close()
	content, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "file contents", string(content))

	_, err = r.FormFile("absent")
	assert.ErrorIs(t, err, http.ErrMissingFile)
}

func TestFormValuesWrongContentType(t *testing.T) {
	r := payloadRequest("application/json", "{}")

	_, err := r.FormValues()
	var ibd *InvalidBodyDataError
	require.ErrorAs(t, err, &ibd)
}
