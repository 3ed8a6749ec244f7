package media

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\x0d\x0a\x1a\x0a\x00\x00\x00\x0dIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func formFile(t *testing.T, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", "upload.bin")
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(MaxImageBytes))
	return req.MultipartForm.File["image"][0]
}

func TestOpenImage(t *testing.T) {
	f, err := OpenImage(formFile(t, pngHeader))
	require.NoError(t, err)
	defer f.Close()

	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, got, "file is rewound after sniffing")
}

func TestOpenImageRejectsNonImages(t *testing.T) {
	_, err := OpenImage(formFile(t, []byte("just some text")))
	assert.ErrorIs(t, err, ErrNotImage)

	fh := formFile(t, pngHeader)
	fh.Size = MaxImageBytes + 1
	_, err = OpenImage(fh)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestTargets(t *testing.T) {
	post := PostImage(12)
	assert.Equal(t, "pulse/posts", post.Folder)
	assert.True(t, strings.HasPrefix(post.PublicID, "12_"))

	avatar := Avatar(12)
	assert.Equal(t, "pulse/avatars", avatar.Folder)
	assert.Equal(t, "12", avatar.PublicID)
}
