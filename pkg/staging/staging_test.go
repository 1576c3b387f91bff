package staging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"

	apperrors "github.com/matzehuels/specsync/pkg/errors"
)

type part struct {
	field, filename, ctype string
	body                   []byte
}

func request(t *testing.T, parts ...part) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		disp := fmt.Sprintf(`form-data; name="%s"`, p.field)
		if p.filename != "" {
			disp += fmt.Sprintf(`; filename="%s"`, p.filename)
		}
		h.Set("Content-Disposition", disp)
		if p.ctype != "" {
			h.Set("Content-Type", p.ctype)
		}
		pw, err := w.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		pw.Write(p.body)
	}
	w.Close()
	r := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	r.Header.Set("Content-Type", w.FormDataContentType())
	return r
}

func pngData(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(1, 1, color.RGBA{B: 255, A: 255})
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newStager(t *testing.T, max int64) *Stager {
	t.Helper()
	s, err := New(t.TempDir(), max)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func dirEntries(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	return len(entries)
}

func TestReceive(t *testing.T) {
	s := newStager(t, 0)
	data := pngData(t, 8, 6)
	r := request(t,
		part{field: "layers", body: []byte(`{"name":"Frame"}`)},
		part{field: "imageUrl", filename: "Checkout.png", ctype: "image/png", body: data},
	)

	up, err := s.Receive(r, "imageUrl")
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if up.File == nil {
		t.Fatal("file not staged")
	}
	if up.File.Name != "Checkout.png" || up.File.BaseName() != "Checkout" {
		t.Errorf("Name = %q BaseName = %q", up.File.Name, up.File.BaseName())
	}
	if up.File.Size != int64(len(data)) {
		t.Errorf("Size = %d, want %d", up.File.Size, len(data))
	}
	got, err := up.File.Read()
	if err != nil || !bytes.Equal(got, data) {
		t.Errorf("Read() = %d bytes, %v", len(got), err)
	}
	if up.Values["layers"] != `{"name":"Frame"}` {
		t.Errorf("layers = %q", up.Values["layers"])
	}

	if err := up.Cleanup(); err != nil {
		t.Fatal(err)
	}
	if err := up.Cleanup(); err != nil {
		t.Errorf("second Cleanup = %v", err)
	}
	if n := dirEntries(t, s.Dir()); n != 0 {
		t.Errorf("staging dir holds %d files after cleanup", n)
	}
}

func TestReceiveMissingFile(t *testing.T) {
	s := newStager(t, 0)
	up, err := s.Receive(request(t, part{field: "name", body: []byte("x")}), "annotatedImage")
	if err != nil {
		t.Fatal(err)
	}
	if up.File != nil {
		t.Error("File should be nil without a file part")
	}
	if up.Cleanup() != nil {
		t.Error("Cleanup without file should be a no-op")
	}
}

func TestReceiveRejects(t *testing.T) {
	tests := []struct {
		name string
		max  int64
		part part
		code apperrors.Code
	}{
		{"gif", 0, part{"f", "anim.gif", "image/gif", []byte("GIF89a")}, apperrors.ErrCodeInvalidUpload},
		{"pdf mime", 0, part{"f", "shot.png", "application/pdf", []byte("x")}, apperrors.ErrCodeInvalidUpload},
		{"too large", 16, part{"f", "big.png", "image/png", bytes.Repeat([]byte{1}, 17)}, apperrors.ErrCodeUploadTooLarge},
		{"empty", 0, part{"f", "empty.png", "image/png", nil}, apperrors.ErrCodeMissingImage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStager(t, tt.max)
			_, err := s.Receive(request(t, tt.part), "f")
			if !apperrors.Is(err, tt.code) {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
			if n := dirEntries(t, s.Dir()); n != 0 {
				t.Errorf("rejected upload left %d files behind", n)
			}
		})
	}
}

func TestReceiveAtLimit(t *testing.T) {
	s := newStager(t, 16)
	up, err := s.Receive(request(t, part{"f", "ok.jpg", "image/jpeg", bytes.Repeat([]byte{1}, 16)}), "f")
	if err != nil {
		t.Fatalf("upload at the limit rejected: %v", err)
	}
	defer up.Cleanup()
	if up.File.Size != 16 {
		t.Errorf("Size = %d", up.File.Size)
	}
}

func TestReceiveDuplicateFile(t *testing.T) {
	s := newStager(t, 0)
	data := pngData(t, 2, 2)
	r := request(t,
		part{"f", "a.png", "image/png", data},
		part{"f", "b.png", "image/png", data},
	)
	if _, err := s.Receive(r, "f"); !apperrors.Is(err, apperrors.ErrCodeInvalidUpload) {
		t.Errorf("error = %v, want INVALID_UPLOAD", err)
	}
	if n := dirEntries(t, s.Dir()); n != 0 {
		t.Errorf("%d files left behind", n)
	}
}

func TestReceiveNotMultipart(t *testing.T) {
	s := newStager(t, 0)
	r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("{}"))
	r.Header.Set("Content-Type", "application/json")
	if _, err := s.Receive(r, "f"); !apperrors.Is(err, apperrors.ErrCodeInvalidUpload) {
		t.Errorf("error = %v, want INVALID_UPLOAD", err)
	}
}

func TestNormalizeImage(t *testing.T) {
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 30, 20))
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	n, err := NormalizeImage(buf.Bytes())
	if err != nil {
		t.Fatalf("NormalizeImage: %v", err)
	}
	if n.Width != 30 || n.Height != 20 {
		t.Errorf("size = %dx%d, want 30x20", n.Width, n.Height)
	}
	if _, format, err := image.DecodeConfig(bytes.NewReader(n.Data)); err != nil || format != "png" {
		t.Errorf("normalized format = %q, %v; want png", format, err)
	}

	if _, err := NormalizeImage([]byte("nope")); !apperrors.Is(err, apperrors.ErrCodeInvalidUpload) {
		t.Errorf("garbage: %v", err)
	}
}
