package httpclient

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kbukum/restkit/codec"
	apperrors "github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/mediatype"
)

type part struct {
	name, file, contentType, data string
}

func readParts(t *testing.T, data []byte, contentType string) []part {
	t.Helper()
	mt, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		t.Fatalf("ParseMediaType(%q): %v", contentType, err)
	}
	if mt != "multipart/form-data" {
		t.Fatalf("media type = %q, want multipart/form-data", mt)
	}
	mr := multipart.NewReader(bytes.NewReader(data), params["boundary"])
	var parts []part
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			return parts
		}
		if err != nil {
			t.Fatalf("NextPart error: %v", err)
		}
		b, _ := io.ReadAll(p)
		parts = append(parts, part{p.FormName(), p.FileName(), p.Header.Get("Content-Type"), string(b)})
	}
}

func TestMultipartBody_Encode(t *testing.T) {
	mp := &MultipartBody{
		Fields: map[string]string{"zeta": "z", "alpha": "a", "mid": "m"},
		Files: []FileField{
			{FieldName: "file", FileName: "audio.wav", Data: []byte("audio data")},
			{FieldName: "typed", FileName: "speech.wav", ContentType: "audio/wav", Data: []byte("wav")},
			{FieldName: "stream", FileName: "data.txt", Reader: bytes.NewReader([]byte("streamed"))},
		},
	}

	data, ct, err := mp.encode("")
	if err != nil {
		t.Fatalf("encode() error: %v", err)
	}
	parts := readParts(t, data, ct)

	want := []part{
		{"alpha", "", "", "a"},
		{"mid", "", "", "m"},
		{"zeta", "", "", "z"},
		{"file", "audio.wav", "application/octet-stream", "audio data"},
		{"typed", "speech.wav", "audio/wav", "wav"},
		{"stream", "data.txt", "application/octet-stream", "streamed"},
	}
	if len(parts) != len(want) {
		t.Fatalf("got %d parts, want %d: %+v", len(parts), len(want), parts)
	}
	for i := range want {
		if parts[i] != want[i] {
			t.Errorf("part %d = %+v, want %+v", i, parts[i], want[i])
		}
	}
}

func TestMultipartCodec_HonorsBoundary(t *testing.T) {
	reg := codec.NewRegistry(MultipartCodec())
	body, err := reg.Encode(&MultipartBody{Fields: map[string]string{"a": "1"}},
		mediatype.MustParse("multipart/form-data; boundary=fixed-boundary"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got, _ := body.ContentType().Param("boundary"); got != "fixed-boundary" {
		t.Errorf("boundary = %q", got)
	}
	data, _ := body.Bytes(t.Context())
	if !bytes.Contains(data, []byte("--fixed-boundary\r\n")) {
		t.Errorf("body does not use the declared boundary: %q", data)
	}
}

func TestMultipartCodec_RejectsOtherValues(t *testing.T) {
	reg := codec.NewRegistry(MultipartCodec())
	_, err := reg.Encode(map[string]string{"a": "1"}, multipartFormData)
	if !apperrors.IsCode(err, apperrors.ErrCodeEncodeFailed) {
		t.Fatalf("expected ENCODE_FAILED, got %v", err)
	}
}

func TestAdapter_Do_Multipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm error: %v", err)
			return
		}
		if got := r.FormValue("model"); got != "large-v3" {
			t.Errorf("model field = %q, want %q", got, "large-v3")
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile error: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "audio.wav" || string(data) != "audio bytes" {
			t.Errorf("file = %q %q", header.Filename, data)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"hello world"}`))
	}))
	defer srv.Close()

	adapter, err := New(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	resp, err := adapter.Do(t.Context(), Request{
		Method: http.MethodPost,
		Path:   "/transcribe",
		Body: &MultipartBody{
			Fields: map[string]string{"model": "large-v3"},
			Files: []FileField{
				{FieldName: "file", FileName: "audio.wav", Data: []byte("audio bytes")},
			},
		},
	})
	if err != nil {
		t.Fatalf("Do() error: %v", err)
	}

	var out struct {
		Text string `json:"text"`
	}
	if ok, err := resp.Decode(t.Context(), &out); !ok || err != nil {
		t.Fatalf("Decode = %v, %v", ok, err)
	}
	if out.Text != "hello world" {
		t.Errorf("text = %q", out.Text)
	}
}
