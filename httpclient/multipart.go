package httpclient

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strings"

	"github.com/kbukum/restkit/codec"
	"github.com/kbukum/restkit/mediatype"
)

// MultipartBody represents a multipart/form-data request body. Pass it as
// Request.Body; the multipart codec encodes it and sets the boundary.
type MultipartBody struct {
	// Fields are simple key-value form fields, written in key order.
	Fields map[string]string
	// Files are file upload fields.
	Files []FileField
}

// FileField represents a file to upload in a multipart request.
type FileField struct {
	// FieldName is the form field name (e.g., "file", "audio").
	FieldName string
	// FileName is the file name sent to the server.
	FileName string
	// ContentType is the MIME type (e.g., "audio/wav"). If empty, uses application/octet-stream.
	ContentType string
	// Data is the file content. Used if Reader is nil.
	Data []byte
	// Reader is an alternative to Data. It is drained while encoding.
	Reader io.Reader
}

// MultipartCodec encodes *MultipartBody values as multipart/form-data. A
// boundary parameter on the declared type is honored. It has no decoder.
func MultipartCodec() *codec.Codec {
	return &codec.Codec{
		Name:     "multipart",
		Accepted: multipartFormData,
		Binary:   true,
		Encode: func(v any, declared mediatype.MediaType) ([]byte, mediatype.MediaType, error) {
			var m *MultipartBody
			switch body := v.(type) {
			case *MultipartBody:
				m = body
			case MultipartBody:
				m = &body
			default:
				return nil, mediatype.MediaType{}, fmt.Errorf("multipart codec cannot encode %T", v)
			}
			boundary, _ := declared.Param("boundary")
			data, ct, err := m.encode(boundary)
			if err != nil {
				return nil, mediatype.MediaType{}, err
			}
			wire, err := mediatype.Parse(ct)
			if err != nil {
				return nil, mediatype.MediaType{}, err
			}
			return data, wire, nil
		},
	}
}

// encode builds the multipart body and returns it with its content-type header.
func (m *MultipartBody) encode(boundary string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if boundary != "" {
		if err := w.SetBoundary(boundary); err != nil {
			return nil, "", err
		}
	}

	keys := make([]string, 0, len(m.Fields))
	for k := range m.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, m.Fields[k]); err != nil {
			return nil, "", err
		}
	}

	for _, f := range m.Files {
		var part io.Writer
		var err error

		if f.ContentType != "" {
			header := make(textproto.MIMEHeader)
			header.Set("Content-Disposition",
				`form-data; name="`+escapeQuotes(f.FieldName)+`"; filename="`+escapeQuotes(f.FileName)+`"`)
			header.Set("Content-Type", f.ContentType)
			part, err = w.CreatePart(header)
		} else {
			part, err = w.CreateFormFile(f.FieldName, f.FileName)
		}
		if err != nil {
			return nil, "", err
		}

		switch {
		case f.Data != nil:
			_, err = part.Write(f.Data)
		case f.Reader != nil:
			_, err = io.Copy(part, f.Reader)
		}
		if err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
