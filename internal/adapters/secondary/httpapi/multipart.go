package httpapi

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/jupiterclapton/cenackle/client/internal/core/ports"
)

type formFile struct {
	field  string
	upload *ports.Upload
}

// Multipart accumule les champs et fichiers d'un corps multipart/form-data.
type Multipart struct {
	fields [][2]string
	files  []formFile
}

func NewMultipart() *Multipart {
	return &Multipart{}
}

func (m *Multipart) Field(name, value string) *Multipart {
	m.fields = append(m.fields, [2]string{name, value})
	return m
}

func (m *Multipart) File(field string, upload *ports.Upload) *Multipart {
	if upload != nil {
		m.files = append(m.files, formFile{field: field, upload: upload})
	}
	return m
}

func (m *Multipart) encode() (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for _, f := range m.fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f[0], err)
		}
	}

	for _, f := range m.files {
		part, err := writer.CreateFormFile(f.field, f.upload.Filename)
		if err != nil {
			return nil, "", fmt.Errorf("create form file: %w", err)
		}
		if _, err := io.Copy(part, f.upload.Content); err != nil {
			return nil, "", fmt.Errorf("copy %s: %w", f.upload.Filename, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close writer: %w", err)
	}
	return &body, writer.FormDataContentType(), nil
}
