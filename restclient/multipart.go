package restclient

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
)

// FileUpload is a file sent in a multipart/form-data body.
//
// Use AddFile or AddFileBytes on Request to add one.
type FileUpload struct {
	// FieldName is the form field name, e.g. "document" or "avatar".
	FieldName string

	// FileName is the name reported to the server, e.g. "report.pdf".
	FileName string

	// ContentType defaults to application/octet-stream.
	ContentType string

	// Content holds in-memory data. Ignored when Path is set.
	Content []byte

	// Path is read every time the request is built, so retries and
	// re-executions send the current file.
	Path string
}

// AddFile adds a file read from filePath when the request is executed.
//
// A request with files is sent as multipart/form-data for POST, PUT and
// PATCH; its GetOrPost parameters become form fields.
//
// Example:
//
//	req := restclient.NewRequest("upload", http.MethodPost).
//	    AddFile("document", "/path/to/report.pdf").
//	    AddQueryParameter("title", "Q4 Report")
func (r *Request) AddFile(fieldName, filePath string) *Request {
	r.files = append(r.files, FileUpload{
		FieldName: fieldName,
		FileName:  filepath.Base(filePath),
		Path:      filePath,
	})
	return r
}

// AddFileBytes adds an in-memory file.
//
// Example:
//
//	req.AddFileBytes("data", "export.csv", "text/csv", csvBytes)
func (r *Request) AddFileBytes(fieldName, fileName, contentType string, content []byte) *Request {
	r.files = append(r.files, FileUpload{
		FieldName:   fieldName,
		FileName:    fileName,
		ContentType: contentType,
		Content:     content,
	})
	return r
}

// Files returns a copy of the request files.
func (r *Request) Files() []FileUpload {
	if len(r.files) == 0 {
		return nil
	}
	out := make([]FileUpload, len(r.files))
	copy(out, r.files)
	return out
}

// buildMultipart encodes fields and files as multipart/form-data and
// returns the body and its content type.
func buildMultipart(fields []Parameter, files []FileUpload) ([]byte, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for _, p := range fields {
		if err := writer.WriteField(p.Name, p.String()); err != nil {
			return nil, "", err
		}
	}

	for _, file := range files {
		if err := writeFilePart(writer, file); err != nil {
			return nil, "", fmt.Errorf("restclient: multipart file %q: %w", file.FieldName, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return body.Bytes(), writer.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFilePart(writer *multipart.Writer, file FileUpload) error {
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(file.FieldName), quoteEscaper.Replace(file.FileName)))
	h.Set("Content-Type", contentType)

	part, err := writer.CreatePart(h)
	if err != nil {
		return err
	}

	if file.Path == "" {
		_, err = part.Write(file.Content)
		return err
	}

	f, err := os.Open(file.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(part, f)
	return err
}
