package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Kind is a document format with an extractor.
type Kind string

const (
	KindUnknown Kind = ""
	KindDOCX    Kind = "docx"
	KindPDF     Kind = "pdf"
)

const docxBody = "word/document.xml"

// ErrUnsupported reports a payload whose format has no extractor.
var ErrUnsupported = errors.New("unsupported document type")

// FromFile extracts plain text from a resume. The format comes from the file
// extension, falling back to sniffing the bytes. It backs both the HTTP
// upload and the process-resume command.
func FromFile(ctx context.Context, data []byte, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var (
		text string
		err  error
	)
	switch kind := Detect(data, fileName); kind {
	case KindDOCX:
		text, err = docxText(data)
	case KindPDF:
		text, err = pdfText(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(fileName))
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Detect picks the extractor for data.
func Detect(data []byte, fileName string) Kind {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".docx":
		return KindDOCX
	case ".pdf":
		return KindPDF
	}
	switch {
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return KindPDF
	case bytes.HasPrefix(data, []byte("PK\x03\x04")) && zipEntry(data, docxBody) != nil:
		return KindDOCX
	default:
		return KindUnknown
	}
}

func zipEntry(data []byte, name string) *zip.File {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == name {
			return f
		}
	}
	return nil
}

// docxText walks word/document.xml keeping only w:t runs. Paragraph ends and
// breaks become newlines, tabs stay tabs.
func docxText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("docx: empty file")
	}
	if _, err := zip.NewReader(bytes.NewReader(data), int64(len(data))); err != nil {
		return "", fmt.Errorf("docx: %w", err)
	}
	entry := zipEntry(data, docxBody)
	if entry == nil {
		return "", fmt.Errorf("docx: %s not found", docxBody)
	}
	rc, err := entry.Open()
	if err != nil {
		return "", fmt.Errorf("docx: %w", err)
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var (
		out    strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("docx: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				out.WriteByte('\t')
			case "br", "cr":
				out.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				out.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				out.Write(t)
			}
		}
	}
	return out.String(), nil
}

func pdfText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("pdf: %w", err)
	}
	return buf.String(), nil
}
