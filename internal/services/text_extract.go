package services

import (
  "archive/zip"
  "bytes"
  "encoding/xml"
  "fmt"
  "io"
  "path/filepath"
  "strings"
  "unicode/utf8"

  pdf "github.com/ledongthuc/pdf"

  apperrors "github.com/ndstyle/mindflow-backend/internal/pkg/errors"
)

const maxPDFPages = 10

// ExtractionResult is the extractor output: plain text plus the metadata
// persisted on the document row.
type ExtractionResult struct {
  Text      string
  DocType   string
  PageCount int
  SizeBytes int64
}

// ExtractText converts raw upload bytes into plain text, keyed on the
// declared filename extension. Supported: .pdf, .txt, .docx. Nothing is
// persisted here; every failure is a typed rejection for the caller.
func ExtractText(originalName string, data []byte) (*ExtractionResult, error) {
  ext := strings.ToLower(filepath.Ext(originalName))

  if len(data) == 0 {
    return nil, fmt.Errorf("%w: empty file %s", apperrors.ErrExtraction, originalName)
  }

  switch ext {
  case ".pdf":
    text, pages, err := extractPDF(data)
    if err != nil {
      return nil, err
    }
    return &ExtractionResult{
      Text:      text,
      DocType:   "pdf",
      PageCount: pages,
      SizeBytes: int64(len(data)),
    }, nil
  case ".txt":
    if !utf8.Valid(data) {
      return nil, fmt.Errorf("%w: %s is not valid utf-8", apperrors.ErrExtraction, originalName)
    }
    return &ExtractionResult{
      Text:      collapseWhitespace(string(data)),
      DocType:   "txt",
      SizeBytes: int64(len(data)),
    }, nil
  case ".docx":
    text, err := extractDOCX(data)
    if err != nil {
      return nil, err
    }
    return &ExtractionResult{
      Text:      text,
      DocType:   "docx",
      SizeBytes: int64(len(data)),
    }, nil
  default:
    return nil, fmt.Errorf("%w: extension %q (name=%s)", apperrors.ErrUnsupportedType, ext, originalName)
  }
}

func extractPDF(data []byte) (text string, pages int, err error) {
  // the pdf reader panics on some malformed files
  defer func() {
    if rec := recover(); rec != nil {
      text, pages = "", 0
      err = fmt.Errorf("%w: pdf parse panic: %v", apperrors.ErrExtraction, rec)
    }
  }()
  r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
  if err != nil {
    return "", 0, fmt.Errorf("%w: pdf reader: %v", apperrors.ErrExtraction, err)
  }
  pages = r.NumPage()
  if pages > maxPDFPages {
    return "", pages, fmt.Errorf("%w: %d pages (max %d)", apperrors.ErrPageLimit, pages, maxPDFPages)
  }
  plain, err := r.GetPlainText()
  if err != nil {
    return "", pages, fmt.Errorf("%w: pdf plaintext: %v", apperrors.ErrExtraction, err)
  }
  b, err := io.ReadAll(plain)
  if err != nil {
    return "", pages, fmt.Errorf("%w: pdf read: %v", apperrors.ErrExtraction, err)
  }
  return collapseWhitespace(string(b)), pages, nil
}

// extractDOCX walks word/document.xml inside the zip container and gathers
// the <w:t> runs.
func extractDOCX(data []byte) (string, error) {
  zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
  if err != nil {
    return "", fmt.Errorf("%w: docx is not a valid zip container: %v", apperrors.ErrExtraction, err)
  }
  f := findZipFile(zr, "word/document.xml")
  if f == nil {
    return "", fmt.Errorf("%w: docx missing word/document.xml", apperrors.ErrExtraction)
  }
  rc, err := f.Open()
  if err != nil {
    return "", fmt.Errorf("%w: docx open document.xml: %v", apperrors.ErrExtraction, err)
  }
  b, _ := io.ReadAll(rc)
  _ = rc.Close()

  s := collapseWhitespace(extractTextFromXML(b, "t"))
  if s == "" {
    return "", fmt.Errorf("%w: no text extracted from docx", apperrors.ErrExtraction)
  }
  return s, nil
}

func findZipFile(zr *zip.Reader, name string) *zip.File {
  for _, f := range zr.File {
    if f.Name == name {
      return f
    }
  }
  return nil
}

func extractTextFromXML(xmlBytes []byte, localTag string) string {
  dec := xml.NewDecoder(bytes.NewReader(xmlBytes))
  var out strings.Builder
  for {
    tok, err := dec.Token()
    if err != nil {
      break
    }
    se, ok := tok.(xml.StartElement)
    if !ok {
      continue
    }
    if se.Name.Local != localTag {
      continue
    }
    var v string
    _ = dec.DecodeElement(&v, &se)
    if v != "" {
      out.WriteString(v)
      out.WriteString(" ")
    }
  }
  return out.String()
}

func collapseWhitespace(s string) string {
  s = strings.ReplaceAll(s, " ", " ")
  fields := strings.Fields(s)
  return strings.Join(fields, " ")
}
