package extract

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/hyperjump/passage/internal/models"
	"github.com/xuri/excelize/v2"
)

func TestExtractPagesBytes_plain(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractPagesBytes([]byte("Hello world\nLine 2"), ".txt")
	if err != nil {
		t.Fatalf("ExtractPagesBytes: %v", err)
	}
	want := []models.Page{{Number: 1, Text: "Hello world\nLine 2"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v", got)
	}
}

func TestExtractPagesBytes_formFeedPages(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractPagesBytes([]byte("page one\fpage two\f   \fpage four"), ".md")
	if err != nil {
		t.Fatalf("ExtractPagesBytes: %v", err)
	}
	want := []models.Page{
		{Number: 1, Text: "page one"},
		{Number: 2, Text: "page two"},
		{Number: 4, Text: "page four"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestExtractPagesBytes_plainInvalidUTF8(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractPagesBytes([]byte("hello\x80world"), ".rst")
	if err != nil {
		t.Fatalf("ExtractPagesBytes: %v", err)
	}
	if len(got) != 1 || got[0].Text != "hello�world" {
		t.Errorf("got %+v", got)
	}
}

func TestExtractPagesBytes_excelSheetPerPage(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Title")
	f.SetCellValue("Sheet1", "A2", "Value 1")
	f.SetCellValue("Sheet1", "B2", "Value 2")
	if _, err := f.NewSheet("Totals"); err != nil {
		t.Fatalf("NewSheet: %v", err)
	}
	f.SetCellValue("Totals", "A1", "Sum")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	e := NewExtractor()
	got, err := e.ExtractPagesBytes(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatalf("ExtractPagesBytes: %v", err)
	}
	want := []models.Page{
		{Number: 1, Text: "Title\nValue 1\tValue 2"},
		{Number: 2, Text: "Sum"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestExtractPages_file(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")
	if err := os.WriteFile(path, []byte("File content"), 0600); err != nil {
		t.Fatal(err)
	}
	got, err := NewExtractor().ExtractPages(path)
	if err != nil {
		t.Fatalf("ExtractPages: %v", err)
	}
	if Text(got) != "File content" {
		t.Errorf("got %+v", got)
	}
}

func TestExtractPages_nonexistent(t *testing.T) {
	if _, err := NewExtractor().ExtractPages("/nonexistent/path/file.txt"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestSupported(t *testing.T) {
	e := NewExtractor()
	for _, ext := range []string{".pdf", ".PDF", ".docx", ".txt"} {
		if !e.Supported(ext) {
			t.Errorf("%s should be supported", ext)
		}
	}
	if e.Supported(".exe") {
		t.Error(".exe should not be supported")
	}
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func docBody(text string) string {
	return `<w:document><w:body><w:p w:rsidR="00A1"><w:r><w:t xml:space="preserve">` + text + `</w:t></w:r></w:p></w:body></w:document>`
}

func TestExtractPagesBytes_docx(t *testing.T) {
	content := buildZip(t, map[string]string{"word/document.xml": docBody("Searchable docx content")})
	got, err := NewExtractor().ExtractPagesBytes(content, ".docx")
	if err != nil {
		t.Fatalf("ExtractPagesBytes: %v", err)
	}
	if len(got) != 1 || got[0].Text != "Searchable docx content" {
		t.Errorf("got %+v", got)
	}
}

func TestExtractPagesBytes_docxContentTypes(t *testing.T) {
	tests := []struct {
		name     string
		override string
	}{
		{"part name first", `<Override PartName="/word/document2.xml" ContentType="` + docxMainContentType + `"/>`},
		{"content type first", `<Override ContentType="` + docxMainContentType + `" PartName="/word/document2.xml"/>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := buildZip(t, map[string]string{
				contentTypesPath:     `<Types>` + tt.override + `</Types>`,
				"word/document2.xml": docBody("From document2"),
			})
			got, err := NewExtractor().ExtractPagesBytes(content, ".docx")
			if err != nil {
				t.Fatalf("ExtractPagesBytes: %v", err)
			}
			if len(got) != 1 || got[0].Text != "From document2" {
				t.Errorf("got %+v", got)
			}
		})
	}
}

func TestExtractPagesBytes_docxMissingBody(t *testing.T) {
	content := buildZip(t, map[string]string{"other.xml": "<x/>"})
	if _, err := NewExtractor().ExtractPagesBytes(content, ".docx"); err == nil {
		t.Error("expected error when document part is missing")
	}
}

func slideBody(text string) string {
	return `<p:sld><p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>` + text + `</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`
}

func TestExtractPagesBytes_pptxSlidePerPage(t *testing.T) {
	content := buildZip(t, map[string]string{
		"ppt/slides/slide10.xml":            slideBody("Tenth slide"),
		"ppt/slides/slide2.xml":             slideBody("Second slide"),
		"ppt/slides/slide1.xml":             slideBody("First slide"),
		"ppt/slides/_rels/slide1.xml.rels":  "<Relationships/>",
		"ppt/slideLayouts/slideLayout1.xml": slideBody("Layout text"),
	})
	got, err := NewExtractor().ExtractPagesBytes(content, ".pptx")
	if err != nil {
		t.Fatalf("ExtractPagesBytes: %v", err)
	}
	want := []models.Page{
		{Number: 1, Text: "First slide"},
		{Number: 2, Text: "Second slide"},
		{Number: 10, Text: "Tenth slide"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestExtractPagesBytes_pptxNotZip(t *testing.T) {
	if _, err := NewExtractor().ExtractPagesBytes([]byte("not a zip"), ".pptx"); err == nil {
		t.Error("expected error for invalid pptx")
	}
}

func TestExtractPagesBytes_pdfInvalid(t *testing.T) {
	if _, err := NewExtractor().ExtractPagesBytes([]byte("not a pdf"), ".pdf"); err == nil {
		t.Error("expected error for invalid pdf")
	}
}
