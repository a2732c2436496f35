package deck_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/fogleman/gg"

	"slidecue/internal/deck"
	"slidecue/internal/phash"
)

func solid(w, h int, dark bool) image.Image {
	dc := gg.NewContext(w, h)
	if dark {
		dc.SetRGB(0, 0, 0)
	} else {
		dc.SetRGB(1, 1, 1)
	}
	dc.Clear()
	dc.SetRGB(0.5, 0.5, 0.5)
	dc.DrawRectangle(0, 0, float64(w)/2, float64(h)/3)
	dc.Fill()
	return dc.Image()
}

func TestNewPageTokenizesAndHashes(t *testing.T) {
	img := solid(200, 150, false)
	page, err := deck.NewPage(2, img, "Results:\n  accuracy  95%\tFH")
	if err != nil {
		t.Fatalf("NewPage: %v", err)
	}
	want, _ := phash.FromImage(img)
	if page.Hash != want {
		t.Fatalf("unexpected hash %s, want %s", page.Hash, want)
	}
	if fmt.Sprint(page.Tokens) != "[Results: accuracy 95% FH]" {
		t.Fatalf("unexpected tokens %q", page.Tokens)
	}
	if page.Number() != 3 {
		t.Fatalf("expected page number 3, got %d", page.Number())
	}
}

func TestNewRenumbersPages(t *testing.T) {
	a, _ := deck.NewPage(7, solid(64, 64, false), "a")
	b, _ := deck.NewPage(7, solid(64, 64, true), "b")
	d, err := deck.New([]deck.Page{a, b})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if d.Len() != 2 || d.Pages[0].Index != 0 || d.Pages[1].Index != 1 {
		t.Fatalf("unexpected pages %+v", d.Pages)
	}
	hashes := d.Hashes()
	if hashes[0] != a.Hash || hashes[1] != b.Hash {
		t.Fatal("hashes not in page order")
	}
}

func TestNewRejectsEmpty(t *testing.T) {
	if _, err := deck.New(nil); !errors.Is(err, deck.ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := deck.Load(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"), 72)
	if err == nil {
		t.Fatal("expected error for missing deck")
	}
}

// writePDF writes a minimal document with one text line per page.
func writePDF(t *testing.T, lines []string) string {
	t.Helper()
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	kids := ""
	for i := range lines {
		kids += fmt.Sprintf("%d 0 R ", 4+i*2)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, len(lines)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	for i, line := range lines {
		stream := fmt.Sprintf("BT /F1 24 Tf 40 100 Td (%s) Tj ET", line)
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 320 240] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+i*2))
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	path := filepath.Join(t.TempDir(), "deck.pdf")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	return path
}

func TestLoadRendersPagesAndText(t *testing.T) {
	path := writePDF(t, []string{"Intro", "Methods"})
	d, err := deck.Load(context.Background(), path, 72)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d.Len() != 2 || d.Path != path {
		t.Fatalf("unexpected deck: len=%d path=%q", d.Len(), d.Path)
	}
	bounds := d.Pages[0].Image.Bounds()
	if bounds.Dx() != 320 || bounds.Dy() != 240 {
		t.Fatalf("expected 320x240 render at 72 dpi, got %v", bounds)
	}
	if fmt.Sprint(d.Pages[1].Tokens) != "[Methods]" {
		t.Fatalf("unexpected tokens for page 2: %q", d.Pages[1].Tokens)
	}
}

func TestLoadHonorsCancellation(t *testing.T) {
	path := writePDF(t, []string{"Intro"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := deck.Load(ctx, path, 72); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
