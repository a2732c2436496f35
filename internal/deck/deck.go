package deck

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"

	"slidecue/internal/phash"
	"slidecue/internal/textutil"
)

// DefaultDPI is the render resolution used when none is configured.
const DefaultDPI = 200

// ErrEmpty reports a document without pages.
var ErrEmpty = errors.New("deck has no pages")

// Page is one rendered slide with its hash and extracted text.
type Page struct {
	Index  int
	Image  image.Image
	Hash   phash.Hash
	Text   string
	Tokens []string
}

// Number returns the 1-based page number.
func (p Page) Number() int {
	return p.Index + 1
}

// Deck is the immutable, in-memory set of slides for one run.
type Deck struct {
	Path  string
	Pages []Page
}

// NewPage hashes img and tokenizes text into a page at index.
func NewPage(index int, img image.Image, text string) (Page, error) {
	hash, err := phash.FromImage(img)
	if err != nil {
		return Page{}, fmt.Errorf("page %d: %w", index+1, err)
	}
	return Page{
		Index:  index,
		Image:  img,
		Hash:   hash,
		Text:   text,
		Tokens: textutil.Fields(text),
	}, nil
}

// New assembles a deck from prepared pages, renumbering them in order.
func New(pages []Page) (*Deck, error) {
	if len(pages) == 0 {
		return nil, ErrEmpty
	}
	out := make([]Page, len(pages))
	for i, page := range pages {
		page.Index = i
		out[i] = page
	}
	return &Deck{Pages: out}, nil
}

// Load renders every page of the PDF at dpi and extracts its text layer.
func Load(ctx context.Context, path string, dpi float64) (*Deck, error) {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open deck %s: %w", path, err)
	}
	defer doc.Close()

	count := doc.NumPage()
	if count == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmpty)
	}
	pages := make([]Page, 0, count)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := doc.ImageDPI(i, dpi)
		if err != nil {
			return nil, fmt.Errorf("render page %d of %s: %w", i+1, path, err)
		}
		text, err := doc.Text(i)
		if err != nil {
			return nil, fmt.Errorf("extract text of page %d of %s: %w", i+1, path, err)
		}
		page, err := NewPage(i, img, text)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	d, err := New(pages)
	if err != nil {
		return nil, err
	}
	d.Path = path
	return d, nil
}

// Len returns the number of pages.
func (d *Deck) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Pages)
}

// Hashes returns the page hashes in page order.
func (d *Deck) Hashes() []phash.Hash {
	hashes := make([]phash.Hash, d.Len())
	for i, page := range d.Pages {
		hashes[i] = page.Hash
	}
	return hashes
}
