package converter

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/harliandi/go-batchcrop/internal/settings"
	"github.com/harliandi/go-batchcrop/pkg/geometry"
)

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

// createTestImage creates a gradient image with some detail so lossy
// encoders have work to do
func createTestImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / width),
				G: uint8((y * 255) / height),
				B: uint8((x*7 + y*13) % 256),
				A: 255,
			})
		}
	}
	return img
}

// createSplitImage fills the left half with left and the right half with right
func createSplitImage(width, height int, left, right color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x < width/2 {
				img.Set(x, y, left)
			} else {
				img.Set(x, y, right)
			}
		}
	}
	return img
}

func encodePNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func testSettings(format settings.Format) settings.Settings {
	s := settings.Default()
	s.Width = 120
	s.Height = 80
	s.Format = format
	return s
}

func TestNew(t *testing.T) {
	c := New(settings.Default(), Options{}, nil)
	if c == nil {
		t.Fatal("New() returned nil")
	}
	if c.Settings() != settings.Default() {
		t.Errorf("Settings() = %+v", c.Settings())
	}
}

func TestConverter_Convert(t *testing.T) {
	for _, format := range settings.Formats {
		t.Run(string(format), func(t *testing.T) {
			c := New(testSettings(format), Options{}, nil)
			data := encodePNG(t, createTestImage(300, 150))

			item, err := c.Convert(context.Background(), "photo.png", data)
			if err != nil {
				t.Fatalf("Convert() error = %v", err)
			}
			if item.Name != "photo.png" {
				t.Errorf("Name = %q", item.Name)
			}
			if item.Format != format || item.MimeType() != format.MimeType() {
				t.Errorf("Format = %s (%s)", item.Format, item.MimeType())
			}

			img, _, err := image.Decode(bytes.NewReader(item.Data))
			if err != nil {
				t.Fatalf("decode output: %v", err)
			}
			if img.Bounds().Dx() != 120 || img.Bounds().Dy() != 80 {
				t.Errorf("output size = %v, want 120x80", img.Bounds())
			}
		})
	}
}

func TestConverter_Convert_InvalidInput(t *testing.T) {
	c := New(testSettings(settings.FormatPNG), Options{}, nil)

	tests := []struct {
		name    string
		input   []byte
		wantErr error
	}{
		{"Empty input", nil, ErrDecode},
		{"Short input", []byte("abc"), ErrDecode},
		{"Invalid data", []byte("this is definitely not an image file"), ErrDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Convert(context.Background(), "bad.jpg", tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Convert() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConverter_Convert_TooLarge(t *testing.T) {
	c := New(testSettings(settings.FormatPNG), Options{MaxInputBytes: 100}, nil)
	data := encodePNG(t, createTestImage(64, 64))

	_, err := c.Convert(context.Background(), "big.png", data)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("Convert() error = %v, want ErrFileTooLarge", err)
	}
}

func TestConverter_Render_MarginAndAnchor(t *testing.T) {
	s := settings.Default()
	s.Width = 100
	s.Height = 100
	s.Anchor = geometry.MiddleRight
	s.Margin = geometry.Margin{Enabled: true, Size: 20, Edge: geometry.EdgeTop}
	s.Format = settings.FormatPNG
	c := New(s, Options{}, nil)

	// 400x100 source: right half is blue, so a right-anchored crop is blue.
	item, err := c.Render(Asset{Name: "split.png", Image: createSplitImage(400, 100, red, blue)})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	img, err := png.Decode(bytes.NewReader(item.Data))
	if err != nil {
		t.Fatal(err)
	}
	if got := color.RGBAModel.Convert(img.At(50, 5)).(color.RGBA); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("margin pixel = %v, want white", got)
	}
	if got := color.RGBAModel.Convert(img.At(50, 60)).(color.RGBA); !near(got, blue) {
		t.Errorf("content pixel = %v, want blue", got)
	}
}

func TestConverter_ConcurrentUse(t *testing.T) {
	c := New(testSettings(settings.FormatJPEG), Options{}, nil)
	data := encodePNG(t, createTestImage(200, 200))

	want, err := c.Convert(context.Background(), "a.png", data)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.Convert(context.Background(), "a.png", data)
			if err != nil {
				errs <- err
				return
			}
			if !bytes.Equal(got.Data, want.Data) {
				errs <- errors.New("concurrent output differs")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
