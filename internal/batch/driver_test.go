package batch

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"strconv"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harliandi/go-batchcrop/internal/converter"
	"github.com/harliandi/go-batchcrop/internal/settings"
)

func pngSource(t *testing.T, name string, w, h int) Source {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return Source{Name: name, Data: buf.Bytes()}
}

func brokenSource(name string) Source {
	return Source{Name: name, Data: []byte("definitely not an image, just text")}
}

func testSettings() settings.Settings {
	s := settings.Default()
	s.Width = 64
	s.Height = 48
	s.Format = settings.FormatJPEG
	return s
}

func names(items []converter.Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Name
	}
	return out
}

func TestRun_PartialFailure(t *testing.T) {
	sources := []Source{
		pngSource(t, "a.png", 100, 50),
		brokenSource("b.png"),
		pngSource(t, "c.png", 30, 90),
		brokenSource("d.png"),
		pngSource(t, "e.png", 64, 48),
	}

	for _, workers := range []int{1, 4} {
		t.Run("workers="+strconv.Itoa(workers), func(t *testing.T) {
			d := New(testSettings(), Options{Workers: workers}, nil)
			res, err := d.Run(context.Background(), sources)
			require.NoError(t, err)

			assert.Equal(t, []string{"a.png", "c.png", "e.png"}, names(res.Items))
			assert.Equal(t, 5, res.Total)
			require.Len(t, res.Failed, 2)
			assert.Equal(t, 1, res.Failed[0].Index)
			assert.Equal(t, "d.png", res.Failed[1].Name)
			assert.ErrorIs(t, res.Failed[0], converter.ErrDecode)
			assert.NotEmpty(t, res.RunID)

			for _, item := range res.Items {
				img, _, err := image.Decode(bytes.NewReader(item.Data))
				require.NoError(t, err)
				assert.Equal(t, image.Rect(0, 0, 64, 48), img.Bounds())
			}
		})
	}
}

func TestRun_AllFail(t *testing.T) {
	d := New(testSettings(), Options{Workers: 2}, nil)
	res, err := d.Run(context.Background(), []Source{brokenSource("a"), brokenSource("b")})

	assert.ErrorIs(t, err, ErrEmptyBatch)
	assert.Empty(t, res.Items)
	assert.Len(t, res.Failed, 2)
}

func TestRun_OversizedInputIsReportedFailure(t *testing.T) {
	small := pngSource(t, "small.png", 10, 10)
	large := pngSource(t, "large.png", 200, 200)
	require.Greater(t, len(large.Data), len(small.Data))

	opts := Options{Workers: 1, Converter: converter.Options{MaxInputBytes: len(small.Data)}}

	d := New(testSettings(), opts, nil)
	res, err := d.Run(context.Background(), []Source{small, large})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Total)
	assert.Equal(t, []string{"small.png"}, names(res.Items))
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "large.png", res.Failed[0].Name)
	assert.ErrorIs(t, res.Failed[0], converter.ErrFileTooLarge)

	_, err = d.Run(context.Background(), []Source{large})
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestRun_NoSources(t *testing.T) {
	d := New(testSettings(), Options{}, nil)
	_, err := d.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestRun_InvalidSettings(t *testing.T) {
	s := testSettings()
	s.Margin.Enabled = true
	s.Margin.Size = 48

	var stages []Stage
	d := New(s, Options{Progress: func(p Progress) { stages = append(stages, p.Stage) }}, nil)
	_, err := d.Run(context.Background(), []Source{pngSource(t, "a.png", 10, 10)})

	assert.ErrorIs(t, err, settings.ErrInvalid)
	assert.Equal(t, []Stage{StageInitializing}, stages)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := New(testSettings(), Options{Workers: 2}, nil)
	_, err := d.Run(ctx, []Source{pngSource(t, "a.png", 10, 10), pngSource(t, "b.png", 10, 10)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_OrderStableAcrossWorkers(t *testing.T) {
	var sources []Source
	for i := 0; i < 12; i++ {
		sources = append(sources, pngSource(t, "img"+strconv.Itoa(i)+".png", 40+i*7, 60-i*3))
	}

	sequential, err := New(testSettings(), Options{Workers: 1}, nil).Run(context.Background(), sources)
	require.NoError(t, err)
	parallel, err := New(testSettings(), Options{Workers: 6}, nil).Run(context.Background(), sources)
	require.NoError(t, err)

	require.Equal(t, names(sequential.Items), names(parallel.Items))
	for i := range sequential.Items {
		assert.Equal(t, sequential.Items[i].Data, parallel.Items[i].Data, "item %d", i)
	}
}

func TestPackage(t *testing.T) {
	sources := []Source{
		pngSource(t, "dir/one.png", 80, 40),
		brokenSource("two.png"),
		pngSource(t, "three.gif.png", 40, 80),
	}

	var events []Progress
	d := New(testSettings(), Options{
		Workers:  1,
		Progress: func(p Progress) { events = append(events, p) },
	}, nil)

	var buf bytes.Buffer
	res, stats, err := d.Package(context.Background(), sources, &buf)
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
	assert.Equal(t, 2, stats.Entries)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "one.jpg", zr.File[0].Name)
	assert.Equal(t, "three.gif.jpg", zr.File[1].Name)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, res.Items[0].Data, data)

	var stages []Stage
	for _, e := range events {
		stages = append(stages, e.Stage)
	}
	assert.Equal(t, []Stage{
		StageInitializing,
		StageTransforming,
		StageTransforming,
		StageItemFailed,
		StageTransforming,
		StagePackaging,
		StageCompleted,
	}, stages)
	assert.Equal(t, "two.png", events[3].Name)
	assert.ErrorIs(t, events[3].Err, converter.ErrDecode)
}

func TestPackage_EmptyBatchWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	d := New(testSettings(), Options{}, nil)
	_, _, err := d.Package(context.Background(), []Source{brokenSource("x.png")}, &buf)

	assert.ErrorIs(t, err, ErrEmptyBatch)
	assert.Zero(t, buf.Len())
}
