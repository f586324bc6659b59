package chart

import (
	"bytes"
	"errors"
	"image/png"
	"testing"

	"github.com/m3rciful/creatorbot/internal/analytics"
)

func TestRenderEmptyHistory(t *testing.T) {
	_, err := NewRenderer(Config{}).Render(nil)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
}

func TestRenderProducesPNG(t *testing.T) {
	points := []analytics.Point{{Day: 1, Views: 100}, {Day: 2, Views: 180}, {Day: 7, Views: 250}}
	data, err := NewRenderer(Config{Width: 400, Height: 240}).Render(points)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 400 || b.Dy() != 240 {
		t.Fatalf("size = %dx%d", b.Dx(), b.Dy())
	}
}

func TestRenderSinglePointAndZeroViews(t *testing.T) {
	if _, err := NewRenderer(Config{}).Render([]analytics.Point{{Day: 1, Views: 0}}); err != nil {
		t.Fatalf("render: %v", err)
	}
}

func TestNiceCeil(t *testing.T) {
	cases := map[float64]float64{0: 5, 3: 5, 110: 200, 1000: 1000, 1001: 2000, 4200: 5000}
	for in, want := range cases {
		if got := niceCeil(in); got != want {
			t.Fatalf("niceCeil(%v) = %v, want %v", in, got, want)
		}
	}
}
