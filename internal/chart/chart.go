// Package chart renders view-growth line charts as PNG images.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"

	"github.com/fogleman/gg"

	"github.com/m3rciful/creatorbot/internal/analytics"
)

// ErrNoData is returned when there is no history to plot.
var ErrNoData = errors.New("chart: no data points")

const (
	defaultWidth  = 1000
	defaultHeight = 600
	yTicks        = 5
)

// Config sets the output image size in pixels.
type Config struct {
	Width  int `yaml:"width" envconfig:"CHART_WIDTH"`
	Height int `yaml:"height" envconfig:"CHART_HEIGHT"`
}

// Renderer draws the growth chart: day on the x axis, views on the y axis,
// a line through the points with a marker on each.
type Renderer struct {
	width  int
	height int
	title  string
}

// NewRenderer builds a renderer, falling back to 1000x600 for unset sizes.
func NewRenderer(cfg Config) *Renderer {
	r := &Renderer{width: cfg.Width, height: cfg.Height, title: "Your Content Growth"}
	if r.width <= 0 {
		r.width = defaultWidth
	}
	if r.height <= 0 {
		r.height = defaultHeight
	}
	return r
}

// Render returns the PNG-encoded chart for points.
func (r *Renderer) Render(points []analytics.Point) ([]byte, error) {
	if len(points) == 0 {
		return nil, ErrNoData
	}

	w, h := float64(r.width), float64(r.height)
	left, right, top, bottom := 80.0, 30.0, 50.0, 60.0
	plotW, plotH := w-left-right, h-top-bottom

	minDay, maxDay, maxViews := bounds(points)
	if minDay == maxDay {
		minDay--
		maxDay++
	}
	yMax := niceCeil(float64(maxViews) * 1.1)

	xPos := func(day int) float64 {
		return left + float64(day-minDay)/float64(maxDay-minDay)*plotW
	}
	yPos := func(views int64) float64 {
		return top + plotH - float64(views)/yMax*plotH
	}

	dc := gg.NewContext(r.width, r.height)
	dc.SetColor(color.White)
	dc.Clear()

	// grid and tick labels
	dc.SetLineWidth(1)
	for i := 0; i <= yTicks; i++ {
		v := yMax / yTicks * float64(i)
		y := yPos(int64(v))
		dc.SetRGB255(225, 225, 225)
		dc.DrawLine(left, y, left+plotW, y)
		dc.Stroke()
		dc.SetRGB255(60, 60, 60)
		dc.DrawStringAnchored(strconv.FormatInt(int64(v), 10), left-8, y, 1, 0.5)
	}
	step := tickStep(maxDay - minDay)
	for d := minDay; d <= maxDay; d += step {
		x := xPos(d)
		dc.SetRGB255(225, 225, 225)
		dc.DrawLine(x, top, x, top+plotH)
		dc.Stroke()
		dc.SetRGB255(60, 60, 60)
		dc.DrawStringAnchored(strconv.Itoa(d), x, top+plotH+14, 0.5, 0.5)
	}

	// axes
	dc.SetRGB255(60, 60, 60)
	dc.SetLineWidth(1.5)
	dc.DrawLine(left, top+plotH, left+plotW, top+plotH)
	dc.DrawLine(left, top, left, top+plotH)
	dc.Stroke()

	dc.DrawStringAnchored(r.title, w/2, top/2, 0.5, 0.5)
	dc.DrawStringAnchored("Day", left+plotW/2, h-bottom/3, 0.5, 0.5)
	dc.Push()
	dc.RotateAbout(-math.Pi/2, left/4, top+plotH/2)
	dc.DrawStringAnchored("Views", left/4, top+plotH/2, 0.5, 0.5)
	dc.Pop()

	// series
	dc.SetRGB255(31, 119, 180)
	dc.SetLineWidth(2.5)
	for i, p := range points {
		if i == 0 {
			dc.MoveTo(xPos(p.Day), yPos(p.Views))
			continue
		}
		dc.LineTo(xPos(p.Day), yPos(p.Views))
	}
	dc.Stroke()
	for _, p := range points {
		dc.DrawCircle(xPos(p.Day), yPos(p.Views), 5)
		dc.Fill()
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("chart: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func bounds(points []analytics.Point) (minDay, maxDay int, maxViews int64) {
	minDay, maxDay = points[0].Day, points[0].Day
	for _, p := range points {
		if p.Day < minDay {
			minDay = p.Day
		}
		if p.Day > maxDay {
			maxDay = p.Day
		}
		if p.Views > maxViews {
			maxViews = p.Views
		}
	}
	return minDay, maxDay, maxViews
}

// niceCeil rounds v up to 1, 2 or 5 times a power of ten.
func niceCeil(v float64) float64 {
	if v <= 0 {
		return yTicks
	}
	exp := math.Pow(10, math.Floor(math.Log10(v)))
	for _, m := range []float64{1, 2, 5, 10} {
		if m*exp >= v {
			return m * exp
		}
	}
	return 10 * exp
}

func tickStep(span int) int {
	switch {
	case span <= 10:
		return 1
	case span <= 30:
		return 2
	default:
		return span / 10
	}
}
