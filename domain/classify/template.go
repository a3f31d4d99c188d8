package classify

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"runtime"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/soocke/weapon-watch/domain/detection"
)

// TemplateOptions configures multi-scale template matching.
type TemplateOptions struct {
	MinScale  float64
	MaxScale  float64
	ScaleStep float64
	Stride    int // coarse scan stride; the best window is refined at stride 1
}

// grayPlane is a grayscale image with summed-area tables for O(1) window
// sum and variance queries.
type grayPlane struct {
	w, h       int
	px         []float64
	integral   []float64
	integralSq []float64
}

// templatePlane is one scaled template with precomputed statistics.
type templatePlane struct {
	w, h int
	px   []float64
	mean float64
	std  float64
}

// TemplateClassifier scores frames offline by normalized cross-correlation
// against a reference weapon silhouette. Confidence is the best NCC score
// across scales, clamped to [0,1].
type TemplateClassifier struct {
	planes []templatePlane
	stride int
}

// LoadTemplate decodes a PNG or JPEG template from path.
func LoadTemplate(path string) (image.Image, error) {
	if path == "" {
		return nil, fmt.Errorf("template classifier: no template_path configured")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open template: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode template: %w", err)
	}
	return img, nil
}

// NewTemplateClassifier precomputes the template at every configured scale.
func NewTemplateClassifier(tmpl image.Image, opts TemplateOptions) *TemplateClassifier {
	if opts.Stride <= 0 {
		opts.Stride = 1
	}
	c := &TemplateClassifier{stride: opts.Stride}
	for _, f := range scaleFactors(opts) {
		b := tmpl.Bounds()
		w := int(math.Round(float64(b.Dx()) * f))
		h := int(math.Round(float64(b.Dy()) * f))
		if w < 2 || h < 2 {
			continue
		}
		var scaled image.Image = tmpl
		if w != b.Dx() || h != b.Dy() {
			scaled = imaging.Resize(tmpl, w, h, imaging.Linear)
		}
		if p, ok := newTemplatePlane(scaled); ok {
			c.planes = append(c.planes, p)
		}
	}
	return c
}

func scaleFactors(opts TemplateOptions) []float64 {
	if opts.MinScale <= 0 || opts.MaxScale < opts.MinScale || opts.ScaleStep <= 0 {
		return []float64{1}
	}
	var out []float64
	for s := opts.MinScale; s <= opts.MaxScale+1e-9 && len(out) < 200; s += opts.ScaleStep {
		out = append(out, s)
	}
	return out
}

// luma matches the Rec. 709 weights on 16-bit channels; fully transparent pixels are 0.
func luma(img image.Image, x, y int) float64 {
	r, g, b, a := img.At(x, y).RGBA()
	if a == 0 {
		return 0
	}
	return 0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b)
}

func newTemplatePlane(img image.Image) (templatePlane, bool) {
	b := img.Bounds()
	p := templatePlane{w: b.Dx(), h: b.Dy(), px: make([]float64, b.Dx()*b.Dy())}
	var sum, sumSq float64
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			v := luma(img, b.Min.X+x, b.Min.Y+y)
			p.px[y*p.w+x] = v
			sum += v
			sumSq += v * v
		}
	}
	n := float64(len(p.px))
	p.mean = sum / n
	if v := sumSq/n - p.mean*p.mean; v > 1e-9 {
		p.std = math.Sqrt(v)
	}
	return p, p.std > 0
}

func newGrayPlane(img image.Image) *grayPlane {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	g := &grayPlane{w: w, h: h, px: make([]float64, w*h), integral: make([]float64, w*h), integralSq: make([]float64, w*h)}
	for y := 0; y < h; y++ {
		var row, rowSq float64
		for x := 0; x < w; x++ {
			v := luma(img, b.Min.X+x, b.Min.Y+y)
			off := y*w + x
			g.px[off] = v
			row += v
			rowSq += v * v
			g.integral[off] = row
			g.integralSq[off] = rowSq
			if y > 0 {
				g.integral[off] += g.integral[off-w]
				g.integralSq[off] += g.integralSq[off-w]
			}
		}
	}
	return g
}

// windowSum returns the inclusive sum over [x0,x1]x[y0,y1] of table t.
func (g *grayPlane) windowSum(t []float64, x0, y0, x1, y1 int) float64 {
	at := func(x, y int) float64 {
		if x < 0 || y < 0 {
			return 0
		}
		return t[y*g.w+x]
	}
	return at(x1, y1) - at(x0-1, y1) - at(x1, y0-1) + at(x0-1, y0-1)
}

// ncc scores the template placed with its top-left corner at (x, y).
func (g *grayPlane) ncc(t *templatePlane, x, y int) float64 {
	n := float64(t.w * t.h)
	sum := g.windowSum(g.integral, x, y, x+t.w-1, y+t.h-1)
	sumSq := g.windowSum(g.integralSq, x, y, x+t.w-1, y+t.h-1)
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance <= 1e-9 {
		return -1
	}
	var cross float64
	for ty := 0; ty < t.h; ty++ {
		row := (y+ty)*g.w + x
		trow := ty * t.w
		for tx := 0; tx < t.w; tx++ {
			cross += g.px[row+tx] * t.px[trow+tx]
		}
	}
	return (cross - n*mean*t.mean) / (n * math.Sqrt(variance) * t.std)
}

// bestMatch scans at stride then refines around the best coarse window.
func (g *grayPlane) bestMatch(ctx context.Context, t *templatePlane, stride int) float64 {
	if t.w > g.w || t.h > g.h {
		return -1
	}
	best, bx, by := -1.0, 0, 0
	for y := 0; y <= g.h-t.h; y += stride {
		if ctx.Err() != nil {
			return best
		}
		for x := 0; x <= g.w-t.w; x += stride {
			if s := g.ncc(t, x, y); s > best {
				best, bx, by = s, x, y
			}
		}
	}
	if stride > 1 {
		for y := max(0, by-stride); y <= min(g.h-t.h, by+stride); y++ {
			for x := max(0, bx-stride); x <= min(g.w-t.w, bx+stride); x++ {
				if s := g.ncc(t, x, y); s > best {
					best = s
				}
			}
		}
	}
	return best
}

// Classify runs every template scale in parallel and reports the best score.
func (c *TemplateClassifier) Classify(ctx context.Context, img image.Image) (detection.Result, error) {
	if img == nil {
		return detection.Result{}, fmt.Errorf("template classifier: nil frame")
	}
	if len(c.planes) == 0 {
		return detection.Result{Status: detection.StatusFailure, Reason: "template has no usable scales"}, nil
	}
	frame := newGrayPlane(img)

	var (
		mu   sync.Mutex
		best = -1.0
		wg   sync.WaitGroup
		sem  = make(chan struct{}, runtime.NumCPU())
	)
	for i := range c.planes {
		wg.Add(1)
		sem <- struct{}{}
		go func(t *templatePlane) {
			defer wg.Done()
			defer func() { <-sem }()
			s := frame.bestMatch(ctx, t, c.stride)
			mu.Lock()
			if s > best {
				best = s
			}
			mu.Unlock()
		}(&c.planes[i])
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return detection.Result{}, err
	}
	return detection.Result{Status: detection.StatusSuccess, Confidence: clamp01(best)}, nil
}
