package view

import (
	"image"

	"github.com/soocke/weapon-watch/domain/detection"
	"github.com/soocke/weapon-watch/ui/images"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// Preview shows the most recent frame. It implements detection.DisplaySink;
// Show must be called on the Tk thread, which holds because the scheduler
// calls it from Tick.
type Preview interface {
	detection.DisplaySink
	Reset()
}

type preview struct {
	label     *LabelWidget
	prevPhoto *Img // disposed before replacement so old pixel data is freed
}

const (
	maxPreviewW = 640
	maxPreviewH = 360
)

// NewPreview creates the preview label spanning the window width at row.
func NewPreview(row int) Preview {
	photo := NewPhoto(Data(placeholderPNG()))
	lbl := Label(Image(photo), Borderwidth(1), Relief("sunken"))
	Grid(lbl, Row(row), Column(0), Columnspan(5), Sticky("we"), Padx("0.4m"), Pady("0.4m"))
	return &preview{label: lbl, prevPhoto: photo}
}

func (v *preview) Show(f detection.Frame) {
	if v.label == nil || f.Image == nil {
		return
	}
	scaled := images.ScaleToFit(f.Image, maxPreviewW, maxPreviewH)
	v.replace(images.EncodePNG(scaled))
}

func (v *preview) Reset() {
	if v.label == nil {
		return
	}
	v.replace(placeholderPNG())
}

func (v *preview) replace(png []byte) {
	if v.prevPhoto != nil {
		v.prevPhoto.Delete()
	}
	v.prevPhoto = NewPhoto(Data(png))
	v.label.Configure(Image(v.prevPhoto))
}

func placeholderPNG() []byte {
	return images.EncodePNG(image.NewRGBA(image.Rect(0, 0, 320, 180)))
}
