// Preview canvas: displays the latest committed render
package gui

import (
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
)

// PreviewCanvas shows the rendered edge image. Its contents are replaced
// wholesale on every committed pipeline run.
type PreviewCanvas struct {
	image *canvas.Image
	card  *widget.Card
}

func NewPreviewCanvas() *PreviewCanvas {
	placeholder := image.NewRGBA(image.Rect(0, 0, 320, 240))
	for y := 0; y < 240; y++ {
		for x := 0; x < 320; x++ {
			placeholder.Set(x, y, color.RGBA{240, 240, 240, 255})
		}
	}

	img := canvas.NewImageFromImage(placeholder)
	img.FillMode = canvas.ImageFillContain
	img.ScaleMode = canvas.ImageScalePixels
	img.SetMinSize(fyne.NewSize(320, 240))

	return &PreviewCanvas{
		image: img,
		card:  widget.NewCard("Preview", "paste or open an image to begin", img),
	}
}

// Update replaces the displayed render. Must run on the UI goroutine.
func (pc *PreviewCanvas) Update(img image.Image) {
	pc.image.Image = img
	pc.image.Refresh()
	pc.card.SetSubTitle("")
}

// SetSubtitle updates the card's caption. Must run on the UI goroutine.
func (pc *PreviewCanvas) SetSubtitle(text string) {
	pc.card.SetSubTitle(text)
}

func (pc *PreviewCanvas) GetContainer() fyne.CanvasObject {
	return pc.card
}
