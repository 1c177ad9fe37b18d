// Parameter control panel: the four pipeline sliders
package gui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"edge-viewer/internal/core"
)

// ControlPanel exposes the four pipeline parameters as sliders. Every slider
// tick reports the full current parameter set; there is no debouncing.
type ControlPanel struct {
	scale      *widget.Slider
	kernel     *widget.Slider
	threshold1 *widget.Slider
	threshold2 *widget.Slider

	scaleValue *widget.Label
	kernelVal  *widget.Label
	t1Value    *widget.Label
	t2Value    *widget.Label

	onChange func(core.Params)
	box      *fyne.Container
}

func NewControlPanel(initial core.Params) *ControlPanel {
	cp := &ControlPanel{}

	cp.scale = widget.NewSlider(core.MinScale, core.MaxScale)
	cp.scale.Step = 0.05
	cp.scale.Value = initial.Scale

	cp.kernel = widget.NewSlider(float64(core.MinKernel), float64(core.MaxKernel))
	cp.kernel.Step = 2
	cp.kernel.Value = float64(initial.Kernel)

	cp.threshold1 = widget.NewSlider(float64(core.MinThreshold1), float64(core.MaxThreshold1))
	cp.threshold1.Step = 1
	cp.threshold1.Value = float64(initial.Threshold1)

	cp.threshold2 = widget.NewSlider(float64(core.MinThreshold2), float64(core.MaxThreshold2))
	cp.threshold2.Step = 1
	cp.threshold2.Value = float64(initial.Threshold2)

	cp.scaleValue = widget.NewLabel("")
	cp.kernelVal = widget.NewLabel("")
	cp.t1Value = widget.NewLabel("")
	cp.t2Value = widget.NewLabel("")
	cp.refreshValueLabels()

	changed := func(float64) {
		cp.refreshValueLabels()
		if cp.onChange != nil {
			cp.onChange(cp.Params())
		}
	}
	cp.scale.OnChanged = changed
	cp.kernel.OnChanged = changed
	cp.threshold1.OnChanged = changed
	cp.threshold2.OnChanged = changed

	cp.box = container.NewVBox(
		row("Scale", cp.scale, cp.scaleValue),
		row("Blur kernel", cp.kernel, cp.kernelVal),
		row("Threshold 1", cp.threshold1, cp.t1Value),
		row("Threshold 2", cp.threshold2, cp.t2Value),
	)

	cp.Disable()
	return cp
}

func row(name string, slider *widget.Slider, value *widget.Label) fyne.CanvasObject {
	return container.NewBorder(nil, nil, widget.NewLabel(name), value, slider)
}

func (cp *ControlPanel) refreshValueLabels() {
	cp.scaleValue.SetText(fmt.Sprintf("%.2f", cp.scale.Value))
	cp.kernelVal.SetText(fmt.Sprintf("%d", int(cp.kernel.Value)))
	cp.t1Value.SetText(fmt.Sprintf("%d", int(cp.threshold1.Value)))
	cp.t2Value.SetText(fmt.Sprintf("%d", int(cp.threshold2.Value)))
}

// SetOnChange installs the parameter observer.
func (cp *ControlPanel) SetOnChange(fn func(core.Params)) {
	cp.onChange = fn
}

// Params reads the current slider positions.
func (cp *ControlPanel) Params() core.Params {
	return core.Params{
		Scale:      cp.scale.Value,
		Kernel:     int(cp.kernel.Value),
		Threshold1: int(cp.threshold1.Value),
		Threshold2: int(cp.threshold2.Value),
	}.Clamp()
}

func (cp *ControlPanel) Enable() {
	cp.scale.Enable()
	cp.kernel.Enable()
	cp.threshold1.Enable()
	cp.threshold2.Enable()
}

func (cp *ControlPanel) Disable() {
	cp.scale.Disable()
	cp.kernel.Disable()
	cp.threshold1.Disable()
	cp.threshold2.Disable()
}

func (cp *ControlPanel) GetContainer() fyne.CanvasObject {
	return widget.NewCard("Parameters", "", cp.box)
}
