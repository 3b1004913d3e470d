package render

import (
	"fmt"
	"image"
	"image/color"
	"sort"

	"gocv.io/x/gocv"

	fcw "github.com/swdee/go-fcw"
)

// DangerBoxes renders the bounding boxes of the dangerous detections in a
// result.  Boxes are in the pixel space of the image the detections were
// made on and are colored by the risk level of their object.
func DangerBoxes(img *gocv.Mat, res *fcw.Result, font Font, lineThickness int) {

	ids := make([]int, 0, len(res.DangerousDetections))

	for id := range res.DangerousDetections {
		ids = append(ids, id)
	}

	sort.Ints(ids)

	// keep a record of all box labels for later rendering
	boxLabels := make([]boxLabel, 0, len(ids))

	for _, id := range ids {

		det := res.DangerousDetections[id]
		useClr := RiskColor(res.Objects[id].Risk)

		rect := image.Rect(int(det.BBox[0]), int(det.BBox[1]), int(det.BBox[2]), int(det.BBox[3]))
		gocv.Rectangle(img, rect, useClr, lineThickness)

		text := fmt.Sprintf("%d %.1fm", id, det.Distance)

		if ttc := res.Objects[id].TimeToCollision; ttc != nil {
			text += fmt.Sprintf(" %.1fs", *ttc)
		}

		boxLabels = append(boxLabels, newBoxLabel(rect, text, useClr, font, lineThickness))
	}

	// labels are the top most layer so they are never covered by another box
	for _, box := range boxLabels {
		box.draw(img, font)
	}
}

// boxLabel holds the details of a label rendered above a box
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

func newBoxLabel(box image.Rectangle, text string, clr color.RGBA, font Font,
	lineThickness int) boxLabel {

	textSize := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)

	var centerX int

	switch font.Alignment {
	case Center:
		centerX = (box.Min.X + box.Max.X) / 2

	case Right:
		centerX = box.Max.X - (textSize.X / 2) - font.Pad + (lineThickness / 2)

	case Left:
		fallthrough
	default:
		centerX = box.Min.X + (textSize.X / 2) + font.Pad - (lineThickness / 2)
	}

	return boxLabel{
		rect: image.Rect(centerX-textSize.X/2-font.Pad,
			box.Min.Y-textSize.Y-2*font.Pad,
			centerX+textSize.X/2+font.Pad, box.Min.Y),
		clr:     clr,
		text:    text,
		textPos: image.Pt(centerX-textSize.X/2, box.Min.Y-font.Pad),
	}
}

func (b boxLabel) draw(img *gocv.Mat, font Font) {
	gocv.Rectangle(img, b.rect, b.clr, -1)
	gocv.PutTextWithParams(img, b.text, b.textPos,
		font.Face, font.Scale, font.Color, font.Thickness,
		font.LineType, false)
}
