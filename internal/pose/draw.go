package pose

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// skeleton lists the keypoint pairs joined by a line in the preview overlay.
var skeleton = [][2]int{
	{Nose, LeftEye}, {Nose, RightEye}, {LeftEye, LeftEar}, {RightEye, RightEar},
	{LeftShoulder, RightShoulder}, {LeftShoulder, LeftElbow}, {LeftElbow, LeftWrist},
	{RightShoulder, RightElbow}, {RightElbow, RightWrist},
	{LeftShoulder, LeftHip}, {RightShoulder, RightHip}, {LeftHip, RightHip},
	{LeftHip, LeftKnee}, {LeftKnee, LeftAnkle}, {RightHip, RightKnee}, {RightKnee, RightAnkle},
}

var (
	jointColor = color.RGBA{R: 255, G: 20, B: 147, A: 0}
	limbColor  = color.RGBA{R: 0, G: 255, B: 255, A: 0}
)

// Draw renders the frame's keypoints onto img. Keypoints scoring below
// minScore are skipped, along with any limb touching one.
func Draw(img *gocv.Mat, f Frame, minScore float64) {
	if img == nil || img.Empty() {
		return
	}

	w, h := img.Cols(), img.Rows()
	pt := func(k Keypoint) image.Point {
		return image.Pt(int(k.X*float64(w)), int(k.Y*float64(h)))
	}

	for _, pair := range skeleton {
		if !f.Has(pair[0]) || !f.Has(pair[1]) {
			continue
		}
		a, b := f.At(pair[0]), f.At(pair[1])
		if a.Score < minScore || b.Score < minScore {
			continue
		}
		gocv.Line(img, pt(a), pt(b), limbColor, 2)
	}

	for _, k := range f.Keypoints {
		if k.Score < minScore {
			continue
		}
		gocv.Circle(img, pt(k), 4, jointColor, -1)
	}
}
