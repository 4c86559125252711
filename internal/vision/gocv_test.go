package vision

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"gocv.io/x/gocv"
)

var white = color.RGBA{R: 255, G: 255, B: 255, A: 0}

func TestGoCV_SubtractSaturates(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	a := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 0, 0, 0), 8, 8, gocv.MatTypeCV8U)
	defer a.Close()
	b := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(25, 0, 0, 0), 8, 8, gocv.MatTypeCV8U)
	defer b.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	ops := NewGoCV()
	if err := ops.Subtract(a, b, &dst); err != nil {
		t.Fatalf("Subtract() error = %v", err)
	}
	if got := dst.GetUCharAt(4, 4); got != 0 {
		t.Errorf("10 - 25 = %d, want 0 (saturated)", got)
	}

	if err := ops.Subtract(b, a, &dst); err != nil {
		t.Fatalf("Subtract() error = %v", err)
	}
	if got := dst.GetUCharAt(4, 4); got != 15 {
		t.Errorf("25 - 10 = %d, want 15", got)
	}
}

func TestGoCV_ThresholdIsStrict(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	src := zeros(1, 3)
	defer src.Close()
	src.SetUCharAt(0, 0, 14)
	src.SetUCharAt(0, 1, 15)
	src.SetUCharAt(0, 2, 16)

	dst := gocv.NewMat()
	defer dst.Close()

	NewGoCV().Threshold(src, &dst, 15, 255)

	want := []uint8{0, 0, 255}
	for col, w := range want {
		if got := dst.GetUCharAt(0, col); got != w {
			t.Errorf("pixel %d = %d, want %d", col, got, w)
		}
	}
}

func TestGoCV_Contours(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	t.Run("empty mask", func(t *testing.T) {
		mask := zeros(64, 64)
		defer mask.Close()

		contours, links := NewGoCV().Contours(mask)
		if len(contours) != 0 || len(links) != 0 {
			t.Errorf("got %d contours, %d links; want none", len(contours), len(links))
		}
	})

	t.Run("single disk", func(t *testing.T) {
		mask := zeros(100, 100)
		defer mask.Close()
		mustCircle(t, &mask, image.Pt(50, 50), 10, white)

		contours, links := NewGoCV().Contours(mask)
		if len(contours) != 1 {
			t.Fatalf("got %d contours, want 1", len(contours))
		}
		if links[0].Next != -1 || links[0].Parent != -1 {
			t.Errorf("hierarchy = %+v, want no next and no parent", links[0])
		}
		if contours[0].Area < 250 || contours[0].Area > 350 {
			t.Errorf("area = %f, want roughly pi*10^2", contours[0].Area)
		}
	})

	t.Run("ring has one top-level contour and one hole", func(t *testing.T) {
		mask := zeros(100, 100)
		defer mask.Close()
		mustCircle(t, &mask, image.Pt(50, 50), 20, white)
		mustCircle(t, &mask, image.Pt(50, 50), 8, color.RGBA{})

		contours, links := NewGoCV().Contours(mask)
		if len(contours) != 2 {
			t.Fatalf("got %d contours, want 2", len(contours))
		}

		topLevel := 0
		for _, l := range links {
			if l.Parent == -1 {
				topLevel++
			}
		}
		if topLevel != 1 {
			t.Errorf("got %d top-level contours, want 1", topLevel)
		}
	})
}

func TestGoCV_FitEllipse(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	t.Run("too few points", func(t *testing.T) {
		e := NewGoCV().FitEllipse([]image.Point{{0, 0}, {1, 1}, {2, 0}})
		if e != (Ellipse{}) {
			t.Errorf("FitEllipse(3 points) = %+v, want zero", e)
		}
	})

	t.Run("circle points", func(t *testing.T) {
		var pts []image.Point
		for i := 0; i < 36; i++ {
			a := float64(i) * math.Pi / 18
			pts = append(pts, image.Pt(40+int(math.Round(12*math.Cos(a))), 30+int(math.Round(12*math.Sin(a)))))
		}

		e := NewGoCV().FitEllipse(pts)
		if abs(e.Center.X-40) > 1 || abs(e.Center.Y-30) > 1 {
			t.Errorf("center = %v, want near (40,30)", e.Center)
		}
		if abs(e.Width-24) > 2 || abs(e.Height-24) > 2 {
			t.Errorf("size = %dx%d, want near 24x24", e.Width, e.Height)
		}
	})
}

func TestRecorder_RecordsCalls(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	src := zeros(16, 16)
	defer src.Close()
	dst := gocv.NewMat()
	defer dst.Close()

	rec := NewRecorder(NewGoCV())
	if err := rec.Blur(src, &dst, 5); err != nil {
		t.Fatalf("Blur() error = %v", err)
	}
	rec.Threshold(src, &dst, 12, 255)
	if err := rec.Subtract(src, src, &dst); err != nil {
		t.Fatalf("Subtract() error = %v", err)
	}

	want := []string{"blur(5)", "threshold(12)", "subtract"}
	got := rec.Calls()
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, got[i], want[i])
		}
	}

	rec.Reset()
	if len(rec.Calls()) != 0 {
		t.Error("Reset should clear recorded calls")
	}
}

func TestRecorder_FailOn(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	src := zeros(16, 16)
	defer src.Close()
	dst := gocv.NewMat()
	defer dst.Close()

	errBlur := errors.New("blur failed")
	rec := NewRecorder(NewGoCV())
	rec.FailOn("blur(10)", errBlur)

	if err := rec.Blur(src, &dst, 5); err != nil {
		t.Errorf("Blur(5) error = %v, want nil", err)
	}
	if err := rec.Blur(src, &dst, 10); !errors.Is(err, errBlur) {
		t.Errorf("Blur(10) error = %v, want %v", err, errBlur)
	}
	if got := rec.Calls(); len(got) != 2 || got[1] != "blur(10)" {
		t.Errorf("calls = %v, want the failing call recorded", got)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func mustCircle(t *testing.T, mask *gocv.Mat, center image.Point, radius int, c color.RGBA) {
	t.Helper()
	if err := gocv.Circle(mask, center, radius, c, -1); err != nil {
		t.Fatalf("Circle() error = %v", err)
	}
}

func zeros(rows, cols int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, gocv.MatTypeCV8U)
}
