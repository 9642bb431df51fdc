package geom

import (
	"image"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
		want Rect
	}{
		{"ordered", Pt(10, 20), Pt(30, 50), Rect{X: 10, Y: 20, W: 20, H: 30}},
		{"reversed", Pt(30, 50), Pt(10, 20), Rect{X: 10, Y: 20, W: 20, H: 30}},
		{"mixed", Pt(30, 20), Pt(10, 50), Rect{X: 10, Y: 20, W: 20, H: 30}},
		{"degenerate", Pt(5, 5), Pt(5, 5), Rect{X: 5, Y: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.a, tt.b); got != tt.want {
				t.Fatalf("Normalize(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestToNative(t *testing.T) {
	got := ToNative(Pt(10, 12.5), 2)
	if got != Pt(20, 25) {
		t.Fatalf("ToNative = %v, want {20 25}", got)
	}
}

func TestNativeRectScaleTwo(t *testing.T) {
	m := Mapper{Logical: image.Pt(800, 600), Native: image.Pt(1600, 1200)}
	got := m.NativeRect(Rect{X: 10, Y: 10, W: 100, H: 50})
	want := image.Rect(20, 20, 220, 120)
	if got != want {
		t.Fatalf("NativeRect = %v, want %v", got, want)
	}
}

func TestNativeRectIdentity(t *testing.T) {
	m := Mapper{Logical: image.Pt(800, 600), Native: image.Pt(800, 600)}
	got := m.NativeRect(Rect{X: 10, Y: 10, W: 100, H: 50})
	want := image.Rect(10, 10, 110, 60)
	if got != want {
		t.Fatalf("NativeRect = %v, want %v", got, want)
	}
}

func TestNativeRectFractionalScale(t *testing.T) {
	m := Mapper{Logical: image.Pt(1280, 800), Native: image.Pt(1920, 1200)}
	got := m.NativeRect(Normalize(Pt(100, 100), Pt(300, 250)))
	want := image.Rect(150, 150, 450, 375)
	if got != want {
		t.Fatalf("NativeRect = %v, want %v", got, want)
	}
}

func TestNativeRectClampsToRaster(t *testing.T) {
	m := Mapper{Logical: image.Pt(100, 100), Native: image.Pt(200, 200)}
	got := m.NativeRect(Rect{X: 90, Y: 90, W: 50, H: 50})
	want := image.Rect(180, 180, 200, 200)
	if got != want {
		t.Fatalf("NativeRect = %v, want %v", got, want)
	}
}

func TestRatioUsesSurfaceSize(t *testing.T) {
	// Surface one logical pixel short of native/scale: the ratio follows the
	// real sizes, not the nominal factor of 2.
	m := Mapper{Logical: image.Pt(999, 500), Native: image.Pt(2000, 1000)}
	rx, ry := m.Ratio()
	if ry != 2 {
		t.Fatalf("ry = %v, want 2", ry)
	}
	if rx <= 2 {
		t.Fatalf("rx = %v, want > 2", rx)
	}
}

func TestLogicalSize(t *testing.T) {
	if got := LogicalSize(image.Pt(1920, 1200), 1.5); got != image.Pt(1280, 800) {
		t.Fatalf("LogicalSize = %v", got)
	}
	if got := LogicalSize(image.Pt(100, 50), 0); got != image.Pt(100, 50) {
		t.Fatalf("LogicalSize with zero scale = %v", got)
	}
}
