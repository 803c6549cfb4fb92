package camera

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func near(a, b mgl32.Vec3, tol float32) bool {
	return a.Sub(b).Len() <= tol
}

func TestNew(t *testing.T) {
	cam := New(mgl32.Vec3{1, 2, 3}, 10)

	if got := cam.Position().Sub(cam.Target).Len(); math.Abs(float64(got-10)) > 1e-4 {
		t.Errorf("expected eye at distance 10, got %f", got)
	}
	if cam.Position()[1] <= cam.Target[1] {
		t.Errorf("expected eye above target, got %v", cam.Position())
	}
}

func TestBasisIsOrthonormal(t *testing.T) {
	cam := New(mgl32.Vec3{}, 5)
	cam.Orbit(1.2, -0.4)

	f, r, u := cam.Forward(), cam.Right(), cam.Up()
	for name, d := range map[string]float32{"f.r": f.Dot(r), "f.u": f.Dot(u), "r.u": r.Dot(u)} {
		if math.Abs(float64(d)) > 1e-5 {
			t.Errorf("%s = %f, want 0", name, d)
		}
	}
	if math.Abs(float64(u.Len()-1)) > 1e-5 {
		t.Errorf("up not unit: %f", u.Len())
	}
	if u[1] <= 0 {
		t.Errorf("up points down: %v", u)
	}
}

func TestOrbitClampsPitch(t *testing.T) {
	cam := New(mgl32.Vec3{}, 5)
	cam.Orbit(0, 10)
	if cam.Pitch > maxPitch {
		t.Errorf("pitch %f exceeds %f", cam.Pitch, maxPitch)
	}
	cam.Orbit(0, -20)
	if cam.Pitch < -maxPitch {
		t.Errorf("pitch %f below %f", cam.Pitch, -maxPitch)
	}
}

func TestOrbitWrapsYaw(t *testing.T) {
	cam := New(mgl32.Vec3{}, 5)
	before := cam.Position()
	cam.Orbit(2*math.Pi, 0)
	if cam.Yaw < -math.Pi || cam.Yaw > math.Pi {
		t.Errorf("yaw %f not wrapped", cam.Yaw)
	}
	if !near(before, cam.Position(), 1e-4) {
		t.Errorf("full turn moved the eye: %v -> %v", before, cam.Position())
	}
}

func TestZoomLimits(t *testing.T) {
	cam := New(mgl32.Vec3{}, 5)

	cam.ZoomBy(1000)
	if cam.Distance != cam.MinDistance {
		t.Errorf("expected min distance %f, got %f", cam.MinDistance, cam.Distance)
	}
	cam.ZoomBy(0.0001)
	if cam.Distance != cam.MaxDistance {
		t.Errorf("expected max distance %f, got %f", cam.MaxDistance, cam.Distance)
	}
	cam.ZoomBy(0)
	if cam.Distance != cam.MaxDistance {
		t.Errorf("zero factor changed distance to %f", cam.Distance)
	}
}

func TestPanKeepsOffset(t *testing.T) {
	cam := New(mgl32.Vec3{}, 5)
	offset := cam.Position().Sub(cam.Target)
	cam.Pan(0.1, 0.2)
	if near(cam.Target, mgl32.Vec3{}, 1e-6) {
		t.Error("pan did not move the target")
	}
	if !near(offset, cam.Position().Sub(cam.Target), 1e-4) {
		t.Error("pan changed the view direction")
	}
}

func TestFrame(t *testing.T) {
	cam := New(mgl32.Vec3{}, 5)
	cam.Frame(mgl32.Vec3{-1, 0, -1}, mgl32.Vec3{1, 2, 1})
	if !near(cam.Target, mgl32.Vec3{0, 1, 0}, 1e-6) {
		t.Errorf("expected target at box centre, got %v", cam.Target)
	}
	r := float64(mgl32.Vec3{2, 2, 2}.Len() / 2)
	want := r / math.Sin(float64(mgl32.DegToRad(22.5)))
	if math.Abs(float64(cam.Distance)-want) > 1e-3 {
		t.Errorf("expected distance %f, got %f", want, cam.Distance)
	}
}

func Test2D(t *testing.T) {
	cam := New2D(mgl32.Vec3{1, 1, 0}, 4)
	cam.Orbit(1, 1)
	if !near(cam.Position(), mgl32.Vec3{1, 1, 4}, 1e-6) {
		t.Errorf("2D camera moved off axis: %v", cam.Position())
	}
	want := 2 * 4 * math.Tan(float64(mgl32.DegToRad(22.5)))
	if math.Abs(float64(cam.OrthoHeight())-want) > 1e-4 {
		t.Errorf("ortho height %f, want %f", cam.OrthoHeight(), want)
	}
}
