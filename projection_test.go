package metalgs

import (
	"testing"

	"golang.org/x/image/math/f32"
)

// mulPoint applies a row-vector transform: [x y z 1] * m.
func mulPoint(m f32.Mat4, x, y, z float32) (float32, float32, float32, float32) {
	v := [4]float32{x, y, z, 1}
	var out [4]float32
	for col := 0; col < 4; col++ {
		var sum float32
		for row := 0; row < 4; row++ {
			sum += v[row] * m[row*4+col]
		}
		out[col] = sum
	}
	return out[0], out[1], out[2], out[3]
}

func TestOrtho2DMapsCorners(t *testing.T) {
	d, _ := newTestDevice(t)

	const w, h = 1920, 1080
	d.Ortho(0, w, 0, h, -1, 1)
	m := d.Projection()

	x, y, _, _ := mulPoint(m, 0, 0, 0)
	if x != -1 || y != 1 {
		t.Errorf("(0,0) maps to (%v,%v), want (-1,1)", x, y)
	}
	x, y, _, _ = mulPoint(m, w, h, 0)
	if x != 1 || y != -1 {
		t.Errorf("(%d,%d) maps to (%v,%v), want (1,-1)", w, h, x, y)
	}
}

func TestFrustumPerspectiveDivide(t *testing.T) {
	d, _ := newTestDevice(t)

	d.Frustum(-1, 1, -1, 1, 1, 100)
	m := d.Projection()

	// A point on the near plane center lands at clip center with w = z.
	x, y, z, w := mulPoint(m, 0, 0, 1)
	if x != 0 || y != 0 {
		t.Errorf("near center maps to (%v,%v), want (0,0)", x, y)
	}
	if w != 1 {
		t.Errorf("w = %v, want 1 for z = near", w)
	}
	if z < 0 || z > 0.001 {
		t.Errorf("near depth = %v, want ~0", z)
	}
}

func TestProjectionStack(t *testing.T) {
	d, _ := newTestDevice(t)

	d.Ortho(0, 100, 0, 100, -1, 1)
	before := d.Projection()

	d.ProjectionPush()
	d.Ortho(0, 50, 0, 50, -1, 1)
	if d.Projection() == before {
		t.Fatal("ortho did not change projection")
	}
	d.ProjectionPop()
	if d.Projection() != before {
		t.Error("pop did not restore the pushed projection")
	}

	// Nested pushes unwind in LIFO order.
	d.ProjectionPush()
	d.Ortho(0, 10, 0, 10, -1, 1)
	mid := d.Projection()
	d.ProjectionPush()
	d.Ortho(0, 5, 0, 5, -1, 1)
	d.ProjectionPop()
	if d.Projection() != mid {
		t.Error("inner pop restored the wrong matrix")
	}
	d.ProjectionPop()
	if d.Projection() != before {
		t.Error("outer pop restored the wrong matrix")
	}
}

func TestProjectionPopUnderflow(t *testing.T) {
	d, _ := newTestDevice(t)
	before := d.Projection()
	d.ProjectionPop()
	if d.Projection() != before {
		t.Error("pop on empty stack must leave projection unchanged")
	}
}

func TestMat4MulIdentity(t *testing.T) {
	m := f32.Mat4{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	}
	if got := mat4Mul(m, identityMat4); got != m {
		t.Errorf("m * I = %v, want m", got)
	}
	if got := mat4Mul(identityMat4, m); got != m {
		t.Errorf("I * m = %v, want m", got)
	}
}

func TestWorldMatrixFeedsViewProj(t *testing.T) {
	d, fake := newTestDevice(t)
	quadScene(t, d)

	d.Ortho(0, 4, 0, 4, -1, 1)
	world := identityMat4
	world[12] = 2 // translate x
	d.SetWorldMatrix(world)

	d.BeginScene()
	if err := d.Draw(DrawTriangleStrip, 0, 4); err != nil {
		t.Fatal(err)
	}
	d.Flush()

	block := fake.CommandBuffers[0].Passes[0].VertexBytes[30]
	if block == nil {
		t.Fatal("no uniform block bound")
	}
	want := mat4Mul(world, d.Projection())
	for i := 0; i < 16; i++ {
		got := float32FromBytes(block[i*4 : i*4+4])
		if got != want[i] {
			t.Fatalf("ViewProj[%d] = %v, want %v", i, got, want[i])
		}
	}
}
