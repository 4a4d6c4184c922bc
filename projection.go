package metalgs

import "golang.org/x/image/math/f32"

// identityMat4 is the 4x4 identity in row-major order.
var identityMat4 = f32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

// mat4Mul returns a*b, row-major. Vertices are row vectors, so the
// combined transform for "a then b" is exactly this product.
func mat4Mul(a, b f32.Mat4) f32.Mat4 {
	var out f32.Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += a[i*4+k] * b[k*4+j]
			}
			out[i*4+j] = sum
		}
	}
	return out
}

// Ortho replaces the current projection with an off-center orthographic
// matrix. The host's convention puts top above bottom on screen, so the
// vertical axis flips: (left, top) maps to clip (-1, 1) and
// (right, bottom) to (1, -1). Depth maps [near, far] onto [0, 1].
func (d *Device) Ortho(left, right, top, bottom, near, far float32) {
	rml := right - left
	bmt := bottom - top
	fmn := far - near

	m := f32.Mat4{}
	m[0] = 2 / rml
	m[5] = 2 / -bmt
	m[10] = 1 / fmn
	m[12] = (left + right) / -rml
	m[13] = (bottom + top) / bmt
	m[14] = near / -fmn
	m[15] = 1
	d.state.projection = m
}

// Frustum replaces the current projection with an off-center perspective
// matrix, same axis conventions as Ortho.
func (d *Device) Frustum(left, right, top, bottom, near, far float32) {
	rml := right - left
	bmt := bottom - top
	fmn := far - near

	m := f32.Mat4{}
	m[0] = 2 * near / rml
	m[5] = 2 * near / -bmt
	m[8] = (left + right) / -rml
	m[9] = (bottom + top) / bmt
	m[10] = far / fmn
	m[11] = 1
	m[14] = (near * far) / -fmn
	d.state.projection = m
}

// ProjectionPush saves the current projection on the stack.
func (d *Device) ProjectionPush() {
	d.projStack = append(d.projStack, d.state.projection)
}

// ProjectionPop restores the projection saved by the matching
// ProjectionPush. Popping an empty stack is a soft failure: the current
// projection is left unchanged.
func (d *Device) ProjectionPop() {
	n := len(d.projStack)
	if n == 0 {
		Logger().Warn("metalgs: projection pop on empty stack")
		return
	}
	d.state.projection = d.projStack[n-1]
	d.projStack = d.projStack[:n-1]
}

// Projection returns the current projection matrix.
func (d *Device) Projection() f32.Mat4 { return d.state.projection }

// SetWorldMatrix records the host's current world (model-view) transform.
// Each draw multiplies it with the projection to produce the ViewProj
// uniform of the bound vertex shader.
func (d *Device) SetWorldMatrix(m f32.Mat4) { d.world = m }

// WorldMatrix returns the host's current world transform.
func (d *Device) WorldMatrix() f32.Mat4 { return d.world }
