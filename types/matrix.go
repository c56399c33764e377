package types

import "github.com/go-gl/mathgl/mgl32"

// A 4x4 matrix stored in column-major order. Column 3 holds the translation.
type Mat4 mgl32.Mat4

// Create identity matrix.
func Ident4() Mat4 {
	return Mat4(mgl32.Ident4())
}

// Create a translation matrix.
func Translate4(v Vec3) Mat4 {
	return Mat4(mgl32.Translate3D(v[0], v[1], v[2]))
}

// Create a scale matrix.
func Scale4(v Vec3) Mat4 {
	return Mat4(mgl32.Scale3D(v[0], v[1], v[2]))
}

// Create a rotation matrix around an axis. The angle is specified in degrees.
func Rotate4(axis Vec3, angle float32) Mat4 {
	return Mat4(mgl32.HomogRotate3D(mgl32.DegToRad(angle), mgl32.Vec3(axis).Normalize()))
}

// Multiply with another matrix.
func (m Mat4) Mul4(m2 Mat4) Mat4 {
	return Mat4(mgl32.Mat4(m).Mul4(mgl32.Mat4(m2)))
}

// Calculate the matrix inverse. Singular matrices yield the zero matrix.
func (m Mat4) Inv() Mat4 {
	return Mat4(mgl32.Mat4(m).Inv())
}

// Get column as a Vec3, ignoring the w component.
func (m Mat4) Col3(col int) Vec3 {
	return Vec3{m[col*4], m[col*4+1], m[col*4+2]}
}

// Transform a point (w = 1).
func (m Mat4) MulPoint(p Vec3) Vec3 {
	return Vec3(mgl32.TransformCoordinate(mgl32.Vec3(p), mgl32.Mat4(m)))
}
