package flexmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// QuatFromMat3 converts a rotation matrix to a unit quaternion.
func QuatFromMat3(m mgl32.Mat3) mgl32.Quat {
	return mgl32.Mat4ToQuat(m.Mat4()).Normalize()
}

// IntegrateOrientation advances q by angular velocity w over dt.
func IntegrateOrientation(q mgl32.Quat, w mgl32.Vec3, dt float32) mgl32.Quat {
	dq := mgl32.Quat{W: 0, V: w}.Mul(q).Scale(0.5 * dt)
	return q.Add(dq).Normalize()
}

// AngularVelocity returns the angular velocity that rotates prev into q over dt.
func AngularVelocity(q, prev mgl32.Quat, dt float32) mgl32.Vec3 {
	if dt <= 0 {
		return mgl32.Vec3{}
	}
	d := q.Mul(prev.Conjugate())
	if d.W < 0 {
		d = d.Scale(-1)
	}
	return d.V.Mul(2 / dt)
}

// QuatFromTo returns the shortest rotation taking unit vector a to unit vector b.
func QuatFromTo(a, b mgl32.Vec3) mgl32.Quat {
	d := a.Dot(b)
	if d < -1+1e-6 {
		axis := mgl32.Vec3{1, 0, 0}.Cross(a)
		if axis.LenSqr() < 1e-6 {
			axis = mgl32.Vec3{0, 1, 0}.Cross(a)
		}
		return mgl32.QuatRotate(math.Pi, axis.Normalize())
	}
	c := a.Cross(b)
	return mgl32.Quat{W: 1 + d, V: c}.Normalize()
}

// QuatIsZero reports whether q is the zero quaternion.
func QuatIsZero(q mgl32.Quat) bool {
	return q.W == 0 && q.V == (mgl32.Vec3{})
}
