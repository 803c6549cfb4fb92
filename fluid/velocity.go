package fluid

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/flex/flexmath"
	"github.com/pthm-cable/flex/parallel"
	"github.com/pthm-cable/flex/particles"
)

// ApplyVelocityCorrections applies viscosity (XSPH), vorticity confinement,
// surface tension, atmospheric drag and pressure, and buoyancy.
func (d *Density) ApplyVelocityCorrections(set *particles.Set, pool *parallel.Pool, gravity mgl32.Vec3, dt float32) {
	if len(d.fluid) == 0 || dt <= 0 {
		return
	}

	// Vorticity and viscosity read the velocities of the previous pass.
	pool.For(len(d.fluid), func(start, end, _ int) {
		for k := start; k < end; k++ {
			i := d.fluid[k]
			kern := d.kernels[k]
			xi, vi := set.Positions[i], set.Velocities[i].Vec3()
			var visc, omega mgl32.Vec3
			for _, j := range d.neighbors[k] {
				rho := set.FluidData[j].Density
				if rho <= 0 {
					continue
				}
				vol := mass(set, j) / rho
				r := d.delta(xi, set.Positions[j])
				vij := set.Velocities[j].Vec3().Sub(vi)
				visc = visc.Add(vij.Mul(vol * kern.Poly6(r.LenSqr())))
				dir, l := flexmath.Normalize(r)
				omega = omega.Add(vij.Cross(dir.Mul(-kern.SpikyGrad(l))).Mul(vol))
			}
			d.scratch[k] = flexmath.Vec4(visc)
			d.omega[k] = flexmath.Vec4(omega)
			set.Vorticity[i] = d.omega[k]
		}
	})

	pool.For(len(d.fluid), func(start, end, _ int) {
		for k := start; k < end; k++ {
			i := d.fluid[k]
			if set.InvMasses[i] == 0 {
				continue
			}
			mat := set.FluidMaterials[i]
			kern := d.kernels[k]
			state := set.FluidData[i]
			xi := set.Positions[i]
			v := set.Velocities[i].Vec3()

			v = v.Add(d.scratch[k].Vec3().Mul(min(mat.Viscosity, 1)))

			if mat.Vorticity > 0 {
				var eta mgl32.Vec3
				for _, j := range d.neighbors[k] {
					rho := set.FluidData[j].Density
					if rho <= 0 {
						continue
					}
					dir, l := flexmath.Normalize(d.delta(xi, set.Positions[j]))
					eta = eta.Add(dir.Mul(kern.SpikyGrad(l) * mass(set, j) / rho * set.Vorticity[j].Vec3().Len()))
				}
				if n, l := flexmath.Normalize(eta); l > 0 {
					f := n.Cross(d.omega[k].Vec3()).Mul(mat.Vorticity)
					v = v.Add(f.Mul(dt))
				}
			}

			if mat.SurfaceTension > 0 {
				var coh mgl32.Vec3
				for _, j := range d.neighbors[k] {
					r := d.delta(xi, set.Positions[j])
					coh = coh.Add(r.Mul(mass(set, j) * kern.Poly6(r.LenSqr())))
				}
				v = v.Sub(coh.Mul(mat.SurfaceTension * dt))
			}

			surface := float32(1)
			if mat.RestDensity > 0 {
				surface = flexmath.Clamp(1-state.Density/mat.RestDensity, 0, 1)
			}
			if mat.AtmosphericDrag > 0 && surface > 0 {
				wind := set.Wind[i].Vec3()
				v = v.Add(wind.Sub(v).Mul(min(mat.AtmosphericDrag*surface*dt, 1)))
			}
			if mat.AtmosphericPressure != 0 && surface > 0 {
				n := set.Normals[i].Vec3()
				v = v.Sub(n.Mul(mat.AtmosphericPressure * surface * dt))
			}
			if mat.Buoyancy != 0 {
				v = v.Sub(gravity.Mul(mat.Buoyancy * dt))
			}

			if d.Mode == flexmath.Mode2D {
				v[2] = 0
			}
			set.Velocities[i] = flexmath.Vec4(v)
		}
	})
}

// UpdateNormals writes the colour-field gradient of every fluid particle to
// the particle normals. Surface particles get long normals, interior ones
// short.
func (d *Density) UpdateNormals(set *particles.Set, pool *parallel.Pool) {
	pool.For(len(d.fluid), func(start, end, _ int) {
		for k := start; k < end; k++ {
			i := d.fluid[k]
			kern := d.kernels[k]
			xi := set.Positions[i]
			var n mgl32.Vec3
			for _, j := range d.neighbors[k] {
				rho := set.FluidData[j].Density
				if rho <= 0 {
					continue
				}
				dir, l := flexmath.Normalize(d.delta(xi, set.Positions[j]))
				n = n.Add(dir.Mul(kern.SpikyGrad(l) * mass(set, j) / rho * kern.Radius))
			}
			set.Normals[i] = flexmath.Vec4(n.Mul(-1))
		}
	})
}

// UpdateAnisotropy computes the principal axes of each fluid particle's
// neighbourhood for ellipsoid rendering. Axes are scaled so the largest
// equals the particle radius times maxAnisotropy.
func (d *Density) UpdateAnisotropy(set *particles.Set, pool *parallel.Pool, maxAnisotropy float32) {
	if maxAnisotropy < 1 {
		maxAnisotropy = 1
	}
	pool.For(len(d.fluid), func(start, end, _ int) {
		for k := start; k < end; k++ {
			i := d.fluid[k]
			r := set.Radius(i)
			nb := d.neighbors[k]
			if len(nb) < 4 {
				set.Anisotropies[0][i] = mgl32.Vec4{r, 0, 0, 0}
				set.Anisotropies[1][i] = mgl32.Vec4{0, r, 0, 0}
				set.Anisotropies[2][i] = mgl32.Vec4{0, 0, r, 0}
				continue
			}
			var mean mgl32.Vec3
			for _, j := range nb {
				mean = mean.Add(set.Positions[j].Vec3())
			}
			mean = mean.Mul(1 / float32(len(nb)))
			var cov mgl32.Mat3
			for _, j := range nb {
				dx := set.Positions[j].Vec3().Sub(mean)
				cov = cov.Add(dx.OuterProd3(dx))
			}
			cov = cov.Mul(1 / float32(len(nb)))
			vals, vecs, ok := flexmath.SymmetricEigen(cov)
			if !ok || vals[2] <= 0 {
				continue
			}
			for a := range 3 {
				s := flexmath.Sqrt(max(vals[a], 0) / vals[2])
				s = flexmath.Clamp(s, 1/maxAnisotropy, 1)
				axis := vecs.Col(a).Mul(r * maxAnisotropy * s)
				set.Anisotropies[a][i] = flexmath.Vec4(axis)
			}
		}
	})
}
