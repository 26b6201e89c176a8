package biotsavart

import (
	"github.com/san-kum/vortexsim/internal/filament"
)

// ComputeOnNodes fills the requested per-node fields for the selected
// component of the Ewald decomposition. Output slices are zeroed first;
// the caller allocates them (see [AllocFields]) sized to the current
// filaments. Filament coefficients must be up to date.
func (c *Cache) ComputeOnNodes(out Fields, fs []*filament.Filament, comp Component) error {
	zeroPerNode(out.Velocity)
	zeroPerNode(out.Streamfunction)
	if len(fs) == 0 {
		return nil
	}

	if comp.wantsShort() || comp.wantsLocal() {
		near := comp.wantsShort()
		local := comp.wantsLocal()
		if err := c.addShortRange(out, fs, near, local); err != nil {
			return err
		}
	}

	if comp.wantsLong() && c.p.Box.Periodic() {
		switch c.p.LongBackend {
		case BackendExactSum:
			if err := c.addLongRangeExact(out, fs); err != nil {
				return err
			}
		default:
			if err := c.addLongRange(out, fs); err != nil {
				return err
			}
		}
	}
	return nil
}
