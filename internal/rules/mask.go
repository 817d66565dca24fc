package rules

// Mask is a per-event inclusion flag aligned with a domain.Log.
type Mask []bool

// Fill returns a mask of length n with every entry set to v.
func Fill(n int, v bool) Mask {
	m := make(Mask, n)
	if v {
		for i := range m {
			m[i] = true
		}
	}
	return m
}

// And returns the element-wise conjunction. Both masks must be the same
// length.
func (m Mask) And(o Mask) Mask {
	out := make(Mask, len(m))
	for i := range m {
		out[i] = m[i] && o[i]
	}
	return out
}

// Or returns the element-wise disjunction.
func (m Mask) Or(o Mask) Mask {
	out := make(Mask, len(m))
	for i := range m {
		out[i] = m[i] || o[i]
	}
	return out
}

// Count returns the number of set entries.
func (m Mask) Count() int {
	n := 0
	for _, v := range m {
		if v {
			n++
		}
	}
	return n
}
