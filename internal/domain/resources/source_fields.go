package resources

import "sort"

// SourceFields is a provenance set. Normalized form is sorted and de-duplicated
// so two sets compare equal regardless of discovery order.
type SourceFields []SourceField

func NewSourceFields(fields ...SourceField) SourceFields {
	return SourceFields(fields).Normalized()
}

func (s SourceFields) Normalized() SourceFields {
	if len(s) == 0 {
		return SourceFields{}
	}
	seen := make(map[SourceField]struct{}, len(s))
	out := make(SourceFields, 0, len(s))
	for _, f := range s {
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s SourceFields) Has(f SourceField) bool {
	for _, v := range s {
		if v == f {
			return true
		}
	}
	return false
}

func (s SourceFields) Equal(other SourceFields) bool {
	a, b := s.Normalized(), other.Normalized()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// AutoDetected is true when any provenance came from scanned text rather
// than the explicit resource field.
func (s SourceFields) AutoDetected() bool {
	for _, f := range s {
		if f != FieldResource {
			return true
		}
	}
	return false
}

// Without drops f from the set.
func (s SourceFields) Without(f SourceField) SourceFields {
	out := make(SourceFields, 0, len(s))
	for _, v := range s {
		if v != f {
			out = append(out, v)
		}
	}
	return out
}
