package symbols

// Validate reports whether name is a legal identifier: letters,
// digits, `_`, `#` and `.` only, with a digit or `.` forbidden as the
// leading byte (`.` is reserved for scope-qualified references like
// `a.b.x`, never a name's own first character). Ported from bass's
// Bass::validate, generalized per spec.md §4.3/§8.
func Validate(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_', c == '#':
		case c >= '0' && c <= '9', c == '.':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
