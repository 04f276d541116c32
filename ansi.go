package corelog

// Byte classes of ECMA-48 escape sequences.
const (
	_ESC = 0x1b
	_CSI = '['
)

func isC0Control(b byte) bool    { return b < 0x20 }
func isFeCode(b byte) bool       { return b >= 0x40 && b <= 0x5f }
func isCSIParameter(b byte) bool { return b >= 0x30 && b <= 0x3f }
func isCSIIntermed(b byte) bool  { return b >= 0x20 && b <= 0x2f }
func isCSITerminal(b byte) bool  { return b >= 0x40 && b <= 0x7e }

// StripEscapes removes terminal escape sequences (two-byte Fe escapes and CSI
// commands) and C0 control bytes other than CR and LF from in. Malformed CSI
// sequences are dropped up to the offending byte. The result is cut at max
// bytes; max <= 0 means no limit.
func StripEscapes(in string, max int) string {
	if max <= 0 || max > len(in) {
		max = len(in)
	}
	out := make([]byte, 0, max)
	esc, csi, paramsDone := false, false, false
	for i := 0; i < len(in) && len(out) < max; i++ {
		b := in[i]
		switch {
		case b == _ESC:
			esc = true
			continue
		case isC0Control(b) && b != '\n' && b != '\r':
			esc = false
			continue
		}

		if esc {
			esc = false
			if b == _CSI {
				csi = true
				continue
			}
			if isFeCode(b) {
				continue
			}
		}

		if csi {
			switch {
			case isCSITerminal(b):
				csi, paramsDone = false, false
			case isCSIParameter(b) && !paramsDone:
			case isCSIIntermed(b):
				paramsDone = true
			default:
				// malformed sequence
				csi, paramsDone = false, false
			}
			continue
		}

		out = append(out, b)
	}
	return string(out)
}
