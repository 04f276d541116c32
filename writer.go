package corelog

import "bytes"

/*********************************************************************************
io.Writer interface implementation

The Module implements io.Writer so it can be handed to code that only knows
how to write bytes (the standard log package, exec.Cmd output, fmt.Fprintf).
The semantics are:
 - Lvl(level) returns a copy of the module writing at that level.
 - Write(p) logs p (without its trailing newline) as one message and returns
   len(p).

This allows patterns like:
  log.SetOutput(module.Lvl(corelog.LVL_WARN))
*/

// Lvl returns a copy of the module whose Write logs at the given level.
// Invalid levels fall back to LVL_INFO.
func (m *Module) Lvl(level LogLevel) *Module {
	c := *m
	c.curLevel = norm_byte(level, _LVL_MAX_for_checks_only, LVL_INFO)
	return &c
}

// Write implements io.Writer. Each call is one message at the module's current
// level (LVL_INFO unless set with Lvl). A single trailing "\n" or "\r\n" is
// removed since line formats end lines themselves. Nil or empty payloads are
// ignored.
func (m *Module) Write(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	msg := bytes.TrimSuffix(p, []byte{'\n'})
	msg = bytes.TrimSuffix(msg, []byte{'\r'})
	m.logger.Log(m.curLevel, m.name, string(msg))
	return len(p), nil
}
