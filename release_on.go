//go:build corelog_release

package corelog

// Trace and Debug messages are compiled out.
const releaseBuild = true
