//go:build !corelog_release

package corelog

const releaseBuild = false
