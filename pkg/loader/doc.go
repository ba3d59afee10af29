// Package loader fetches the location catalog after warm-up, falling back to
// Limited Mode when a backend known to be up still cannot list its states.
package loader
