// Package view turns session state into what a terminal user sees: the
// screen for a phase, its heading, the recovery indicator, per-disease risk
// and the coloured renderings used by the CLI.
package view
