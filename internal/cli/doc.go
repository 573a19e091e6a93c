// Package cli implements the dashgen command-line interface.
//
// Each cobra command parses its flags and hands off to the packages under
// internal/ for the actual work:
//
//	dashgen generate   - build dashboards and write JSON files (internal/generate)
//	dashgen push       - generate, then upload to Grafana (internal/publish)
//	dashgen discover   - list live metrics and suggest sections (internal/discovery)
//	dashgen validate   - check the config and build in memory
//	dashgen init       - write a starter config
//	dashgen version    - print build information
//
// Settings that may hold secrets or differ per environment are bound through
// viper, so every such flag also reads DASHGEN_<FLAG> from the environment,
// e.g. DASHGEN_GRAFANA_TOKEN for --grafana-token.
//
// With --json every command prints a JSONEnvelope on stdout instead of
// tables, and errors are mapped to stable codes by ErrorToJSON.
package cli
