// Package wasmipl bridges host Go values and a guest WebAssembly module
// through the interchange protocol layer (IPL): a tagged 128-bit value
// format carried as two uint64 transport halves across the wasm ABI
// boundary. It wires together the codec (ipl/codec packages) with a
// wazero-backed guest runtime (internal/wasm) behind a single Instance
// type: load a module, call its exports with ordinary Go values, and get
// ordinary Go values back.
package wasmipl
