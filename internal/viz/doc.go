// Package viz renders a running phase field in the terminal.
//
// The live viewer is a Bubble Tea program around a [sim.Engine]:
//
//   - [Model]: steps the engine on a frame tick and draws the field, a phasor
//     of the order parameter and an r(t) sparkline
//   - [FieldView]: projects node positions into terminal cells colored by phase
//   - [Canvas]: Braille pixel canvas used for the phasor
//   - five built-in color themes that map phase onto a hue wheel
//
// # Key Bindings
//
//	Space      - Pause/Resume
//	R          - Reset phases and frequencies
//	Arrows/HJKL - Move the pointer
//	P          - Toggle the pointer (touch)
//	X          - Emit a ripple at the pointer
//	U          - Perturb ten percent of the field
//	+/-        - Coupling up/down
//	N/B        - Noise up/down
//	E          - Toggle the embodiment layer
//	Q          - Toggle the quantum overlay
//	[ ]        - Rotate 3D geometries
//	z/Z        - Zoom in/out
//	T          - Cycle color themes
//	?          - Show help overlay
//	Esc/Ctrl+C - Quit
package viz
