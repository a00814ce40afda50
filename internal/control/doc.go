// Package control closes feedback loops around the engine's order parameter.
//
//   - [PID]: scalar proportional-integral-derivative controller
//   - [Hold]: experiment hook that steers coupling K to keep r at a setpoint
//
// # Usage
//
//	hold := control.NewHold(control.NewPID(2, 0.5, 0, 0.5), 1.0, 8)
//	runner.AddHook(hold) // called on every sample
package control
