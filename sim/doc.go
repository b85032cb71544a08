// Package sim provides the shared vocabulary of the thermal protection simulator.
//
// # Reading Guide
//
// Start with these files to understand the closed control loop:
//   - scenario.go, config.go: Scenario and its immutable configuration sections
//   - model.go: ThermalModel, Zone and the power map every component agrees on
//   - controller.go: Controller contract, Observation/Decision and protection states
//   - sim/loop/simulator.go: the fixed-timestep loop wiring everything together
//
// # Architecture
//
// The sim package defines interfaces and plain data; implementations live in
// sub-packages:
//   - sim/plant/: thermal models (8x8 mesh, single-zone two-phase) and integrators
//   - sim/estimator/: Mesh-EKF state estimator
//   - sim/control/: unmanaged, reactive and predictive controllers plus the
//     protection state machine
//   - sim/workload/: activity profiles and hotspot floorplans
//   - sim/trace/: per-tick records and run summaries
//   - sim/loop/: single runs, parallel tournaments and the real-time runner
//
// # Tick Order
//
// Within a tick the order is fixed: plant advance, sensor sample, estimate
// update, control decision, state transition. The plant always consumes the
// gating factors decided at the end of the previous tick.
package sim
