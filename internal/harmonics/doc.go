// Package harmonics implements the harmonic tide engine: a fixed catalog of
// astronomical constituents, a least-squares fit of observed water levels onto
// those constituents, the resulting Model, and a search for the turning points
// (high and low tides) of a Model inside a time window.
//
// # Model
//
// A Model predicts the water level at time t as
//
//	h(t) = MeanLevel + Σ A_i · cos(ω_i · Δt − φ_i)
//
// where ω_i is the constituent speed in degrees per mean solar hour, A_i the
// amplitude in metres, φ_i the phase in degrees and Δt the number of hours
// elapsed since the model epoch. The epoch is fixed (DefaultEpoch unless a
// caller overrides it) and must be the same instant for fitting and for
// reconstruction, otherwise every phase is shifted by ω_i · offset.
//
// Node factors and equilibrium arguments are not applied. Amplitudes and
// phases absorb the astronomy of the fitted period, so predictions degrade
// slowly as the lunar node moves away from its position during the fit.
//
// # Errors
//
// Failures are reported as *Error values wrapping one of the sentinel kinds
// (ErrUnknownConstituent, ErrInsufficientData, ErrDecompositionFailed,
// ErrMalformedModel, ErrInvalidWindow); test them with errors.Is.
package harmonics
