//go:build nomicrophone
// +build nomicrophone

package microphone

// This stub file is used when building with the 'nomicrophone' build tag.
// Use this when cross-compiling or when malgo (miniaudio) dependencies are not available.
//
// To build without microphone support:
//   go build -tags nomicrophone
//
// No microphone is registered in that case; the audiotest driver or a
// custom adapter must be registered instead.
