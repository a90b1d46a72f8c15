//go:build !otpdebug

package service

// otpEchoCompiled is false in release builds; the plaintext code never reaches a response.
const otpEchoCompiled = false
