//go:build otpdebug

package service

const otpEchoCompiled = true
