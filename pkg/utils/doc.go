// Package utils provides utility functions for common operations in the simple-auth system.
//
// This package contains pure, stateless helpers for secure random generation.
//
//	import "github.com/tendant/simple-auth/pkg/utils"
//
//	state := utils.GenerateRandomString(32)
//	passcode := utils.GenerateNumericCode(6)
package utils
