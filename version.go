/*
 * Copyright © 2025 Vivek Rajagopal, All rights reserved.
 */

package gaejs

// Version is the library's semantic version. Release builds may override
// it:
//
//	go build -ldflags "-X github.com/VivekRajagopal/gae-js.Version=v1.2.3"
var Version = "0.1.0"
