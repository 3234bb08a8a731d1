// Package registry pulls in the source driver packages a dsbridge build
// carries; each registers itself via its init function.
package registry

import (
	_ "github.com/Alia5/dsbridge/driver/dualsense" // Register DualSense driver
)
