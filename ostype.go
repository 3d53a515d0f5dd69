//
//  Copyright 2023 The compat authors
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//  	http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.
//

package compat

import "runtime"

// OSType defines the operating system type.
type OSType uint16

const (
	OsUnknown OSType = iota // Unknown
	OsLinux                 // Linux
	OsWindows               // Windows
	OsDarwin                // Darwin
)

func (ost OSType) String() string {
	switch ost {
	case OsLinux:
		return "Linux"
	case OsWindows:
		return "Windows"
	case OsDarwin:
		return "Darwin"
	default:
		return "Unknown"
	}
}

// CurrentOSType returns the operating system type of the running process.
func CurrentOSType() OSType {
	return currentOSType
}

var currentOSType = func() OSType { //nolint:gochecknoglobals // Store the current OS Type.
	switch runtime.GOOS {
	case "linux":
		return OsLinux
	case "darwin":
		return OsDarwin
	case "windows":
		return OsWindows
	default:
		return OsUnknown
	}
}()

// PathSeparator returns the path separator of the current operating system.
func PathSeparator() uint8 {
	if CurrentOSType() == OsWindows {
		return '\\'
	}

	return '/'
}

// CaseSensitive returns true when path comparison on the current operating
// system is case sensitive.
func CaseSensitive() bool {
	switch CurrentOSType() {
	case OsWindows, OsDarwin:
		return false
	default:
		return true
	}
}
