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

//go:build darwin

package compat

import (
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

func detectCapabilities() CapabilitySet {
	caps := CapabilitySet{
		CanCreateHomeFolder:   true,
		CanGetHomeFolder:      true,
		SupportsSymbolicLinks: true,
		Distribution:          "macos",
	}

	caps.CanImpersonateLocalAccount = probeImpersonation()

	// PAM ships with macOS.
	if info, err := os.Stat("/etc/pam.d"); err == nil && info.IsDir() {
		caps.SupportsPAM = true
	}

	return caps
}

func probeImpersonation() bool {
	euid := unix.Geteuid()
	if euid == 0 {
		return true
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := unix.Seteuid(0); err != nil {
		return false
	}

	if err := unix.Seteuid(euid); err != nil {
		panic("compat: can't revert impersonation probe: " + err.Error())
	}

	return true
}
