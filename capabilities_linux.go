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

//go:build linux

package compat

import (
	"os"
	"runtime"

	osrelease "github.com/dominodatalab/os-release"
	"golang.org/x/sys/unix"
)

const osReleasePath = "/etc/os-release"

// Minimal distributions shipping without a usable PAM stack.
var pamLessDistributions = map[string]bool{
	"alpine":  true,
	"openwrt": true,
}

func detectCapabilities() CapabilitySet {
	caps := CapabilitySet{
		CanCreateHomeFolder:   true,
		CanGetHomeFolder:      true,
		SupportsSymbolicLinks: true,
	}

	caps.CanImpersonateLocalAccount = probeImpersonation()
	caps.Distribution = detectDistribution()
	caps.SupportsPAM = detectPAM(caps.Distribution)

	return caps
}

// probeImpersonation checks that the process can switch its effective uid.
// For non root processes it attempts an elevate-and-revert round trip, so the
// process identity is unchanged on return.
func probeImpersonation() bool {
	euid := unix.Geteuid()
	if euid == 0 {
		return true
	}

	// The probe touches the process identity: keep it on one OS thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := unix.Setresuid(-1, 0, -1); err != nil {
		return false
	}

	if err := unix.Setresuid(-1, euid, -1); err != nil {
		// The process is stuck elevated. This should never happen since the
		// saved uid still holds the previous value.
		panic("compat: can't revert impersonation probe: " + err.Error())
	}

	return true
}

func detectDistribution() string {
	data, err := os.ReadFile(osReleasePath)
	if err != nil {
		return ""
	}

	return osrelease.Parse(string(data)).ID
}

func detectPAM(distribution string) bool {
	if pamLessDistributions[distribution] {
		return false
	}

	info, err := os.Stat("/etc/pam.d")
	if err != nil {
		return false
	}

	return info.IsDir()
}
