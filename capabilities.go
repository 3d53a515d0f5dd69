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

import "sync"

// CapabilitySet reports what the current process is able to do on this
// operating system. All values are pure detection results: a probe that
// fails degrades to false, it never errors.
type CapabilitySet struct {
	// CanImpersonateLocalAccount is true when the process can switch its
	// effective identity to another local account and back.
	CanImpersonateLocalAccount bool

	// CanCreateHomeFolder is true when the process can provision a missing
	// home folder for another account.
	CanCreateHomeFolder bool

	// CanGetHomeFolder is true when the process can resolve the home folder
	// of another account.
	CanGetHomeFolder bool

	// SupportsSymbolicLinks is true when the process can create symbolic links.
	SupportsSymbolicLinks bool

	// SupportsPAM is true when PAM authentication is available on this system.
	SupportsPAM bool

	// Distribution is the detected OS distribution name, when known.
	Distribution string
}

var (
	capOnce sync.Once    //nolint:gochecknoglobals // Capabilities are per process.
	capSet  CapabilitySet //nolint:gochecknoglobals
)

// Capabilities detects the process capabilities once and returns the cached
// result for all subsequent calls.
func Capabilities() CapabilitySet {
	capOnce.Do(func() {
		capSet = detectCapabilities()

		log := Logger("capabilities")
		log.Debug().
			Bool("impersonate", capSet.CanImpersonateLocalAccount).
			Bool("create_home", capSet.CanCreateHomeFolder).
			Bool("get_home", capSet.CanGetHomeFolder).
			Bool("symlinks", capSet.SupportsSymbolicLinks).
			Bool("pam", capSet.SupportsPAM).
			Str("distribution", capSet.Distribution).
			Msg("process capabilities detected")
	})

	return capSet
}
